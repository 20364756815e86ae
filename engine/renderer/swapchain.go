package renderer

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/math"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// SurfaceProvider reports the current drawable size of the presentation surface.
type SurfaceProvider interface {
	FramebufferSize() (width uint32, height uint32)
}

// SwapchainBundle is the presentable image chain and everything whose lifetime
// is tied to it. It is always created and destroyed as a whole.
type SwapchainBundle struct {
	// Generation identifier, only used in logs.
	ID             uuid.UUID
	Handle         metadata.Swapchain
	Extent         metadata.Extent2D
	Format         metadata.SurfaceFormat
	PresentMode    metadata.PresentMode
	Images         []metadata.Image
	ImageViews     []metadata.ImageView
	RenderPass     metadata.RenderPass
	PipelineLayout metadata.PipelineLayout
	Pipeline       metadata.Pipeline
	Framebuffers   []metadata.Framebuffer
	CommandBuffers []metadata.CommandBuffer
}

func (b *SwapchainBundle) ImageCount() uint32 {
	return uint32(len(b.Images))
}

type swapchainBackend interface {
	SwapchainBackend
	PipelineBackend
	CommandBackend
	QueueBackend
}

// SwapchainManager creates, destroys and recreates SwapchainBundles.
type SwapchainManager struct {
	backend   swapchainBackend
	surface   SurfaceProvider
	pool      metadata.CommandPool
	setLayout metadata.DescriptorSetLayout

	vertexShader   metadata.ShaderModule
	fragmentShader metadata.ShaderModule
}

func NewSwapchainManager(backend swapchainBackend, surface SurfaceProvider, pool metadata.CommandPool, setLayout metadata.DescriptorSetLayout, vert, frag metadata.ShaderModule) *SwapchainManager {
	return &SwapchainManager{
		backend:        backend,
		surface:        surface,
		pool:           pool,
		setLayout:      setLayout,
		vertexShader:   vert,
		fragmentShader: frag,
	}
}

// SetShaders replaces the shader modules used by bundles created from now on.
func (m *SwapchainManager) SetShaders(vert, frag metadata.ShaderModule) {
	m.vertexShader = vert
	m.fragmentShader = frag
}

// ImageCount asks for one image more than the minimum, bounded by the maximum when there is one.
func ImageCount(caps metadata.SurfaceCapabilities) uint32 {
	upper := caps.MaxImageCount
	if upper == 0 {
		upper = caps.MinImageCount + 1
	}
	return math.Clamp(caps.MinImageCount+1, caps.MinImageCount, upper)
}

// ChooseExtent uses the extent reported by the surface. When the surface leaves
// it to the swapchain, the window size is clamped to the supported range.
func ChooseExtent(caps metadata.SurfaceCapabilities, surface SurfaceProvider) metadata.Extent2D {
	if caps.CurrentExtent.Width != metadata.ExtentUndefined {
		return caps.CurrentExtent
	}
	w, h := surface.FramebufferSize()
	return metadata.Extent2D{
		Width:  math.Clamp(w, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: math.Clamp(h, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// CurrentExtent queries the surface for the extent the next bundle would get.
func (m *SwapchainManager) CurrentExtent() (metadata.Extent2D, metadata.SurfaceCapabilities, error) {
	caps, err := m.backend.SurfaceCapabilities()
	if err != nil {
		return metadata.Extent2D{}, caps, core.NewStatusError("query surface capabilities", err)
	}
	return ChooseExtent(caps, m.surface), caps, nil
}

// Create builds a complete bundle. It returns core.ErrSwapchainBooting when the
// surface currently has no area, in which case nothing was created.
func (m *SwapchainManager) Create(extent metadata.Extent2D, format metadata.SurfaceFormat, mode metadata.PresentMode) (*SwapchainBundle, error) {
	if extent.IsZero() {
		return nil, core.ErrSwapchainBooting
	}
	caps, err := m.backend.SurfaceCapabilities()
	if err != nil {
		return nil, core.NewStatusError("query surface capabilities", err)
	}

	b := &SwapchainBundle{
		ID:          uuid.New(),
		Extent:      extent,
		Format:      format,
		PresentMode: mode,
	}
	if err := m.build(b, caps); err != nil {
		m.Destroy(b)
		return nil, err
	}
	core.LogDebug("swapchain %s created: %s, %d images, %s", b.ID, b.Extent, len(b.Images), b.PresentMode)
	return b, nil
}

func (m *SwapchainManager) build(b *SwapchainBundle, caps metadata.SurfaceCapabilities) error {
	var err error
	b.Handle, err = m.backend.CreateSwapchain(metadata.SwapchainCreateInfo{
		MinImageCount: ImageCount(caps),
		Format:        b.Format,
		Extent:        b.Extent,
		PresentMode:   b.PresentMode,
	})
	if err != nil {
		return core.NewAllocationError("create swapchain", err)
	}

	b.Images, err = m.backend.SwapchainImages(b.Handle)
	if err != nil {
		return core.NewStatusError("get swapchain images", err)
	}

	b.ImageViews = make([]metadata.ImageView, 0, len(b.Images))
	for _, img := range b.Images {
		view, err := m.backend.CreateImageView(img, b.Format.Format)
		if err != nil {
			return core.NewAllocationError("create image view", err)
		}
		b.ImageViews = append(b.ImageViews, view)
	}

	if b.RenderPass, err = m.backend.CreateRenderPass(b.Format.Format); err != nil {
		return core.NewAllocationError("create render pass", err)
	}
	if b.PipelineLayout, err = m.backend.CreatePipelineLayout(m.setLayout); err != nil {
		return core.NewAllocationError("create pipeline layout", err)
	}
	b.Pipeline, err = m.backend.CreateGraphicsPipeline(metadata.QuadPipelineConfig(m.vertexShader, m.fragmentShader, b.RenderPass, b.PipelineLayout))
	if err != nil {
		return core.NewAllocationError("create graphics pipeline", err)
	}

	b.Framebuffers = make([]metadata.Framebuffer, 0, len(b.ImageViews))
	for _, view := range b.ImageViews {
		fb, err := m.backend.CreateFramebuffer(b.RenderPass, view, b.Extent)
		if err != nil {
			return core.NewAllocationError("create framebuffer", err)
		}
		b.Framebuffers = append(b.Framebuffers, fb)
	}

	if b.CommandBuffers, err = m.backend.AllocateCommandBuffers(m.pool, uint32(len(b.Images))); err != nil {
		return core.NewAllocationError("allocate command buffers", err)
	}
	return nil
}

// Destroy releases every object of the bundle. Partially built bundles are fine.
// The caller guarantees that no GPU work still references it.
func (m *SwapchainManager) Destroy(b *SwapchainBundle) {
	if b == nil {
		return
	}
	if len(b.CommandBuffers) > 0 {
		m.backend.FreeCommandBuffers(m.pool, b.CommandBuffers)
	}
	for _, fb := range b.Framebuffers {
		m.backend.DestroyFramebuffer(fb)
	}
	if b.Pipeline != metadata.NullHandle {
		m.backend.DestroyPipeline(b.Pipeline)
	}
	if b.PipelineLayout != metadata.NullHandle {
		m.backend.DestroyPipelineLayout(b.PipelineLayout)
	}
	if b.RenderPass != metadata.NullHandle {
		m.backend.DestroyRenderPass(b.RenderPass)
	}
	for _, view := range b.ImageViews {
		m.backend.DestroyImageView(view)
	}
	if b.Handle != metadata.NullHandle {
		m.backend.DestroySwapchain(b.Handle)
	}
	core.LogDebug("swapchain %s destroyed", b.ID)
	*b = SwapchainBundle{ID: b.ID}
}

// Recreate waits for the device to go idle, destroys old and builds a new bundle
// at the surface's current extent with the same format and present mode.
func (m *SwapchainManager) Recreate(old *SwapchainBundle) (*SwapchainBundle, error) {
	if err := m.backend.DeviceWaitIdle(); err != nil {
		return nil, core.NewStatusError("wait for device idle", err)
	}

	format, mode := m.backend.SurfaceFormat(), m.backend.PresentMode()
	if old != nil {
		format, mode = old.Format, old.PresentMode
	}
	m.Destroy(old)

	extent, _, err := m.CurrentExtent()
	if err != nil {
		return nil, err
	}
	return m.Create(extent, format, mode)
}
