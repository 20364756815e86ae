package renderer

import (
	"fmt"

	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/math"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

type RendererConfig struct {
	FramesInFlight uint32
	ClearColor     metadata.ClearColor
	VertexShader   []byte
	FragmentShader []byte
}

// Renderer owns every long-lived GPU object of the quad and drives the frame scheduler.
type Renderer struct {
	backend RendererBackend

	pool           metadata.CommandPool
	setLayout      metadata.DescriptorSetLayout
	vertexShader   metadata.ShaderModule
	fragmentShader metadata.ShaderModule

	uploader   *StagingUploader
	swapchains *SwapchainManager
	scheduler  *FrameScheduler
	recorder   *QuadRecorder

	vertices Allocation
	indices  Allocation
}

func New(backend RendererBackend, surface SurfaceProvider, cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{backend: backend}
	if err := r.initialize(surface, cfg); err != nil {
		r.release()
		return nil, err
	}
	core.LogInfo("Renderer initialized.")
	return r, nil
}

func (r *Renderer) initialize(surface SurfaceProvider, cfg RendererConfig) error {
	var err error
	if r.pool, err = r.backend.CreateCommandPool(); err != nil {
		return core.NewAllocationError("create command pool", err)
	}
	if r.vertexShader, err = r.backend.CreateShaderModule(cfg.VertexShader); err != nil {
		return core.NewAllocationError("create vertex shader module", err)
	}
	if r.fragmentShader, err = r.backend.CreateShaderModule(cfg.FragmentShader); err != nil {
		return core.NewAllocationError("create fragment shader module", err)
	}
	if r.setLayout, err = r.backend.CreateDescriptorSetLayout(); err != nil {
		return core.NewAllocationError("create descriptor set layout", err)
	}

	r.uploader = NewStagingUploader(r.backend, r.pool)
	if r.vertices, err = r.uploader.Upload(metadata.VertexBytes(metadata.QuadVertices), metadata.BufferUsageVertex); err != nil {
		return fmt.Errorf("vertex buffer upload: %w", err)
	}
	if r.indices, err = r.uploader.Upload(metadata.IndexBytes(metadata.QuadIndices), metadata.BufferUsageIndex); err != nil {
		return fmt.Errorf("index buffer upload: %w", err)
	}

	r.recorder = NewQuadRecorder(r.backend, r.vertices.Buffer, r.indices.Buffer, uint32(len(metadata.QuadIndices)), cfg.ClearColor)
	r.swapchains = NewSwapchainManager(r.backend, surface, r.pool, r.setLayout, r.vertexShader, r.fragmentShader)

	r.scheduler, err = NewFrameScheduler(FrameSchedulerConfig{
		Backend:        r.backend,
		Swapchains:     r.swapchains,
		Uploader:       r.uploader,
		Recorder:       r.recorder,
		SetLayout:      r.setLayout,
		FramesInFlight: cfg.FramesInFlight,
	})
	return err
}

func (r *Renderer) Scheduler() *FrameScheduler {
	return r.scheduler
}

func (r *Renderer) Uploader() *StagingUploader {
	return r.uploader
}

func (r *Renderer) VertexBuffer() Allocation {
	return r.vertices
}

func (r *Renderer) IndexBuffer() Allocation {
	return r.indices
}

// DrawFrame renders the quad rotated around Z by the elapsed seconds.
func (r *Renderer) DrawFrame(elapsed float64) (TickOutcome, error) {
	ubo := metadata.NewUniformBufferObject()
	ubo.Model = math.NewMat4EulerZ(float32(elapsed))
	return r.scheduler.Tick(ubo)
}

func (r *Renderer) OnResize(width, height uint32) {
	core.LogDebug("renderer resize requested: %dx%d", width, height)
	r.scheduler.OnResize()
}

// ReloadShaders swaps in new shader modules and rebuilds the pipeline with them.
// If the rebuild fails the previous modules stay in use.
func (r *Renderer) ReloadShaders(vertexCode, fragmentCode []byte) error {
	vert, err := r.backend.CreateShaderModule(vertexCode)
	if err != nil {
		return core.NewAllocationError("create vertex shader module", err)
	}
	frag, err := r.backend.CreateShaderModule(fragmentCode)
	if err != nil {
		r.backend.DestroyShaderModule(vert)
		return core.NewAllocationError("create fragment shader module", err)
	}

	r.swapchains.SetShaders(vert, frag)
	if _, err := r.scheduler.Recreate(); err != nil {
		r.swapchains.SetShaders(r.vertexShader, r.fragmentShader)
		if _, rerr := r.scheduler.Recreate(); rerr != nil {
			core.LogError("failed to rebuild the pipeline with the previous shaders: %s", rerr)
		}
		r.backend.DestroyShaderModule(vert)
		r.backend.DestroyShaderModule(frag)
		return err
	}

	// The old pipeline is gone and the device is idle.
	r.backend.DestroyShaderModule(r.vertexShader)
	r.backend.DestroyShaderModule(r.fragmentShader)
	r.vertexShader, r.fragmentShader = vert, frag
	core.LogInfo("shaders reloaded")
	return nil
}

// Shutdown waits for the device and destroys everything, each object before the one it was created from.
func (r *Renderer) Shutdown() error {
	if err := r.backend.DeviceWaitIdle(); err != nil {
		return core.NewStatusError("wait for device idle", err)
	}
	return r.release()
}

func (r *Renderer) release() error {
	if r.scheduler != nil {
		r.scheduler.DestroySwapchain()
	}
	if r.setLayout != metadata.NullHandle {
		r.backend.DestroyDescriptorSetLayout(r.setLayout)
		r.setLayout = metadata.NullHandle
	}
	if r.uploader != nil {
		r.uploader.Destroy(r.indices)
		r.uploader.Destroy(r.vertices)
		r.indices, r.vertices = Allocation{}, Allocation{}
	}
	if r.scheduler != nil {
		r.scheduler.DestroySlots()
		r.scheduler = nil
	}
	if r.pool != metadata.NullHandle {
		r.backend.DestroyCommandPool(r.pool)
		r.pool = metadata.NullHandle
	}
	if r.vertexShader != metadata.NullHandle {
		r.backend.DestroyShaderModule(r.vertexShader)
		r.vertexShader = metadata.NullHandle
	}
	if r.fragmentShader != metadata.NullHandle {
		r.backend.DestroyShaderModule(r.fragmentShader)
		r.fragmentShader = metadata.NullHandle
	}
	return r.backend.Shutdown()
}
