package metadata

type VertexFormat uint32

const (
	VertexFormatR32G32Sfloat VertexFormat = iota
	VertexFormatR32G32B32Sfloat
)

type VertexAttribute struct {
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

type VertexBinding struct {
	Binding uint32
	Stride  uint32
}

type CullMode uint32

const (
	CullModeNone CullMode = iota
	CullModeBack
)

type FrontFace uint32

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

/**
 * @brief Static description of the graphics pipeline fixed-function state.
 */
type PipelineConfig struct {
	VertexShader   ShaderModule
	FragmentShader ShaderModule
	RenderPass     RenderPass
	Layout         PipelineLayout
	Binding        VertexBinding
	Attributes     []VertexAttribute
	CullMode       CullMode
	FrontFace      FrontFace
	AlphaBlend     bool
}

// QuadPipelineConfig returns the fixed-function state used to draw the quad.
func QuadPipelineConfig(vert, frag ShaderModule, pass RenderPass, layout PipelineLayout) PipelineConfig {
	return PipelineConfig{
		VertexShader:   vert,
		FragmentShader: frag,
		RenderPass:     pass,
		Layout:         layout,
		Binding:        VertexBinding{Binding: 0, Stride: VertexStride},
		Attributes: []VertexAttribute{
			{Location: 0, Format: VertexFormatR32G32Sfloat, Offset: 0},
			{Location: 1, Format: VertexFormatR32G32B32Sfloat, Offset: 2 * 4},
		},
		CullMode:   CullModeNone,
		FrontFace:  FrontFaceCounterClockwise,
		AlphaBlend: true,
	}
}

type SwapchainCreateInfo struct {
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	PresentMode   PresentMode
	// Handed back to the driver so resources can be reused; may be NullHandle.
	OldSwapchain Swapchain
}

type ClearColor [4]float32

type RenderPassBeginInfo struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Extent      Extent2D
	Clear       ClearColor
}

/**
 * @brief One queue submission: a single wait, a single command buffer and a single signal.
 */
type SubmitInfo struct {
	WaitSemaphore   Semaphore
	WaitStage       PipelineStage
	CommandBuffer   CommandBuffer
	SignalSemaphore Semaphore
}

type PresentInfo struct {
	WaitSemaphore Semaphore
	Swapchain     Swapchain
	ImageIndex    uint32
}
