package metadata

// Opaque identifiers for GPU objects. The zero value of every handle means "none".
// Each object kind has its own type so a fence can never be passed where a
// semaphore is expected.
type (
	Buffer              uint64
	DeviceMemory        uint64
	CommandPool         uint64
	CommandBuffer       uint64
	Semaphore           uint64
	Fence               uint64
	Surface             uint64
	Swapchain           uint64
	Image               uint64
	ImageView           uint64
	Framebuffer         uint64
	RenderPass          uint64
	Pipeline            uint64
	PipelineLayout      uint64
	DescriptorSetLayout uint64
	DescriptorPool      uint64
	DescriptorSet       uint64
	ShaderModule        uint64
)

/** @brief The "none" value shared by all handle kinds. */
const NullHandle = 0
