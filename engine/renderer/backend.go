package renderer

import "github.com/spaghettifunk/vkquad/engine/renderer/metadata"

// Timeout used by every blocking wait. A device that never signals is a fatal condition.
const WaitForever = ^uint64(0)

type BufferBackend interface {
	CreateBuffer(size uint64, usage metadata.BufferUsage) (metadata.Buffer, error)
	DestroyBuffer(buffer metadata.Buffer)
	BufferMemoryRequirements(buffer metadata.Buffer) metadata.MemoryRequirements
	MemoryTypes() []metadata.MemoryType
	AllocateMemory(size uint64, memoryTypeIndex uint32) (metadata.DeviceMemory, error)
	FreeMemory(memory metadata.DeviceMemory)
	BindBufferMemory(buffer metadata.Buffer, memory metadata.DeviceMemory) error
	// MapMemory returns a view of size bytes that is only valid until UnmapMemory.
	MapMemory(memory metadata.DeviceMemory, size uint64) ([]byte, error)
	UnmapMemory(memory metadata.DeviceMemory)
}

type CommandBackend interface {
	CreateCommandPool() (metadata.CommandPool, error)
	DestroyCommandPool(pool metadata.CommandPool)
	AllocateCommandBuffers(pool metadata.CommandPool, count uint32) ([]metadata.CommandBuffer, error)
	FreeCommandBuffers(pool metadata.CommandPool, buffers []metadata.CommandBuffer)
	BeginCommandBuffer(cb metadata.CommandBuffer, oneTime bool) error
	EndCommandBuffer(cb metadata.CommandBuffer) error

	CmdCopyBuffer(cb metadata.CommandBuffer, src, dst metadata.Buffer, region metadata.BufferCopy)
	CmdBeginRenderPass(cb metadata.CommandBuffer, info metadata.RenderPassBeginInfo)
	CmdEndRenderPass(cb metadata.CommandBuffer)
	CmdBindPipeline(cb metadata.CommandBuffer, pipeline metadata.Pipeline)
	CmdSetViewport(cb metadata.CommandBuffer, extent metadata.Extent2D)
	CmdSetScissor(cb metadata.CommandBuffer, extent metadata.Extent2D)
	CmdBindVertexBuffer(cb metadata.CommandBuffer, buffer metadata.Buffer)
	CmdBindIndexBuffer(cb metadata.CommandBuffer, buffer metadata.Buffer)
	CmdBindDescriptorSet(cb metadata.CommandBuffer, layout metadata.PipelineLayout, set metadata.DescriptorSet)
	CmdDrawIndexed(cb metadata.CommandBuffer, indexCount uint32)
}

type QueueBackend interface {
	// QueueSubmit submits the batch; fence, when not null, is signaled once it completes.
	QueueSubmit(info metadata.SubmitInfo, fence metadata.Fence) error
	QueueWaitIdle() error
	DeviceWaitIdle() error
}

type SyncBackend interface {
	CreateSemaphore() (metadata.Semaphore, error)
	DestroySemaphore(semaphore metadata.Semaphore)
	CreateFence(signaled bool) (metadata.Fence, error)
	DestroyFence(fence metadata.Fence)
	WaitForFence(fence metadata.Fence, timeout uint64) error
	ResetFence(fence metadata.Fence) error
}

type SwapchainBackend interface {
	SurfaceCapabilities() (metadata.SurfaceCapabilities, error)
	SurfaceFormat() metadata.SurfaceFormat
	PresentMode() metadata.PresentMode
	CreateSwapchain(info metadata.SwapchainCreateInfo) (metadata.Swapchain, error)
	DestroySwapchain(swapchain metadata.Swapchain)
	SwapchainImages(swapchain metadata.Swapchain) ([]metadata.Image, error)
	CreateImageView(image metadata.Image, format metadata.Format) (metadata.ImageView, error)
	DestroyImageView(view metadata.ImageView)
	// AcquireNextImage only returns an error for statuses outside success, suboptimal and out-of-date.
	AcquireNextImage(swapchain metadata.Swapchain, timeout uint64, signal metadata.Semaphore) (uint32, metadata.PresentResult, error)
	QueuePresent(info metadata.PresentInfo) (metadata.PresentResult, error)
}

type PipelineBackend interface {
	CreateShaderModule(code []byte) (metadata.ShaderModule, error)
	DestroyShaderModule(module metadata.ShaderModule)
	CreateRenderPass(format metadata.Format) (metadata.RenderPass, error)
	DestroyRenderPass(pass metadata.RenderPass)
	CreateDescriptorSetLayout() (metadata.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayout)
	CreatePipelineLayout(setLayout metadata.DescriptorSetLayout) (metadata.PipelineLayout, error)
	DestroyPipelineLayout(layout metadata.PipelineLayout)
	CreateGraphicsPipeline(config metadata.PipelineConfig) (metadata.Pipeline, error)
	DestroyPipeline(pipeline metadata.Pipeline)
	CreateFramebuffer(pass metadata.RenderPass, view metadata.ImageView, extent metadata.Extent2D) (metadata.Framebuffer, error)
	DestroyFramebuffer(framebuffer metadata.Framebuffer)
}

type DescriptorBackend interface {
	CreateDescriptorPool(count uint32) (metadata.DescriptorPool, error)
	DestroyDescriptorPool(pool metadata.DescriptorPool)
	AllocateDescriptorSets(pool metadata.DescriptorPool, layout metadata.DescriptorSetLayout, count uint32) ([]metadata.DescriptorSet, error)
	WriteUniformDescriptor(set metadata.DescriptorSet, buffer metadata.Buffer, size uint64)
}

// RendererBackend is everything the frame loop needs from a graphics API.
type RendererBackend interface {
	BufferBackend
	CommandBackend
	QueueBackend
	SyncBackend
	SwapchainBackend
	PipelineBackend
	DescriptorBackend

	// Shutdown destroys the device, the surface, the debug callback and the instance, in that order.
	Shutdown() error
}
