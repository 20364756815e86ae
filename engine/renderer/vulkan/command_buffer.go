package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// CreateCommandPool creates a pool on the graphics queue family.
func (vb *VulkanBackend) CreateCommandPool() (metadata.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: vb.context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := checkResult("create command pool", vk.CreateCommandPool(vb.context.Device.LogicalDevice, &poolCreateInfo, vb.context.Allocator, &pool)); err != nil {
		return metadata.NullHandle, err
	}
	core.LogDebug("Graphics command pool created.")
	return metadata.CommandPool(vb.context.objects.commandPools.Acquire(pool)), nil
}

func (vb *VulkanBackend) DestroyCommandPool(pool metadata.CommandPool) {
	if handle, ok := release(vb.context.objects.commandPools, uint64(pool)); ok {
		vk.DestroyCommandPool(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) AllocateCommandBuffers(pool metadata.CommandPool, count uint32) ([]metadata.CommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        lookup(vb.context.objects.commandPools, uint64(pool)),
		CommandBufferCount: count,
		Level:              vk.CommandBufferLevelPrimary,
	}

	buffers := make([]vk.CommandBuffer, count)
	if err := checkResult("allocate command buffers", vk.AllocateCommandBuffers(vb.context.Device.LogicalDevice, &allocateInfo, buffers)); err != nil {
		return nil, err
	}
	out := make([]metadata.CommandBuffer, count)
	for i := range buffers {
		out[i] = metadata.CommandBuffer(vb.context.objects.commandBuffers.Acquire(buffers[i]))
	}
	return out, nil
}

func (vb *VulkanBackend) FreeCommandBuffers(pool metadata.CommandPool, buffers []metadata.CommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(buffers))
	for _, cb := range buffers {
		if h, ok := release(vb.context.objects.commandBuffers, uint64(cb)); ok {
			handles = append(handles, h)
		}
	}
	if len(handles) == 0 {
		return
	}
	vk.FreeCommandBuffers(vb.context.Device.LogicalDevice, lookup(vb.context.objects.commandPools, uint64(pool)), uint32(len(handles)), handles)
}

func (vb *VulkanBackend) BeginCommandBuffer(cb metadata.CommandBuffer, oneTime bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if oneTime {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return checkResult("begin command buffer", vk.BeginCommandBuffer(vb.commandBuffer(cb), &beginInfo))
}

func (vb *VulkanBackend) EndCommandBuffer(cb metadata.CommandBuffer) error {
	return checkResult("end command buffer", vk.EndCommandBuffer(vb.commandBuffer(cb)))
}

func (vb *VulkanBackend) commandBuffer(cb metadata.CommandBuffer) vk.CommandBuffer {
	return lookup(vb.context.objects.commandBuffers, uint64(cb))
}

func (vb *VulkanBackend) CmdCopyBuffer(cb metadata.CommandBuffer, src, dst metadata.Buffer, region metadata.BufferCopy) {
	vk.CmdCopyBuffer(vb.commandBuffer(cb),
		lookup(vb.context.objects.buffers, uint64(src)),
		lookup(vb.context.objects.buffers, uint64(dst)),
		1, []vk.BufferCopy{{
			SrcOffset: vk.DeviceSize(region.SrcOffset),
			DstOffset: vk.DeviceSize(region.DstOffset),
			Size:      vk.DeviceSize(region.Size),
		}})
}

func (vb *VulkanBackend) CmdBeginRenderPass(cb metadata.CommandBuffer, info metadata.RenderPassBeginInfo) {
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor([]float32{info.Clear[0], info.Clear[1], info.Clear[2], info.Clear[3]})

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  lookup(vb.context.objects.renderPasses, uint64(info.RenderPass)),
		Framebuffer: lookup(vb.context.objects.framebuffers, uint64(info.Framebuffer)),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: toVkExtent(info.Extent),
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(vb.commandBuffer(cb), &beginInfo, vk.SubpassContentsInline)
}

func (vb *VulkanBackend) CmdEndRenderPass(cb metadata.CommandBuffer) {
	vk.CmdEndRenderPass(vb.commandBuffer(cb))
}

func (vb *VulkanBackend) CmdBindPipeline(cb metadata.CommandBuffer, pipeline metadata.Pipeline) {
	vk.CmdBindPipeline(vb.commandBuffer(cb), vk.PipelineBindPointGraphics, lookup(vb.context.objects.pipelines, uint64(pipeline)))
}

func (vb *VulkanBackend) CmdSetViewport(cb metadata.CommandBuffer, extent metadata.Extent2D) {
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(vb.commandBuffer(cb), 0, 1, []vk.Viewport{viewport})
}

func (vb *VulkanBackend) CmdSetScissor(cb metadata.CommandBuffer, extent metadata.Extent2D) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: toVkExtent(extent),
	}
	vk.CmdSetScissor(vb.commandBuffer(cb), 0, 1, []vk.Rect2D{scissor})
}

func (vb *VulkanBackend) CmdBindVertexBuffer(cb metadata.CommandBuffer, buffer metadata.Buffer) {
	vk.CmdBindVertexBuffers(vb.commandBuffer(cb), 0, 1,
		[]vk.Buffer{lookup(vb.context.objects.buffers, uint64(buffer))},
		[]vk.DeviceSize{0})
}

// CmdBindIndexBuffer binds 16-bit indices.
func (vb *VulkanBackend) CmdBindIndexBuffer(cb metadata.CommandBuffer, buffer metadata.Buffer) {
	vk.CmdBindIndexBuffer(vb.commandBuffer(cb), lookup(vb.context.objects.buffers, uint64(buffer)), 0, vk.IndexTypeUint16)
}

func (vb *VulkanBackend) CmdBindDescriptorSet(cb metadata.CommandBuffer, layout metadata.PipelineLayout, set metadata.DescriptorSet) {
	vk.CmdBindDescriptorSets(vb.commandBuffer(cb), vk.PipelineBindPointGraphics,
		lookup(vb.context.objects.pipelineLayouts, uint64(layout)),
		0, 1, []vk.DescriptorSet{lookup(vb.context.objects.descriptorSets, uint64(set))},
		0, nil)
}

func (vb *VulkanBackend) CmdDrawIndexed(cb metadata.CommandBuffer, indexCount uint32) {
	vk.CmdDrawIndexed(vb.commandBuffer(cb), indexCount, 1, 0, 0, 0)
}

// QueueSubmit submits one command buffer to the graphics queue.
func (vb *VulkanBackend) QueueSubmit(info metadata.SubmitInfo, fence metadata.Fence) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{vb.commandBuffer(info.CommandBuffer)},
	}
	// Wait semaphore ensures that the operation cannot begin until the image is available.
	if info.WaitSemaphore != metadata.NullHandle {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{lookup(vb.context.objects.semaphores, uint64(info.WaitSemaphore))}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{toVkPipelineStage(info.WaitStage)}
	}
	if info.SignalSemaphore != metadata.NullHandle {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{lookup(vb.context.objects.semaphores, uint64(info.SignalSemaphore))}
	}

	vkFence := vk.NullFence
	if fence != metadata.NullHandle {
		vkFence = lookup(vb.context.objects.fences, uint64(fence))
	}

	return vb.locks.SafeCall(QueueManagement, func() error {
		return checkResult("queue submit", vk.QueueSubmit(vb.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vkFence))
	})
}

func (vb *VulkanBackend) QueueWaitIdle() error {
	return vb.locks.SafeCall(QueueManagement, func() error {
		return checkResult("queue wait idle", vk.QueueWaitIdle(vb.context.Device.GraphicsQueue))
	})
}

func (vb *VulkanBackend) DeviceWaitIdle() error {
	return checkResult("device wait idle", vk.DeviceWaitIdle(vb.context.Device.LogicalDevice))
}
