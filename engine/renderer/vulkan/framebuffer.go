package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreateFramebuffer(pass metadata.RenderPass, view metadata.ImageView, extent metadata.Extent2D) (metadata.Framebuffer, error) {
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      lookup(vb.context.objects.renderPasses, uint64(pass)),
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{lookup(vb.context.objects.imageViews, uint64(view))},
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	if err := checkResult("create framebuffer", vk.CreateFramebuffer(vb.context.Device.LogicalDevice, &framebufferCreateInfo, vb.context.Allocator, &framebuffer)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.Framebuffer(vb.context.objects.framebuffers.Acquire(framebuffer)), nil
}

func (vb *VulkanBackend) DestroyFramebuffer(framebuffer metadata.Framebuffer) {
	if handle, ok := release(vb.context.objects.framebuffers, uint64(framebuffer)); ok {
		vk.DestroyFramebuffer(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}
