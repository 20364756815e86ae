package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// CreateRenderPass creates a single subpass pass with one color attachment that
// is cleared on load and left ready for presentation.
func (vb *VulkanBackend) CreateRenderPass(format metadata.Format) (metadata.RenderPass, error) {
	colorAttachment := vk.AttachmentDescription{
		Format:         toVkFormat(format),
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	}

	colorAttachmentReference := []vk.AttachmentReference{
		{
			Attachment: 0, // Attachment description array index
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	// The image may only be written once the presentation engine released it.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if err := checkResult("create render pass", vk.CreateRenderPass(vb.context.Device.LogicalDevice, &renderpassCreateInfo, vb.context.Allocator, &renderPass)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.RenderPass(vb.context.objects.renderPasses.Acquire(renderPass)), nil
}

func (vb *VulkanBackend) DestroyRenderPass(pass metadata.RenderPass) {
	if handle, ok := release(vb.context.objects.renderPasses, uint64(pass)); ok {
		vk.DestroyRenderPass(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}
