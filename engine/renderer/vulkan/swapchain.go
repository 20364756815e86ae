package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []metadata.SurfaceFormat
	PresentModes []metadata.PresentMode
}

func (vb *VulkanBackend) SurfaceCapabilities() (metadata.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := checkResult("query surface capabilities", vk.GetPhysicalDeviceSurfaceCapabilities(vb.context.Device.PhysicalDevice, vb.context.Surface, &caps)); err != nil {
		return metadata.SurfaceCapabilities{}, err
	}
	caps.Deref()
	vb.context.Device.SwapchainSupport.Capabilities = caps
	return metadata.SurfaceCapabilities{
		MinImageCount:  caps.MinImageCount,
		MaxImageCount:  caps.MaxImageCount,
		CurrentExtent:  fromVkExtent(caps.CurrentExtent),
		MinImageExtent: fromVkExtent(caps.MinImageExtent),
		MaxImageExtent: fromVkExtent(caps.MaxImageExtent),
	}, nil
}

func (vb *VulkanBackend) SurfaceFormat() metadata.SurfaceFormat {
	return vb.context.Device.SurfaceFormat
}

func (vb *VulkanBackend) PresentMode() metadata.PresentMode {
	return vb.context.Device.PresentMode
}

func (vb *VulkanBackend) CreateSwapchain(info metadata.SwapchainCreateInfo) (metadata.Swapchain, error) {
	device := vb.context.Device
	caps := device.SwapchainSupport.Capabilities

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vb.context.Surface,
		MinImageCount:    info.MinImageCount,
		ImageFormat:      toVkFormat(info.Format.Format),
		ImageColorSpace:  toVkColorSpace(info.Format.ColorSpace),
		ImageExtent:      toVkExtent(info.Extent),
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      toVkPresentMode(info.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     lookup(vb.context.objects.swapchains, uint64(info.OldSwapchain)),
	}

	// Setup the queue family indices
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{device.GraphicsQueueIndex, device.PresentQueueIndex}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	if err := checkResult("create swapchain", vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, vb.context.Allocator, &swapchain)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.Swapchain(vb.context.objects.swapchains.Acquire(swapchain)), nil
}

// DestroySwapchain also forgets the images the swapchain owned.
func (vb *VulkanBackend) DestroySwapchain(swapchain metadata.Swapchain) {
	handle, ok := release(vb.context.objects.swapchains, uint64(swapchain))
	if !ok {
		return
	}
	for _, img := range vb.context.objects.swapchainImages[swapchain] {
		release(vb.context.objects.images, uint64(img))
	}
	delete(vb.context.objects.swapchainImages, swapchain)
	vk.DestroySwapchain(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
}

func (vb *VulkanBackend) SwapchainImages(swapchain metadata.Swapchain) ([]metadata.Image, error) {
	if imgs, ok := vb.context.objects.swapchainImages[swapchain]; ok {
		return imgs, nil
	}
	handle := lookup(vb.context.objects.swapchains, uint64(swapchain))
	if handle == nil {
		return nil, core.NewStatusError("get swapchain images", fmt.Errorf("unknown swapchain %d", swapchain))
	}

	var imageCount uint32
	if err := checkResult("get swapchain images", vk.GetSwapchainImages(vb.context.Device.LogicalDevice, handle, &imageCount, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, imageCount)
	if err := checkResult("get swapchain images", vk.GetSwapchainImages(vb.context.Device.LogicalDevice, handle, &imageCount, images)); err != nil {
		return nil, err
	}

	out := make([]metadata.Image, imageCount)
	for i := range images {
		out[i] = metadata.Image(vb.context.objects.images.Acquire(images[i]))
	}
	vb.context.objects.swapchainImages[swapchain] = out
	return out, nil
}

func (vb *VulkanBackend) CreateImageView(image metadata.Image, format metadata.Format) (metadata.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    lookup(vb.context.objects.images, uint64(image)),
		ViewType: vk.ImageViewType2d,
		Format:   toVkFormat(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if err := checkResult("create image view", vk.CreateImageView(vb.context.Device.LogicalDevice, &viewInfo, vb.context.Allocator, &view)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.ImageView(vb.context.objects.imageViews.Acquire(view)), nil
}

// Only views are destroyed, never the images, since those are owned by the swapchain.
func (vb *VulkanBackend) DestroyImageView(view metadata.ImageView) {
	if handle, ok := release(vb.context.objects.imageViews, uint64(view)); ok {
		vk.DestroyImageView(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) AcquireNextImage(swapchain metadata.Swapchain, timeout uint64, signal metadata.Semaphore) (uint32, metadata.PresentResult, error) {
	var imageIndex uint32
	var result vk.Result
	vb.locks.SafeCall(SwapchainManagement, func() error {
		result = vk.AcquireNextImage(
			vb.context.Device.LogicalDevice,
			lookup(vb.context.objects.swapchains, uint64(swapchain)),
			timeout,
			lookup(vb.context.objects.semaphores, uint64(signal)),
			vk.NullFence,
			&imageIndex)
		return nil
	})

	switch result {
	case vk.Success:
		return imageIndex, metadata.PresentSuccess, nil
	case vk.Suboptimal:
		return imageIndex, metadata.PresentSuboptimal, nil
	case vk.ErrorOutOfDate:
		return 0, metadata.PresentOutOfDate, nil
	}
	return 0, metadata.PresentSuccess, checkResult("acquire next image", result)
}

func (vb *VulkanBackend) QueuePresent(info metadata.PresentInfo) (metadata.PresentResult, error) {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{lookup(vb.context.objects.swapchains, uint64(info.Swapchain))},
		PImageIndices:  []uint32{info.ImageIndex},
		PResults:       nil,
	}
	if info.WaitSemaphore != metadata.NullHandle {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{lookup(vb.context.objects.semaphores, uint64(info.WaitSemaphore))}
	}

	var result vk.Result
	vb.locks.SafeCall(QueueManagement, func() error {
		result = vk.QueuePresent(vb.context.Device.PresentQueue, &presentInfo)
		return nil
	})

	switch result {
	case vk.Success:
		return metadata.PresentSuccess, nil
	case vk.Suboptimal:
		return metadata.PresentSuboptimal, nil
	case vk.ErrorOutOfDate:
		return metadata.PresentOutOfDate, nil
	}
	return metadata.PresentSuccess, checkResult("present", result)
}
