package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreateSemaphore() (metadata.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := checkResult("create semaphore", vk.CreateSemaphore(vb.context.Device.LogicalDevice, &semaphoreCreateInfo, vb.context.Allocator, &semaphore)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.Semaphore(vb.context.objects.semaphores.Acquire(semaphore)), nil
}

func (vb *VulkanBackend) DestroySemaphore(semaphore metadata.Semaphore) {
	if handle, ok := release(vb.context.objects.semaphores, uint64(semaphore)); ok {
		vk.DestroySemaphore(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

// CreateFence creates a fence, signaled if requested so the first wait on it returns at once.
func (vb *VulkanBackend) CreateFence(signaled bool) (metadata.Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := checkResult("create fence", vk.CreateFence(vb.context.Device.LogicalDevice, &fenceCreateInfo, vb.context.Allocator, &fence)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.Fence(vb.context.objects.fences.Acquire(fence)), nil
}

func (vb *VulkanBackend) DestroyFence(fence metadata.Fence) {
	if handle, ok := release(vb.context.objects.fences, uint64(fence)); ok {
		vk.DestroyFence(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) WaitForFence(fence metadata.Fence, timeout uint64) error {
	handle := lookup(vb.context.objects.fences, uint64(fence))
	if handle == nil {
		return core.NewStatusError("wait for fence", fmt.Errorf("unknown fence %d", fence))
	}
	result := vk.WaitForFences(vb.context.Device.LogicalDevice, 1, []vk.Fence{handle}, vk.True, timeout)
	switch result {
	case vk.Success:
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	}
	return checkResult("wait for fence", result)
}

func (vb *VulkanBackend) ResetFence(fence metadata.Fence) error {
	handle := lookup(vb.context.objects.fences, uint64(fence))
	return checkResult("reset fence", vk.ResetFences(vb.context.Device.LogicalDevice, 1, []vk.Fence{handle}))
}
