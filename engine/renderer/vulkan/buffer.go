package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreateBuffer(size uint64, usage metadata.BufferUsage) (metadata.Buffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       toVkBufferUsage(usage),
		SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
	}

	var buffer vk.Buffer
	if err := checkResult("create buffer", vk.CreateBuffer(vb.context.Device.LogicalDevice, &bufferCreateInfo, vb.context.Allocator, &buffer)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.Buffer(vb.context.objects.buffers.Acquire(buffer)), nil
}

func (vb *VulkanBackend) DestroyBuffer(buffer metadata.Buffer) {
	if handle, ok := release(vb.context.objects.buffers, uint64(buffer)); ok {
		vk.DestroyBuffer(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) BufferMemoryRequirements(buffer metadata.Buffer) metadata.MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vb.context.Device.LogicalDevice, lookup(vb.context.objects.buffers, uint64(buffer)), &requirements)
	requirements.Deref()
	return metadata.MemoryRequirements{
		Size:           uint64(requirements.Size),
		Alignment:      uint64(requirements.Alignment),
		MemoryTypeBits: requirements.MemoryTypeBits,
	}
}

func (vb *VulkanBackend) MemoryTypes() []metadata.MemoryType {
	return vb.context.Device.MemoryTypes()
}

func (vb *VulkanBackend) AllocateMemory(size uint64, memoryTypeIndex uint32) (metadata.DeviceMemory, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryTypeIndex,
	}

	var memory vk.DeviceMemory
	if err := checkResult("allocate memory", vk.AllocateMemory(vb.context.Device.LogicalDevice, &allocateInfo, vb.context.Allocator, &memory)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.DeviceMemory(vb.context.objects.memories.Acquire(memory)), nil
}

func (vb *VulkanBackend) FreeMemory(memory metadata.DeviceMemory) {
	if handle, ok := release(vb.context.objects.memories, uint64(memory)); ok {
		vk.FreeMemory(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

func (vb *VulkanBackend) BindBufferMemory(buffer metadata.Buffer, memory metadata.DeviceMemory) error {
	return checkResult("bind buffer memory", vk.BindBufferMemory(
		vb.context.Device.LogicalDevice,
		lookup(vb.context.objects.buffers, uint64(buffer)),
		lookup(vb.context.objects.memories, uint64(memory)),
		0))
}

// MapMemory maps the first size bytes of the allocation. The slice aliases driver
// memory and must not be used after UnmapMemory.
func (vb *VulkanBackend) MapMemory(memory metadata.DeviceMemory, size uint64) ([]byte, error) {
	handle := lookup(vb.context.objects.memories, uint64(memory))
	if handle == nil {
		return nil, core.NewStatusError("map memory", fmt.Errorf("unknown device memory %d", memory))
	}

	var data unsafe.Pointer
	err := vb.locks.SafeCall(MemoryManagement, func() error {
		return checkResult("map memory", vk.MapMemory(vb.context.Device.LogicalDevice, handle, 0, vk.DeviceSize(size), 0, &data))
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, core.NewAllocationError("map memory", core.ErrMapFailed)
	}
	return unsafe.Slice((*byte)(data), size), nil
}

func (vb *VulkanBackend) UnmapMemory(memory metadata.DeviceMemory) {
	handle := lookup(vb.context.objects.memories, uint64(memory))
	if handle == nil {
		return
	}
	vb.locks.SafeCall(MemoryManagement, func() error {
		vk.UnmapMemory(vb.context.Device.LogicalDevice, handle)
		return nil
	})
}
