package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// CreateDescriptorSetLayout describes the single uniform buffer read by the vertex stage at binding 0.
func (vb *VulkanBackend) CreateDescriptorSetLayout() (metadata.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if err := checkResult("create descriptor set layout", vk.CreateDescriptorSetLayout(vb.context.Device.LogicalDevice, &createInfo, vb.context.Allocator, &layout)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.DescriptorSetLayout(vb.context.objects.setLayouts.Acquire(layout)), nil
}

func (vb *VulkanBackend) DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayout) {
	if handle, ok := release(vb.context.objects.setLayouts, uint64(layout)); ok {
		vk.DestroyDescriptorSetLayout(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

// CreateDescriptorPool sizes the pool for count uniform buffer sets.
func (vb *VulkanBackend) CreateDescriptorPool(count uint32) (metadata.DescriptorPool, error) {
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       count,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: count,
		}},
	}

	var pool vk.DescriptorPool
	if err := checkResult("create descriptor pool", vk.CreateDescriptorPool(vb.context.Device.LogicalDevice, &createInfo, vb.context.Allocator, &pool)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.DescriptorPool(vb.context.objects.descriptorPools.Acquire(pool)), nil
}

// DestroyDescriptorPool frees every set allocated from the pool as well.
func (vb *VulkanBackend) DestroyDescriptorPool(pool metadata.DescriptorPool) {
	handle, ok := release(vb.context.objects.descriptorPools, uint64(pool))
	if !ok {
		return
	}
	for _, set := range vb.context.objects.poolSets[pool] {
		release(vb.context.objects.descriptorSets, uint64(set))
	}
	delete(vb.context.objects.poolSets, pool)
	vk.DestroyDescriptorPool(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
}

func (vb *VulkanBackend) AllocateDescriptorSets(pool metadata.DescriptorPool, layout metadata.DescriptorSetLayout, count uint32) ([]metadata.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     lookup(vb.context.objects.descriptorPools, uint64(pool)),
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{lookup(vb.context.objects.setLayouts, uint64(layout))},
	}

	// One set per call, the binding takes a single output handle.
	sets := make([]metadata.DescriptorSet, 0, count)
	for i := uint32(0); i < count; i++ {
		var set vk.DescriptorSet
		if err := checkResult("allocate descriptor sets", vk.AllocateDescriptorSets(vb.context.Device.LogicalDevice, &allocateInfo, &set)); err != nil {
			// Sets already handed out are released together with the pool.
			vb.context.objects.poolSets[pool] = append(vb.context.objects.poolSets[pool], sets...)
			return nil, err
		}
		sets = append(sets, metadata.DescriptorSet(vb.context.objects.descriptorSets.Acquire(set)))
	}
	vb.context.objects.poolSets[pool] = append(vb.context.objects.poolSets[pool], sets...)
	return sets, nil
}

// WriteUniformDescriptor points binding 0 of the set at the whole buffer.
func (vb *VulkanBackend) WriteUniformDescriptor(set metadata.DescriptorSet, buffer metadata.Buffer, size uint64) {
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: lookup(vb.context.objects.buffers, uint64(buffer)),
		Offset: 0,
		Range:  vk.DeviceSize(size),
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          lookup(vb.context.objects.descriptorSets, uint64(set)),
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(vb.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
