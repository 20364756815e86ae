package renderer

import (
	"fmt"

	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// UniformSet holds one uniform buffer and one descriptor set per swapchain image.
// It is sized by the image count, so it is rebuilt with every bundle.
type UniformSet struct {
	uploader *StagingUploader
	backend  DescriptorBackend

	Buffers []Allocation
	Pool    metadata.DescriptorPool
	Sets    []metadata.DescriptorSet
}

func NewUniformSet(uploader *StagingUploader, backend DescriptorBackend, layout metadata.DescriptorSetLayout, count uint32) (*UniformSet, error) {
	u := &UniformSet{
		uploader: uploader,
		backend:  backend,
		Buffers:  make([]Allocation, 0, count),
	}

	initial := metadata.NewUniformBufferObject().Bytes()
	for i := uint32(0); i < count; i++ {
		alloc, err := uploader.CreateHostVisible(metadata.UniformBufferObjectSize, metadata.BufferUsageUniform)
		if err != nil {
			u.Destroy()
			return nil, err
		}
		u.Buffers = append(u.Buffers, alloc)
		if err := uploader.Write(alloc, initial); err != nil {
			u.Destroy()
			return nil, err
		}
	}

	var err error
	if u.Pool, err = backend.CreateDescriptorPool(count); err != nil {
		u.Destroy()
		return nil, core.NewAllocationError("create descriptor pool", err)
	}
	if u.Sets, err = backend.AllocateDescriptorSets(u.Pool, layout, count); err != nil {
		u.Destroy()
		return nil, core.NewAllocationError("allocate descriptor sets", err)
	}
	for i, set := range u.Sets {
		backend.WriteUniformDescriptor(set, u.Buffers[i].Buffer, metadata.UniformBufferObjectSize)
	}
	return u, nil
}

// Update writes the uniform block used by the given image.
func (u *UniformSet) Update(imageIndex uint32, ubo metadata.UniformBufferObject) error {
	if int(imageIndex) >= len(u.Buffers) {
		return fmt.Errorf("uniform update for image %d out of %d", imageIndex, len(u.Buffers))
	}
	return u.uploader.Write(u.Buffers[imageIndex], ubo.Bytes())
}

// Destroy frees the buffers and the pool. Sets are released with their pool.
func (u *UniformSet) Destroy() {
	if u == nil {
		return
	}
	for _, b := range u.Buffers {
		u.uploader.Destroy(b)
	}
	u.Buffers = nil
	if u.Pool != metadata.NullHandle {
		u.backend.DestroyDescriptorPool(u.Pool)
		u.Pool = metadata.NullHandle
	}
	u.Sets = nil
}
