package renderer

import (
	"fmt"

	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// Allocation is a buffer together with the memory bound to it.
type Allocation struct {
	Buffer metadata.Buffer
	Memory metadata.DeviceMemory
	Size   uint64
	Usage  metadata.BufferUsage
}

type uploadBackend interface {
	BufferBackend
	CommandBackend
	QueueBackend
}

// StagingUploader moves host data into device-local buffers through a
// temporary host-visible buffer and a one-shot command buffer.
type StagingUploader struct {
	backend uploadBackend
	pool    metadata.CommandPool
}

func NewStagingUploader(backend uploadBackend, pool metadata.CommandPool) *StagingUploader {
	return &StagingUploader{
		backend: backend,
		pool:    pool,
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter whose
// property flags include every requested property.
func (s *StagingUploader) FindMemoryIndex(typeFilter uint32, properties metadata.MemoryProperty) (uint32, error) {
	for i, t := range s.backend.MemoryTypes() {
		if i >= 32 {
			break
		}
		if typeFilter&(1<<uint(i)) != 0 && t.PropertyFlags.Has(properties) {
			return uint32(i), nil
		}
	}
	return 0, core.NewCapabilityError(fmt.Sprintf("find memory type (filter=%#x, properties=%s)", typeFilter, properties), core.ErrNoSuitableMemoryType)
}

// CreateBuffer creates a buffer and binds freshly allocated memory with the given properties to it.
func (s *StagingUploader) CreateBuffer(size uint64, usage metadata.BufferUsage, properties metadata.MemoryProperty) (Allocation, error) {
	buffer, err := s.backend.CreateBuffer(size, usage)
	if err != nil {
		return Allocation{}, core.NewAllocationError("create buffer", err)
	}

	req := s.backend.BufferMemoryRequirements(buffer)
	index, err := s.FindMemoryIndex(req.MemoryTypeBits, properties)
	if err != nil {
		s.backend.DestroyBuffer(buffer)
		return Allocation{}, err
	}

	memory, err := s.backend.AllocateMemory(req.Size, index)
	if err != nil {
		s.backend.DestroyBuffer(buffer)
		return Allocation{}, core.NewAllocationError("allocate buffer memory", err)
	}

	if err := s.backend.BindBufferMemory(buffer, memory); err != nil {
		s.backend.DestroyBuffer(buffer)
		s.backend.FreeMemory(memory)
		return Allocation{}, core.NewAllocationError("bind buffer memory", err)
	}

	return Allocation{
		Buffer: buffer,
		Memory: memory,
		Size:   size,
		Usage:  usage,
	}, nil
}

// CreateHostVisible creates a buffer the host can write at any time without staging.
func (s *StagingUploader) CreateHostVisible(size uint64, usage metadata.BufferUsage) (Allocation, error) {
	return s.CreateBuffer(size, usage, metadata.MemoryPropertyHostVisible|metadata.MemoryPropertyHostCoherent)
}

// Destroy releases the buffer and then its memory.
func (s *StagingUploader) Destroy(alloc Allocation) {
	if alloc.Buffer != metadata.NullHandle {
		s.backend.DestroyBuffer(alloc.Buffer)
	}
	if alloc.Memory != metadata.NullHandle {
		s.backend.FreeMemory(alloc.Memory)
	}
}

// Write copies data into the start of a host-visible allocation.
func (s *StagingUploader) Write(alloc Allocation, data []byte) error {
	if uint64(len(data)) > alloc.Size {
		return fmt.Errorf("write of %d bytes does not fit in a buffer of %d bytes", len(data), alloc.Size)
	}
	view, err := s.backend.MapMemory(alloc.Memory, alloc.Size)
	if err != nil {
		return core.NewAllocationError("map memory", fmt.Errorf("%w: %s", core.ErrMapFailed, err))
	}
	defer s.backend.UnmapMemory(alloc.Memory)

	if uint64(len(view)) < uint64(len(data)) {
		return fmt.Errorf("mapped view of %d bytes is smaller than %d bytes", len(view), len(data))
	}
	copy(view, data)
	return nil
}

func (s *StagingUploader) read(alloc Allocation) ([]byte, error) {
	view, err := s.backend.MapMemory(alloc.Memory, alloc.Size)
	if err != nil {
		return nil, core.NewAllocationError("map memory", fmt.Errorf("%w: %s", core.ErrMapFailed, err))
	}
	defer s.backend.UnmapMemory(alloc.Memory)

	out := make([]byte, alloc.Size)
	copy(out, view)
	return out, nil
}

// Upload copies data into a new device-local buffer usable as usage. The call
// blocks until the transfer completed and the staging buffer is gone.
// The result also allows transfer-src so it can be read back with Download.
func (s *StagingUploader) Upload(data []byte, usage metadata.BufferUsage) (Allocation, error) {
	size := uint64(len(data))
	if size == 0 {
		return Allocation{}, fmt.Errorf("upload of an empty buffer")
	}

	staging, err := s.CreateHostVisible(size, metadata.BufferUsageTransferSrc)
	if err != nil {
		return Allocation{}, err
	}
	defer s.Destroy(staging)

	if err := s.Write(staging, data); err != nil {
		return Allocation{}, err
	}

	dst, err := s.CreateBuffer(size, usage|metadata.BufferUsageTransferDst|metadata.BufferUsageTransferSrc, metadata.MemoryPropertyDeviceLocal)
	if err != nil {
		return Allocation{}, err
	}

	if err := s.copyBuffer(staging.Buffer, dst.Buffer, size); err != nil {
		s.Destroy(dst)
		return Allocation{}, err
	}
	return dst, nil
}

// Download reads a device-local allocation back through a host-visible mirror.
func (s *StagingUploader) Download(alloc Allocation) ([]byte, error) {
	if !alloc.Usage.Has(metadata.BufferUsageTransferSrc) {
		return nil, fmt.Errorf("download from buffer with usage %s: %w", alloc.Usage, core.ErrUsageNotAllowed)
	}

	mirror, err := s.CreateHostVisible(alloc.Size, metadata.BufferUsageTransferDst)
	if err != nil {
		return nil, err
	}
	defer s.Destroy(mirror)

	if err := s.copyBuffer(alloc.Buffer, mirror.Buffer, alloc.Size); err != nil {
		return nil, err
	}
	return s.read(mirror)
}

func (s *StagingUploader) copyBuffer(src, dst metadata.Buffer, size uint64) error {
	cbs, err := s.backend.AllocateCommandBuffers(s.pool, 1)
	if err != nil {
		return core.NewAllocationError("allocate transfer command buffer", err)
	}
	defer s.backend.FreeCommandBuffers(s.pool, cbs)
	cb := cbs[0]

	if err := s.backend.BeginCommandBuffer(cb, true); err != nil {
		return core.NewStatusError("begin transfer command buffer", err)
	}
	s.backend.CmdCopyBuffer(cb, src, dst, metadata.BufferCopy{Size: size})
	if err := s.backend.EndCommandBuffer(cb); err != nil {
		return core.NewStatusError("end transfer command buffer", err)
	}

	if err := s.backend.QueueSubmit(metadata.SubmitInfo{CommandBuffer: cb}, metadata.NullHandle); err != nil {
		return core.NewStatusError("submit transfer", err)
	}
	if err := s.backend.QueueWaitIdle(); err != nil {
		return core.NewStatusError("wait for transfer", err)
	}
	return nil
}
