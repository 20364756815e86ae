package renderer

import (
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// FrameSlot is the synchronization state of one frame that may be in flight.
type FrameSlot struct {
	ImageAvailable metadata.Semaphore
	RenderFinished metadata.Semaphore
	// Created signaled so the first wait on every slot returns immediately.
	InFlight metadata.Fence
}

type FrameSlots []FrameSlot

func NewFrameSlots(backend SyncBackend, count uint32) (FrameSlots, error) {
	slots := make(FrameSlots, count)
	for i := range slots {
		var err error
		if slots[i].ImageAvailable, err = backend.CreateSemaphore(); err != nil {
			slots.Destroy(backend)
			return nil, core.NewAllocationError("create image-available semaphore", err)
		}
		if slots[i].RenderFinished, err = backend.CreateSemaphore(); err != nil {
			slots.Destroy(backend)
			return nil, core.NewAllocationError("create render-finished semaphore", err)
		}
		if slots[i].InFlight, err = backend.CreateFence(true); err != nil {
			slots.Destroy(backend)
			return nil, core.NewAllocationError("create in-flight fence", err)
		}
	}
	return slots, nil
}

// Destroy releases all semaphores first and then all fences.
func (s FrameSlots) Destroy(backend SyncBackend) {
	for i := range s {
		if s[i].ImageAvailable != metadata.NullHandle {
			backend.DestroySemaphore(s[i].ImageAvailable)
		}
		if s[i].RenderFinished != metadata.NullHandle {
			backend.DestroySemaphore(s[i].RenderFinished)
		}
		s[i].ImageAvailable = metadata.NullHandle
		s[i].RenderFinished = metadata.NullHandle
	}
	for i := range s {
		if s[i].InFlight != metadata.NullHandle {
			backend.DestroyFence(s[i].InFlight)
		}
		s[i].InFlight = metadata.NullHandle
	}
}
