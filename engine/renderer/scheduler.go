package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

type FrameState uint8

const (
	FrameIdle FrameState = iota
	FrameAwaitingSlot
	FrameAcquiring
	FrameSubmitted
	FramePresenting
	FrameRecreating
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameAwaitingSlot:
		return "awaiting-slot"
	case FrameAcquiring:
		return "acquiring"
	case FrameSubmitted:
		return "submitted"
	case FramePresenting:
		return "presenting"
	case FrameRecreating:
		return "recreating"
	}
	return "unknown"
}

// TickOutcome tells the caller what a Tick did. None of them is an error.
type TickOutcome uint8

const (
	// A frame was submitted and presented and the frame cursor advanced.
	TickPresented TickOutcome = iota
	// The swapchain bundle was rebuilt, nothing was presented.
	TickRecreated
	// The surface has no area, rebuilding is postponed to a later tick.
	TickDeferred
)

func (o TickOutcome) String() string {
	switch o {
	case TickPresented:
		return "presented"
	case TickRecreated:
		return "recreated"
	case TickDeferred:
		return "deferred"
	}
	return "unknown"
}

type FrameSchedulerConfig struct {
	Backend        RendererBackend
	Swapchains     *SwapchainManager
	Uploader       *StagingUploader
	Recorder       CommandRecorder
	SetLayout      metadata.DescriptorSetLayout
	FramesInFlight uint32
}

// FrameScheduler drives acquire, submit and present once per tick and rebuilds
// the swapchain bundle when the surface goes stale or the window is resized.
type FrameScheduler struct {
	backend    RendererBackend
	swapchains *SwapchainManager
	uploader   *StagingUploader
	recorder   CommandRecorder
	setLayout  metadata.DescriptorSetLayout

	slots    FrameSlots
	bundle   *SwapchainBundle
	uniforms *UniformSet
	// Fence of the slot that last rendered to each image, NullHandle if none.
	imagesInFlight []metadata.Fence

	currentFrame  uint32
	resizePending bool
	state         FrameState
}

// NewFrameScheduler creates the frame slots and the first swapchain bundle.
func NewFrameScheduler(cfg FrameSchedulerConfig) (*FrameScheduler, error) {
	if cfg.FramesInFlight == 0 {
		return nil, fmt.Errorf("frames in flight must be at least 1")
	}
	s := &FrameScheduler{
		backend:    cfg.Backend,
		swapchains: cfg.Swapchains,
		uploader:   cfg.Uploader,
		recorder:   cfg.Recorder,
		setLayout:  cfg.SetLayout,
		state:      FrameIdle,
	}

	slots, err := NewFrameSlots(cfg.Backend, cfg.FramesInFlight)
	if err != nil {
		return nil, err
	}
	s.slots = slots

	extent, _, err := s.swapchains.CurrentExtent()
	if err != nil {
		s.slots.Destroy(s.backend)
		return nil, err
	}
	bundle, err := s.swapchains.Create(extent, s.backend.SurfaceFormat(), s.backend.PresentMode())
	if err != nil {
		s.slots.Destroy(s.backend)
		return nil, err
	}
	if err := s.attach(bundle); err != nil {
		s.swapchains.Destroy(bundle)
		s.slots.Destroy(s.backend)
		return nil, err
	}
	return s, nil
}

func (s *FrameScheduler) CurrentFrame() uint32 {
	return s.currentFrame
}

func (s *FrameScheduler) State() FrameState {
	return s.state
}

func (s *FrameScheduler) Bundle() *SwapchainBundle {
	return s.bundle
}

func (s *FrameScheduler) Slots() FrameSlots {
	return s.slots
}

func (s *FrameScheduler) ImagesInFlight() []metadata.Fence {
	return s.imagesInFlight
}

func (s *FrameScheduler) ResizePending() bool {
	return s.resizePending
}

// OnResize flags the bundle for recreation at the end of the next present.
func (s *FrameScheduler) OnResize() {
	s.resizePending = true
}

// Tick renders one frame. Stale or suboptimal surfaces and resizes are handled
// here and reported through the outcome; only fatal conditions return an error.
func (s *FrameScheduler) Tick(ubo metadata.UniformBufferObject) (TickOutcome, error) {
	if s.bundle == nil {
		return s.Recreate()
	}
	slot := s.slots[s.currentFrame]

	s.state = FrameAwaitingSlot
	if err := s.backend.WaitForFence(slot.InFlight, WaitForever); err != nil {
		return 0, core.NewStatusError("wait for frame slot", err)
	}

	s.state = FrameAcquiring
	imageIndex, result, err := s.backend.AcquireNextImage(s.bundle.Handle, WaitForever, slot.ImageAvailable)
	if err != nil {
		return 0, core.NewStatusError("acquire next image", err)
	}
	if result == metadata.PresentOutOfDate {
		core.LogDebug("acquire reported %s, recreating swapchain", result)
		return s.Recreate()
	}
	if imageIndex >= s.bundle.ImageCount() {
		return 0, core.NewStatusError("acquire next image", fmt.Errorf("image index %d out of %d", imageIndex, s.bundle.ImageCount()))
	}

	// The image may still be read by a frame submitted from another slot.
	if fence := s.imagesInFlight[imageIndex]; fence != metadata.NullHandle && fence != slot.InFlight {
		if err := s.backend.WaitForFence(fence, WaitForever); err != nil {
			return 0, core.NewStatusError("wait for image in flight", err)
		}
	}
	s.imagesInFlight[imageIndex] = slot.InFlight

	if err := s.uniforms.Update(imageIndex, ubo); err != nil {
		return 0, err
	}

	s.state = FrameSubmitted
	if err := s.backend.ResetFence(slot.InFlight); err != nil {
		return 0, core.NewStatusError("reset frame fence", err)
	}
	err = s.backend.QueueSubmit(metadata.SubmitInfo{
		WaitSemaphore:   slot.ImageAvailable,
		WaitStage:       metadata.PipelineStageColorAttachmentOutput,
		CommandBuffer:   s.bundle.CommandBuffers[imageIndex],
		SignalSemaphore: slot.RenderFinished,
	}, slot.InFlight)
	if err != nil {
		return 0, core.NewStatusError("submit draw command buffer", err)
	}

	s.state = FramePresenting
	result, err = s.backend.QueuePresent(metadata.PresentInfo{
		WaitSemaphore: slot.RenderFinished,
		Swapchain:     s.bundle.Handle,
		ImageIndex:    imageIndex,
	})
	if err != nil {
		return 0, core.NewStatusError("present", err)
	}
	if s.resizePending || result != metadata.PresentSuccess {
		core.LogDebug("present reported %s (resize pending: %t), recreating swapchain", result, s.resizePending)
		return s.Recreate()
	}

	s.currentFrame = (s.currentFrame + 1) % uint32(len(s.slots))
	s.state = FrameIdle
	return TickPresented, nil
}

// Recreate rebuilds the bundle and the image-count sized resources once the device is idle.
// The frame cursor is left untouched.
func (s *FrameScheduler) Recreate() (TickOutcome, error) {
	s.state = FrameRecreating

	old := s.bundle
	bundle, err := s.swapchains.Recreate(old)
	if old == nil || old.Handle == metadata.NullHandle {
		// The manager waited for the device and released the old bundle.
		s.bundle = nil
		s.detach()
	}
	if errors.Is(err, core.ErrSwapchainBooting) {
		s.resizePending = true
		s.state = FrameIdle
		return TickDeferred, nil
	}
	if err != nil {
		return 0, err
	}
	if err := s.attach(bundle); err != nil {
		s.swapchains.Destroy(bundle)
		return 0, err
	}

	s.resizePending = false
	s.state = FrameIdle
	return TickRecreated, nil
}

// attach derives the uniform set, resets the per-image fences and records the command buffers.
func (s *FrameScheduler) attach(bundle *SwapchainBundle) error {
	uniforms, err := NewUniformSet(s.uploader, s.backend, s.setLayout, bundle.ImageCount())
	if err != nil {
		return err
	}

	for i, cb := range bundle.CommandBuffers {
		err := s.recorder.Record(cb, RecordTarget{
			RenderPass:     bundle.RenderPass,
			Framebuffer:    bundle.Framebuffers[i],
			Extent:         bundle.Extent,
			Pipeline:       bundle.Pipeline,
			PipelineLayout: bundle.PipelineLayout,
			DescriptorSet:  uniforms.Sets[i],
		})
		if err != nil {
			uniforms.Destroy()
			return err
		}
	}

	s.bundle = bundle
	s.uniforms = uniforms
	s.imagesInFlight = make([]metadata.Fence, bundle.ImageCount())
	return nil
}

func (s *FrameScheduler) detach() {
	s.uniforms.Destroy()
	s.uniforms = nil
	s.imagesInFlight = nil
}

// DestroySwapchain releases the bundle and then its uniform set. The device must be idle.
func (s *FrameScheduler) DestroySwapchain() {
	s.swapchains.Destroy(s.bundle)
	s.bundle = nil
	s.detach()
}

// DestroySlots releases the frame slots. The device must be idle.
func (s *FrameScheduler) DestroySlots() {
	s.slots.Destroy(s.backend)
	s.slots = nil
}
