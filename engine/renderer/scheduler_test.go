package renderer

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

func newTestRenderer(t *testing.T, framesInFlight uint32) (*fakeBackend, *fakeSurface, *Renderer) {
	t.Helper()
	backend := newFakeBackend(t)
	surface := &fakeSurface{width: 800, height: 600}
	r, err := New(backend, surface, RendererConfig{
		FramesInFlight: framesInFlight,
		ClearColor:     metadata.ClearColor{0.1961, 0.6588, 0.3216, 1.0},
		VertexShader:   make([]byte, 16),
		FragmentShader: make([]byte, 16),
	})
	if err != nil {
		t.Fatal(err)
	}
	return backend, surface, r
}

func tick(t *testing.T, r *Renderer) TickOutcome {
	t.Helper()
	out, err := r.DrawFrame(0)
	if err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	return out
}

func assertBundleConsistent(t *testing.T, s *FrameScheduler) {
	t.Helper()
	b := s.Bundle()
	if b == nil {
		t.Fatal("no swapchain bundle")
	}
	n := len(b.Images)
	if len(b.ImageViews) != n || len(b.Framebuffers) != n || len(b.CommandBuffers) != n {
		t.Errorf("images=%d views=%d framebuffers=%d command buffers=%d", n, len(b.ImageViews), len(b.Framebuffers), len(b.CommandBuffers))
	}
	if len(s.ImagesInFlight()) != n {
		t.Errorf("%d image markers for %d images", len(s.ImagesInFlight()), n)
	}
}

func TestTwoSlotsThreeImages(t *testing.T) {
	backend, _, r := newTestRenderer(t, 2)
	s := r.Scheduler()
	if s.Bundle().ImageCount() != 3 {
		t.Fatalf("image count = %d, want 3", s.Bundle().ImageCount())
	}
	uploads := len(backend.submits)

	if out := tick(t, r); out != TickPresented {
		t.Fatalf("tick 1 = %s", out)
	}
	if got := backend.presents[0].ImageIndex; got != 0 {
		t.Errorf("tick 1 presented image %d, want 0", got)
	}
	if s.CurrentFrame() != 1 {
		t.Errorf("current frame = %d, want 1", s.CurrentFrame())
	}

	if out := tick(t, r); out != TickPresented {
		t.Fatalf("tick 2 = %s", out)
	}
	if got := backend.presents[1].ImageIndex; got != 1 {
		t.Errorf("tick 2 presented image %d, want 1", got)
	}
	if s.CurrentFrame() != 0 {
		t.Errorf("current frame = %d, want 0", s.CurrentFrame())
	}
	if s.State() != FrameIdle {
		t.Errorf("state = %s, want idle", s.State())
	}

	frames := backend.submits[uploads:]
	if len(frames) != 2 {
		t.Fatalf("%d frame submits, want 2", len(frames))
	}
	for i, sub := range frames {
		if sub.WaitStage != metadata.PipelineStageColorAttachmentOutput {
			t.Errorf("submit %d waits at %s", i, sub.WaitStage)
		}
	}
}

func TestStaleAcquireRecreates(t *testing.T) {
	backend, _, r := newTestRenderer(t, 2)
	s := r.Scheduler()
	tick(t, r)
	tick(t, r)

	swapchainsBefore := backend.created["swapchain"]
	waitsBefore := backend.deviceIdleWaits
	oldHandle := s.Bundle().Handle
	backend.acquireResults = []metadata.PresentResult{metadata.PresentOutOfDate}

	if out := tick(t, r); out != TickRecreated {
		t.Fatalf("tick 3 = %s, want recreated", out)
	}
	if n := backend.deviceIdleWaits - waitsBefore; n != 1 {
		t.Errorf("recreation waited for the device %d times, want 1", n)
	}
	if s.CurrentFrame() != 0 {
		t.Errorf("current frame = %d after recreation, want 0", s.CurrentFrame())
	}
	if n := backend.created["swapchain"] - swapchainsBefore; n != 1 {
		t.Errorf("%d swapchains created, want exactly 1", n)
	}
	if s.Bundle().Handle == oldHandle {
		t.Error("bundle was not replaced")
	}
	assertBundleConsistent(t, s)
	for i, f := range s.ImagesInFlight() {
		if f != metadata.NullHandle {
			t.Errorf("image %d still references fence %d", i, f)
		}
	}

	if out := tick(t, r); out != TickPresented {
		t.Fatalf("tick 4 = %s, want presented", out)
	}
	if s.CurrentFrame() != 1 {
		t.Errorf("current frame = %d, want 1", s.CurrentFrame())
	}
	if n := backend.created["swapchain"] - swapchainsBefore; n != 1 {
		t.Errorf("%d swapchains created, want exactly 1", n)
	}
}

func TestStaleOrSuboptimalPresentRecreates(t *testing.T) {
	for _, result := range []metadata.PresentResult{metadata.PresentOutOfDate, metadata.PresentSuboptimal} {
		t.Run(result.String(), func(t *testing.T) {
			backend, _, r := newTestRenderer(t, 2)
			s := r.Scheduler()
			tick(t, r)

			backend.presentResults = []metadata.PresentResult{result}
			if out := tick(t, r); out != TickRecreated {
				t.Fatalf("tick = %s, want recreated", out)
			}
			if s.CurrentFrame() != 1 {
				t.Errorf("current frame = %d, want 1", s.CurrentFrame())
			}
			assertBundleConsistent(t, s)
		})
	}
}

func TestSuboptimalAcquireContinues(t *testing.T) {
	backend, _, r := newTestRenderer(t, 2)
	backend.acquireResults = []metadata.PresentResult{metadata.PresentSuboptimal}
	if out := tick(t, r); out != TickPresented {
		t.Fatalf("tick = %s, want presented", out)
	}
	if backend.created["swapchain"] != 1 {
		t.Errorf("swapchain recreated on a suboptimal acquire")
	}
}

func TestResizeRecreatesAtNewExtent(t *testing.T) {
	backend, surface, r := newTestRenderer(t, 2)
	s := r.Scheduler()
	tick(t, r)

	surface.width, surface.height = 1024, 768
	backend.caps.CurrentExtent = metadata.Extent2D{Width: 1024, Height: 768}
	r.OnResize(1024, 768)
	if !s.ResizePending() {
		t.Fatal("resize not flagged")
	}

	if out := tick(t, r); out != TickRecreated {
		t.Fatalf("tick = %s, want recreated", out)
	}
	if s.ResizePending() {
		t.Error("resize still pending after recreation")
	}
	if s.CurrentFrame() != 1 {
		t.Errorf("current frame = %d, want 1", s.CurrentFrame())
	}
	want := metadata.Extent2D{Width: 1024, Height: 768}
	if s.Bundle().Extent != want {
		t.Errorf("bundle extent = %s, want %s", s.Bundle().Extent, want)
	}
	for _, fb := range s.Bundle().Framebuffers {
		if backend.framebuffer[fb] != want {
			t.Errorf("framebuffer extent = %s, want %s", backend.framebuffer[fb], want)
		}
	}
	if len(backend.framebuffer) != len(s.Bundle().Framebuffers) {
		t.Errorf("%d framebuffers alive, want %d", len(backend.framebuffer), len(s.Bundle().Framebuffers))
	}
	cb := backend.cmdBuffers[s.Bundle().CommandBuffers[0]]
	if cb.ops[2] != "set-viewport 1024x768" {
		t.Errorf("command buffer not re-recorded for the new extent: %v", cb.ops)
	}
}

func TestMinimizedSurfaceDefersRecreation(t *testing.T) {
	backend, _, r := newTestRenderer(t, 2)
	s := r.Scheduler()
	tick(t, r)

	backend.caps.CurrentExtent = metadata.Extent2D{Width: 0, Height: 0}
	r.OnResize(0, 0)
	if out := tick(t, r); out != TickDeferred {
		t.Fatalf("tick = %s, want deferred", out)
	}
	if s.Bundle() != nil {
		t.Error("bundle should be released while the surface has no area")
	}
	if !s.ResizePending() {
		t.Error("resize should stay pending")
	}
	if out := tick(t, r); out != TickDeferred {
		t.Fatalf("tick while minimized = %s, want deferred", out)
	}

	backend.caps.CurrentExtent = metadata.Extent2D{Width: 640, Height: 480}
	if out := tick(t, r); out != TickRecreated {
		t.Fatalf("tick after restore = %s, want recreated", out)
	}
	if out := tick(t, r); out != TickPresented {
		t.Fatalf("tick = %s, want presented", out)
	}
	if s.Bundle().Extent.Width != 640 {
		t.Errorf("extent = %s", s.Bundle().Extent)
	}
}

func TestInFlightFramesAreBounded(t *testing.T) {
	for _, n := range []uint32{1, 2, 3} {
		t.Run(fmt.Sprintf("%d slots", n), func(t *testing.T) {
			backend, _, r := newTestRenderer(t, n)
			for i := 0; i < 20; i++ {
				if i == 7 {
					backend.acquireResults = []metadata.PresentResult{metadata.PresentOutOfDate}
				}
				if i == 12 {
					r.OnResize(800, 600)
				}
				tick(t, r)
				if p := backend.pendingFences(); p > int(n) {
					t.Fatalf("tick %d: %d frames in flight, limit %d", i, p, n)
				}
			}
			if backend.maxPendingFence > int(n) {
				t.Errorf("max frames in flight = %d, limit %d", backend.maxPendingFence, n)
			}
			if n > 1 && backend.maxPendingFence < 2 {
				t.Errorf("frames never overlapped, max in flight = %d", backend.maxPendingFence)
			}
		})
	}
}

func TestImageReuseWaitsForPreviousSlot(t *testing.T) {
	backend, _, r := newTestRenderer(t, 2)
	s := r.Scheduler()
	slots := s.Slots()

	backend.forcedIndices = []uint32{0, 0}
	tick(t, r)
	if s.ImagesInFlight()[0] != slots[0].InFlight {
		t.Fatalf("image 0 marker = %d, want slot 0 fence %d", s.ImagesInFlight()[0], slots[0].InFlight)
	}
	if !backend.fences[slots[0].InFlight].pending {
		t.Fatal("slot 0 work should still be in flight")
	}

	tick(t, r)
	if backend.fences[slots[0].InFlight].pending {
		t.Error("image 0 was reused while slot 0 still rendered to it")
	}
	if s.ImagesInFlight()[0] != slots[1].InFlight {
		t.Errorf("image 0 marker = %d, want slot 1 fence %d", s.ImagesInFlight()[0], slots[1].InFlight)
	}
}

func TestRecreateTwiceKeepsExtentAndCount(t *testing.T) {
	_, _, r := newTestRenderer(t, 2)
	s := r.Scheduler()

	if _, err := s.Recreate(); err != nil {
		t.Fatal(err)
	}
	extent, count := s.Bundle().Extent, s.Bundle().ImageCount()
	if _, err := s.Recreate(); err != nil {
		t.Fatal(err)
	}
	if s.Bundle().Extent != extent || s.Bundle().ImageCount() != count {
		t.Errorf("got %s/%d, want %s/%d", s.Bundle().Extent, s.Bundle().ImageCount(), extent, count)
	}
	assertBundleConsistent(t, s)
}
