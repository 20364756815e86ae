package vulkan

import (
	"errors"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

func TestCheckResultKinds(t *testing.T) {
	tests := []struct {
		result vk.Result
		kind   core.ErrorKind
	}{
		{vk.ErrorOutOfDeviceMemory, core.KindAllocationFailed},
		{vk.ErrorOutOfPoolMemory, core.KindAllocationFailed},
		{vk.ErrorMemoryMapFailed, core.KindAllocationFailed},
		{vk.ErrorExtensionNotPresent, core.KindCapabilityMissing},
		{vk.ErrorLayerNotPresent, core.KindCapabilityMissing},
		{vk.ErrorIncompatibleDriver, core.KindCapabilityMissing},
		{vk.ErrorDeviceLost, core.KindStatusUnexpected},
		{vk.ErrorSurfaceLost, core.KindStatusUnexpected},
		{vk.Result(-12345), core.KindStatusUnexpected},
	}
	for _, tt := range tests {
		t.Run(VulkanResultString(tt.result), func(t *testing.T) {
			err := checkResult("op", tt.result)
			kind, ok := core.ErrorKindOf(err)
			if !ok {
				t.Fatalf("expected a renderer error, got %v", err)
			}
			if kind != tt.kind {
				t.Errorf("kind = %s, want %s", kind, tt.kind)
			}
		})
	}

	if err := checkResult("op", vk.Success); err != nil {
		t.Errorf("success should not be an error: %v", err)
	}
}

func TestVulkanResultString(t *testing.T) {
	if got := VulkanResultString(vk.ErrorOutOfDate); got != "VK_ERROR_OUT_OF_DATE_KHR" {
		t.Errorf("got %q", got)
	}
	if got := VulkanResultString(vk.Result(-999)); got != "VkResult(-999)" {
		t.Errorf("got %q", got)
	}
}

func TestVulkanSafeStrings(t *testing.T) {
	in := []string{"VK_KHR_surface", "already\x00", ""}
	out := VulkanSafeStrings(in)
	want := []string{"VK_KHR_surface\x00", "already\x00", "\x00"}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, out[i], want[i])
		}
	}
	if in[0] != "VK_KHR_surface" {
		t.Error("input slice was modified")
	}
}

func TestSpirvWordsLittleEndian(t *testing.T) {
	code := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
	words := spirvWords(code)
	if len(words) != 2 || words[0] != 0x07230203 || words[1] != 0x00010000 {
		t.Errorf("words = %#x", words)
	}
}

func TestFormatConversions(t *testing.T) {
	for f := range formatTable {
		if got := fromVkFormat(toVkFormat(f)); got != f {
			t.Errorf("format %d round trips to %d", f, got)
		}
	}
	if toVkFormat(metadata.FormatUndefined) != vk.FormatUndefined {
		t.Error("undefined format should map to undefined")
	}
	if got := fromVkFormat(vk.FormatR32g32Sfloat); got != metadata.FormatUndefined {
		t.Errorf("unmapped format resolved to %d", got)
	}

	for m := range presentModeTable {
		got, ok := fromVkPresentMode(toVkPresentMode(m))
		if !ok || got != m {
			t.Errorf("present mode %d round trips to %d (%v)", m, got, ok)
		}
	}
}

func TestBufferUsageFlags(t *testing.T) {
	flags := toVkBufferUsage(metadata.BufferUsageVertex | metadata.BufferUsageTransferDst)
	want := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit)
	if flags != want {
		t.Errorf("flags = %#x, want %#x", flags, want)
	}

	props := fromVkMemoryProperty(vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit))
	if !props.Has(metadata.MemoryPropertyHostVisible | metadata.MemoryPropertyHostCoherent) {
		t.Errorf("missing host properties: %v", props)
	}
	if props.Has(metadata.MemoryPropertyDeviceLocal) {
		t.Error("unexpected device local property")
	}

	stage := toVkPipelineStage(metadata.PipelineStageColorAttachmentOutput)
	if stage != vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) {
		t.Errorf("stage = %#x", stage)
	}
}

func TestVertexFormats(t *testing.T) {
	if toVkVertexFormat(metadata.VertexFormatR32G32Sfloat) != vk.FormatR32g32Sfloat {
		t.Error("vec2 format")
	}
	if toVkVertexFormat(metadata.VertexFormatR32G32B32Sfloat) != vk.FormatR32g32b32Sfloat {
		t.Error("vec3 format")
	}
}

func TestRequiredInstanceExtensions(t *testing.T) {
	exts := requiredInstanceExtensions([]string{"VK_KHR_surface", "VK_KHR_xcb_surface"}, true)
	if exts[0] != "VK_KHR_surface" {
		t.Errorf("surface extension should come first: %v", exts)
	}
	seen := map[string]int{}
	for _, e := range exts {
		seen[e]++
	}
	if seen["VK_KHR_surface"] != 1 {
		t.Errorf("surface extension duplicated: %v", exts)
	}
	if seen["VK_KHR_xcb_surface"] != 1 || seen[vk.ExtDebugReportExtensionName] != 1 {
		t.Errorf("missing extensions: %v", exts)
	}

	for _, e := range requiredInstanceExtensions(nil, false) {
		if e == vk.ExtDebugReportExtensionName {
			t.Error("debug report requested without validation")
		}
	}
}

func TestObjectTablesTrackLiveObjects(t *testing.T) {
	objects := newObjectTables()
	if live := objects.live(); len(live) != 0 {
		t.Fatalf("fresh tables report live objects: %v", live)
	}

	id := objects.fences.Acquire(vk.NullFence)
	if live := objects.live(); live["fence"] != 1 {
		t.Fatalf("live = %v", live)
	}
	if _, ok := release(objects.fences, id); !ok {
		t.Fatal("release of a live id failed")
	}
	if _, ok := release(objects.fences, id); ok {
		t.Error("double release should fail")
	}
	if len(objects.live()) != 0 {
		t.Errorf("live = %v", objects.live())
	}
	if lookup(objects.buffers, 42) != vk.NullBuffer {
		t.Error("unknown id should resolve to the null handle")
	}
}

func TestLockPoolSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(QueueManagement, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}

	sentinel := errors.New("boom")
	if err := pool.SafeCall(MemoryManagement, func() error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("error not propagated: %v", err)
	}
}
