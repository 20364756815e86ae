package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var resultNames = map[vk.Result]string{
	vk.Success:                   "VK_SUCCESS",
	vk.NotReady:                  "VK_NOT_READY",
	vk.Timeout:                   "VK_TIMEOUT",
	vk.EventSet:                  "VK_EVENT_SET",
	vk.EventReset:                "VK_EVENT_RESET",
	vk.Incomplete:                "VK_INCOMPLETE",
	vk.Suboptimal:                "VK_SUBOPTIMAL_KHR",
	vk.ErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	vk.ErrorMemoryMapFailed:      "VK_ERROR_MEMORY_MAP_FAILED",
	vk.ErrorLayerNotPresent:      "VK_ERROR_LAYER_NOT_PRESENT",
	vk.ErrorExtensionNotPresent:  "VK_ERROR_EXTENSION_NOT_PRESENT",
	vk.ErrorFeatureNotPresent:    "VK_ERROR_FEATURE_NOT_PRESENT",
	vk.ErrorIncompatibleDriver:   "VK_ERROR_INCOMPATIBLE_DRIVER",
	vk.ErrorTooManyObjects:       "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFormatNotSupported:   "VK_ERROR_FORMAT_NOT_SUPPORTED",
	vk.ErrorFragmentedPool:       "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorSurfaceLost:          "VK_ERROR_SURFACE_LOST_KHR",
	vk.ErrorNativeWindowInUse:    "VK_ERROR_NATIVE_WINDOW_IN_USE_KHR",
	vk.ErrorOutOfDate:            "VK_ERROR_OUT_OF_DATE_KHR",
	vk.ErrorIncompatibleDisplay:  "VK_ERROR_INCOMPATIBLE_DISPLAY_KHR",
	vk.ErrorOutOfPoolMemory:      "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorUnknown:              "VK_ERROR_UNKNOWN",
}

func VulkanResultString(result vk.Result) string {
	if name, ok := resultNames[result]; ok {
		return name
	}
	return fmt.Sprintf("VkResult(%d)", int32(result))
}

// checkResult turns a non-success status into a classified renderer error.
func checkResult(op string, result vk.Result) error {
	if result == vk.Success {
		return nil
	}
	err := fmt.Errorf("%s", VulkanResultString(result))
	switch result {
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfPoolMemory,
		vk.ErrorFragmentedPool, vk.ErrorTooManyObjects, vk.ErrorMemoryMapFailed:
		return core.NewAllocationError(op, err)
	case vk.ErrorLayerNotPresent, vk.ErrorExtensionNotPresent, vk.ErrorFeatureNotPresent,
		vk.ErrorIncompatibleDriver, vk.ErrorFormatNotSupported:
		return core.NewCapabilityError(op, err)
	}
	return core.NewStatusError(op, err)
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// spirvWords repacks the byte code without assuming the slice is 4-byte aligned in memory.
func spirvWords(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}

var formatTable = map[metadata.Format]vk.Format{
	metadata.FormatB8G8R8A8Srgb:  vk.FormatB8g8r8a8Srgb,
	metadata.FormatB8G8R8A8Unorm: vk.FormatB8g8r8a8Unorm,
	metadata.FormatR8G8B8A8Srgb:  vk.FormatR8g8b8a8Srgb,
	metadata.FormatR8G8B8A8Unorm: vk.FormatR8g8b8a8Unorm,
}

func toVkFormat(f metadata.Format) vk.Format {
	if v, ok := formatTable[f]; ok {
		return v
	}
	return vk.FormatUndefined
}

func fromVkFormat(f vk.Format) metadata.Format {
	for k, v := range formatTable {
		if v == f {
			return k
		}
	}
	return metadata.FormatUndefined
}

func toVkColorSpace(c metadata.ColorSpace) vk.ColorSpace {
	return vk.ColorSpaceSrgbNonlinear
}

var presentModeTable = map[metadata.PresentMode]vk.PresentMode{
	metadata.PresentModeImmediate:   vk.PresentModeImmediate,
	metadata.PresentModeMailbox:     vk.PresentModeMailbox,
	metadata.PresentModeFifo:        vk.PresentModeFifo,
	metadata.PresentModeFifoRelaxed: vk.PresentModeFifoRelaxed,
}

func toVkPresentMode(m metadata.PresentMode) vk.PresentMode {
	if v, ok := presentModeTable[m]; ok {
		return v
	}
	return vk.PresentModeFifo
}

func fromVkPresentMode(m vk.PresentMode) (metadata.PresentMode, bool) {
	for k, v := range presentModeTable {
		if v == m {
			return k, true
		}
	}
	return 0, false
}

func toVkBufferUsage(u metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if u.Has(metadata.BufferUsageTransferSrc) {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if u.Has(metadata.BufferUsageTransferDst) {
		flags |= vk.BufferUsageTransferDstBit
	}
	if u.Has(metadata.BufferUsageUniform) {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if u.Has(metadata.BufferUsageIndex) {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if u.Has(metadata.BufferUsageVertex) {
		flags |= vk.BufferUsageVertexBufferBit
	}
	return vk.BufferUsageFlags(flags)
}

func fromVkMemoryProperty(flags vk.MemoryPropertyFlags) metadata.MemoryProperty {
	var p metadata.MemoryProperty
	bits := vk.MemoryPropertyFlagBits(flags)
	if bits&vk.MemoryPropertyDeviceLocalBit != 0 {
		p |= metadata.MemoryPropertyDeviceLocal
	}
	if bits&vk.MemoryPropertyHostVisibleBit != 0 {
		p |= metadata.MemoryPropertyHostVisible
	}
	if bits&vk.MemoryPropertyHostCoherentBit != 0 {
		p |= metadata.MemoryPropertyHostCoherent
	}
	if bits&vk.MemoryPropertyHostCachedBit != 0 {
		p |= metadata.MemoryPropertyHostCached
	}
	return p
}

func toVkPipelineStage(s metadata.PipelineStage) vk.PipelineStageFlags {
	var flags vk.PipelineStageFlagBits
	if s&metadata.PipelineStageTopOfPipe != 0 {
		flags |= vk.PipelineStageTopOfPipeBit
	}
	if s&metadata.PipelineStageTransfer != 0 {
		flags |= vk.PipelineStageTransferBit
	}
	if s&metadata.PipelineStageColorAttachmentOutput != 0 {
		flags |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&metadata.PipelineStageBottomOfPipe != 0 {
		flags |= vk.PipelineStageBottomOfPipeBit
	}
	return vk.PipelineStageFlags(flags)
}

func toVkVertexFormat(f metadata.VertexFormat) vk.Format {
	switch f {
	case metadata.VertexFormatR32G32Sfloat:
		return vk.FormatR32g32Sfloat
	case metadata.VertexFormatR32G32B32Sfloat:
		return vk.FormatR32g32b32Sfloat
	}
	return vk.FormatUndefined
}

func toVkExtent(e metadata.Extent2D) vk.Extent2D {
	return vk.Extent2D{Width: e.Width, Height: e.Height}
}

func fromVkExtent(e vk.Extent2D) metadata.Extent2D {
	e.Deref()
	return metadata.Extent2D{Width: e.Width, Height: e.Height}
}
