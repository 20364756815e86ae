package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties

	// Chosen once at selection time and reused by every swapchain.
	SurfaceFormat metadata.SurfaceFormat
	PresentMode   metadata.PresentMode
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func (q VulkanPhysicalDeviceQueueFamilyInfo) complete() bool {
	return q.GraphicsFamilyIndex >= 0 && q.PresentFamilyIndex >= 0
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{context.Device.GraphicsQueueIndex}
	if context.Device.PresentQueueIndex != context.Device.GraphicsQueueIndex {
		indices = append(indices, context.Device.PresentQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if deviceHasExtension(context.Device.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	var device vk.Device
	if err := checkResult("create logical device", vk.CreateDevice(
		context.Device.PhysicalDevice,
		&deviceCreateInfo,
		context.Allocator,
		&device)); err != nil {
		return err
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var graphicsQueue, presentQueue vk.Queue
	vk.GetDeviceQueue(device, context.Device.GraphicsQueueIndex, 0, &graphicsQueue)
	vk.GetDeviceQueue(device, context.Device.PresentQueueIndex, 0, &presentQueue)
	context.Device.GraphicsQueue = graphicsQueue
	context.Device.PresentQueue = presentQueue
	core.LogInfo("Queues obtained.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	if context.Device == nil {
		return
	}
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = VulkanSwapchainSupportInfo{}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	supportInfo := VulkanSwapchainSupportInfo{}

	// Surface capabilities
	if err := checkResult("query surface capabilities", vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities)); err != nil {
		return supportInfo, err
	}
	supportInfo.Capabilities.Deref()

	// Surface formats
	var formatCount uint32
	if err := checkResult("query surface formats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil)); err != nil {
		return supportInfo, err
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if err := checkResult("query surface formats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, formats)); err != nil {
			return supportInfo, err
		}
		for i := range formats {
			formats[i].Deref()
			// Only formats the renderer can name are kept.
			f := fromVkFormat(formats[i].Format)
			if f == metadata.FormatUndefined || formats[i].ColorSpace != vk.ColorSpaceSrgbNonlinear {
				continue
			}
			supportInfo.Formats = append(supportInfo.Formats, metadata.SurfaceFormat{
				Format:     f,
				ColorSpace: metadata.ColorSpaceSrgbNonlinear,
			})
		}
	}

	// Present modes
	var presentModeCount uint32
	if err := checkResult("query present modes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil)); err != nil {
		return supportInfo, err
	}
	if presentModeCount != 0 {
		modes := make([]vk.PresentMode, presentModeCount)
		if err := checkResult("query present modes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, modes)); err != nil {
			return supportInfo, err
		}
		for _, m := range modes {
			if mode, ok := fromVkPresentMode(m); ok {
				supportInfo.PresentModes = append(supportInfo.PresentModes, mode)
			}
		}
	}
	return supportInfo, nil
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if err := checkResult("enumerate physical devices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil)); err != nil {
		return err
	}
	if physicalDeviceCount == 0 {
		return core.NewCapabilityError("select physical device", fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrNoSuitableDevice))
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := checkResult("enumerate physical devices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices)); err != nil {
		return err
	}

	bestScore := -1
	for i := range physicalDevices {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
		properties.Deref()
		name := vk.ToString(properties.DeviceName[:])

		queueInfo, support, ok := PhysicalDeviceMeetsRequirements(physicalDevices[i], context.Surface, name)
		if !ok {
			continue
		}

		score := 0
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeDiscreteGpu:
			score = 2
		case vk.PhysicalDeviceTypeIntegratedGpu:
			score = 1
		}
		if score <= bestScore {
			continue
		}
		bestScore = score

		memory := vk.PhysicalDeviceMemoryProperties{}
		vk.GetPhysicalDeviceMemoryProperties(physicalDevices[i], &memory)
		memory.Deref()

		context.Device.PhysicalDevice = physicalDevices[i]
		context.Device.GraphicsQueueIndex = uint32(queueInfo.GraphicsFamilyIndex)
		context.Device.PresentQueueIndex = uint32(queueInfo.PresentFamilyIndex)
		context.Device.SwapchainSupport = support
		context.Device.Properties = properties
		context.Device.Memory = memory
	}

	// Ensure a device was selected
	if context.Device.PhysicalDevice == nil {
		return core.NewCapabilityError("select physical device", core.ErrNoSuitableDevice)
	}

	properties := context.Device.Properties
	core.LogInfo("Selected device: '%s'.", vk.ToString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)

	context.Device.SurfaceFormat = metadata.ChooseSurfaceFormat(context.Device.SwapchainSupport.Formats)
	context.Device.PresentMode = metadata.ChoosePresentMode(context.Device.SwapchainSupport.PresentModes)
	core.LogDebug("Graphics Family Index: %d", context.Device.GraphicsQueueIndex)
	core.LogDebug("Present Family Index:  %d", context.Device.PresentQueueIndex)
	core.LogDebug("Present mode: %s", context.Device.PresentMode)
	return nil
}

// PhysicalDeviceMeetsRequirements checks for a graphics queue, a queue that can present to the
// surface, the swapchain extension and at least one usable format and present mode.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, name string) (VulkanPhysicalDeviceQueueFamilyInfo, VulkanSwapchainSupportInfo, bool) {
	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		graphics := vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit != 0

		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			continue
		}
		present := supportsPresent == vk.True

		// A family that does both is preferred.
		if graphics && present {
			queueInfo.GraphicsFamilyIndex = int32(i)
			queueInfo.PresentFamilyIndex = int32(i)
			break
		}
		if graphics && queueInfo.GraphicsFamilyIndex < 0 {
			queueInfo.GraphicsFamilyIndex = int32(i)
		}
		if present && queueInfo.PresentFamilyIndex < 0 {
			queueInfo.PresentFamilyIndex = int32(i)
		}
	}

	if !queueInfo.complete() {
		core.LogInfo("Device '%s' lacks a graphics or present queue, skipping.", name)
		return queueInfo, VulkanSwapchainSupportInfo{}, false
	}
	if !deviceHasExtension(device, vk.KhrSwapchainExtensionName) {
		core.LogInfo("Required extension not found: '%s', skipping device '%s'.", vk.KhrSwapchainExtensionName, name)
		return queueInfo, VulkanSwapchainSupportInfo{}, false
	}

	support, err := DeviceQuerySwapchainSupport(device, surface)
	if err != nil {
		core.LogInfo("Could not query swapchain support of '%s': %s", name, err)
		return queueInfo, support, false
	}
	if len(support.Formats) < 1 || len(support.PresentModes) < 1 {
		core.LogInfo("Required swapchain support not present, skipping device '%s'.", name)
		return queueInfo, support, false
	}

	core.LogInfo("Device '%s' meets requirements.", name)
	return queueInfo, support, true
}

func deviceHasExtension(device vk.PhysicalDevice, extension string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].ExtensionName[:]) == extension {
			return true
		}
	}
	return false
}

// MemoryTypes lists the memory types of the selected device in index order.
func (d *VulkanDevice) MemoryTypes() []metadata.MemoryType {
	types := make([]metadata.MemoryType, d.Memory.MemoryTypeCount)
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		d.Memory.MemoryTypes[i].Deref()
		types[i] = metadata.MemoryType{
			PropertyFlags: fromVkMemoryProperty(d.Memory.MemoryTypes[i].PropertyFlags),
			HeapIndex:     d.Memory.MemoryTypes[i].HeapIndex,
		}
	}
	return types
}

func requiredInstanceExtensions(platformExtensions []string, validation bool) []string {
	// Generic surface extension first, then whatever the window system needs.
	extensions := []string{"VK_KHR_surface"}
	for _, e := range platformExtensions {
		if e != "VK_KHR_surface" {
			extensions = append(extensions, e)
		}
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if validation {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}
	return extensions
}
