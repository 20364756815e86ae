package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/platform"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// VulkanBackend implements the renderer backend on top of a single logical device
// with one graphics queue and one present queue.
type VulkanBackend struct {
	platform *platform.Platform
	context  *VulkanContext
	locks    *VulkanLockPool

	validation bool
}

func New(p *platform.Platform, validation bool) *VulkanBackend {
	return &VulkanBackend{
		platform: p,
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{},
			objects:   newObjectTables(),
		},
		locks:      NewVulkanLockPool(),
		validation: validation,
	}
}

// Initialize creates the instance, the optional debug callback, the window surface and the device.
// On failure everything created so far is destroyed again.
func (vb *VulkanBackend) Initialize(appName string) error {
	if err := vb.initialize(appName); err != nil {
		vb.Shutdown()
		return err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vb *VulkanBackend) initialize(appName string) error {
	procAddr := platform.GetInstanceProcAddress()
	if procAddr == nil {
		return core.NewCapabilityError("load vulkan", fmt.Errorf("GetInstanceProcAddress is nil"))
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return core.NewCapabilityError("load vulkan", err)
	}

	if err := vb.createInstance(appName); err != nil {
		return err
	}

	if vb.validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := checkResult("create debug report callback", vk.CreateDebugReportCallback(vb.context.Instance, &debugCreateInfo, vb.context.Allocator, &dbg)); err != nil {
			return err
		}
		vb.context.debugCallback = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vb.platform.CreateSurface(vb.context.Instance)
	if err != nil {
		return err
	}
	vb.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	return DeviceCreate(vb.context)
}

func (vb *VulkanBackend) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("No Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := requiredInstanceExtensions(vb.platform.GetRequiredExtensionNames(), vb.validation)
	core.LogDebug("Required extensions: %v", extensions)
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)

	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	// If validation should be done, make sure the layer exists.
	layers := []string{}
	if vb.validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		if err := checkInstanceLayer(validationLayerName); err != nil {
			return err
		}
		layers = append(layers, validationLayerName)
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := checkResult("create instance", vk.CreateInstance(&createInfo, vb.context.Allocator, &instance)); err != nil {
		return err
	}
	vb.context.Instance = instance
	if err := vk.InitInstance(vb.context.Instance); err != nil {
		return core.NewCapabilityError("init instance", err)
	}

	core.LogInfo("Vulkan Instance created.")
	return nil
}

func checkInstanceLayer(name string) error {
	var availableLayerCount uint32
	if err := checkResult("enumerate instance layers", vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil)); err != nil {
		return err
	}
	availableLayers := make([]vk.LayerProperties, availableLayerCount)
	if err := checkResult("enumerate instance layers", vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers)); err != nil {
		return err
	}
	for i := range availableLayers {
		availableLayers[i].Deref()
		if vk.ToString(availableLayers[i].LayerName[:]) == name {
			return nil
		}
	}
	return core.NewCapabilityError("enable validation", fmt.Errorf("required validation layer is missing: %s", name))
}

// Shutdown destroys the device, the surface, the debug callback and the instance.
// Every other object must have been destroyed by its owner before.
func (vb *VulkanBackend) Shutdown() error {
	if leaks := vb.context.objects.live(); len(leaks) > 0 {
		core.LogWarn("Destroying device with live objects: %v", leaks)
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vb.context)

	if vb.context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vb.context.Instance, vb.context.Surface, vb.context.Allocator)
		vb.context.Surface = vk.NullSurface
	}

	if vb.context.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vb.context.Instance, vb.context.debugCallback, vb.context.Allocator)
		vb.context.debugCallback = vk.NullDebugReportCallback
	}

	if vb.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vb.context.Instance, vb.context.Allocator)
		vb.context.Instance = nil
	}
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogValidation("error", fmt.Sprintf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage))
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogValidation("warning", fmt.Sprintf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage))
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogValidation("performance", fmt.Sprintf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage))
	default:
		core.LogValidation("info", fmt.Sprintf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage))
	}
	return vk.Bool32(vk.False)
}
