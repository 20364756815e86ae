package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// CreateShaderModule wraps SPIR-V byte code. The length must be a non-zero multiple of four.
func (vb *VulkanBackend) CreateShaderModule(code []byte) (metadata.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return metadata.NullHandle, core.NewStatusError("create shader module", fmt.Errorf("invalid SPIR-V size %d", len(code)))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    spirvWords(code),
	}

	var module vk.ShaderModule
	if err := checkResult("create shader module", vk.CreateShaderModule(vb.context.Device.LogicalDevice, &createInfo, vb.context.Allocator, &module)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.ShaderModule(vb.context.objects.shaderModules.Acquire(module)), nil
}

func (vb *VulkanBackend) DestroyShaderModule(module metadata.ShaderModule) {
	if handle, ok := release(vb.context.objects.shaderModules, uint64(module)); ok {
		vk.DestroyShaderModule(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

func shaderStage(stage vk.ShaderStageFlagBits, module vk.ShaderModule) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  VulkanSafeString("main"),
	}
}
