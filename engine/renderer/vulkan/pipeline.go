package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

func (vb *VulkanBackend) CreatePipelineLayout(setLayout metadata.DescriptorSetLayout) (metadata.PipelineLayout, error) {
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{lookup(vb.context.objects.setLayouts, uint64(setLayout))},
		PushConstantRangeCount: 0,
		PPushConstantRanges:    nil,
	}

	var layout vk.PipelineLayout
	if err := checkResult("create pipeline layout", vk.CreatePipelineLayout(vb.context.Device.LogicalDevice, &pipelineLayoutCreateInfo, vb.context.Allocator, &layout)); err != nil {
		return metadata.NullHandle, err
	}
	return metadata.PipelineLayout(vb.context.objects.pipelineLayouts.Acquire(layout)), nil
}

func (vb *VulkanBackend) DestroyPipelineLayout(layout metadata.PipelineLayout) {
	if handle, ok := release(vb.context.objects.pipelineLayouts, uint64(layout)); ok {
		vk.DestroyPipelineLayout(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}

// CreateGraphicsPipeline builds a triangle list pipeline whose viewport and scissor are set
// while recording, so it does not depend on the swapchain extent.
func (vb *VulkanBackend) CreateGraphicsPipeline(config metadata.PipelineConfig) (metadata.Pipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, lookup(vb.context.objects.shaderModules, uint64(config.VertexShader))),
		shaderStage(vk.ShaderStageFragmentBit, lookup(vb.context.objects.shaderModules, uint64(config.FragmentShader))),
	}

	// Viewport state. Both are dynamic, only the counts matter.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.CullMode == metadata.CullModeBack {
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	if config.FrontFace == metadata.FrontFaceClockwise {
		rasterizerCreateInfo.FrontFace = vk.FrontFaceClockwise
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if config.AlphaBlend {
		colorBlendAttachmentState.BlendEnable = vk.True
		colorBlendAttachmentState.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.ColorBlendOp = vk.BlendOpAdd
		colorBlendAttachmentState.SrcAlphaBlendFactor = vk.BlendFactorOne
		colorBlendAttachmentState.DstAlphaBlendFactor = vk.BlendFactorZero
		colorBlendAttachmentState.AlphaBlendOp = vk.BlendOpAdd
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   config.Binding.Binding,
		Stride:    config.Binding.Stride,
		InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
	}

	// Attributes
	attributes := make([]vk.VertexInputAttributeDescription, len(config.Attributes))
	for i, a := range config.Attributes {
		format := toVkVertexFormat(a.Format)
		if format == vk.FormatUndefined {
			return metadata.NullHandle, core.NewCapabilityError("create graphics pipeline", fmt.Errorf("unsupported vertex format %d at location %d", a.Format, a.Location))
		}
		attributes[i] = vk.VertexInputAttributeDescription{
			Binding:  config.Binding.Binding,
			Location: a.Location,
			Format:   format,
			Offset:   a.Offset,
		}
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  nil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              lookup(vb.context.objects.pipelineLayouts, uint64(config.Layout)),
		RenderPass:          lookup(vb.context.objects.renderPasses, uint64(config.RenderPass)),
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := checkResult("create graphics pipeline", vk.CreateGraphicsPipelines(
		vb.context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		vb.context.Allocator,
		pipelines)); err != nil {
		return metadata.NullHandle, err
	}

	core.LogDebug("Graphics pipeline created!")
	return metadata.Pipeline(vb.context.objects.pipelines.Acquire(pipelines[0])), nil
}

func (vb *VulkanBackend) DestroyPipeline(pipeline metadata.Pipeline) {
	if handle, ok := release(vb.context.objects.pipelines, uint64(pipeline)); ok {
		vk.DestroyPipeline(vb.context.Device.LogicalDevice, handle, vb.context.Allocator)
	}
}
