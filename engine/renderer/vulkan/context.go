package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// Only set when validation is enabled.
	debugCallback vk.DebugReportCallback

	Device *VulkanDevice

	objects *objectTables
}

// objectTables map the opaque metadata handles to the driver objects they stand for.
type objectTables struct {
	buffers         *core.IdentifierTable[vk.Buffer]
	memories        *core.IdentifierTable[vk.DeviceMemory]
	commandPools    *core.IdentifierTable[vk.CommandPool]
	commandBuffers  *core.IdentifierTable[vk.CommandBuffer]
	semaphores      *core.IdentifierTable[vk.Semaphore]
	fences          *core.IdentifierTable[vk.Fence]
	swapchains      *core.IdentifierTable[vk.Swapchain]
	images          *core.IdentifierTable[vk.Image]
	imageViews      *core.IdentifierTable[vk.ImageView]
	framebuffers    *core.IdentifierTable[vk.Framebuffer]
	renderPasses    *core.IdentifierTable[vk.RenderPass]
	pipelines       *core.IdentifierTable[vk.Pipeline]
	pipelineLayouts *core.IdentifierTable[vk.PipelineLayout]
	setLayouts      *core.IdentifierTable[vk.DescriptorSetLayout]
	descriptorPools *core.IdentifierTable[vk.DescriptorPool]
	descriptorSets  *core.IdentifierTable[vk.DescriptorSet]
	shaderModules   *core.IdentifierTable[vk.ShaderModule]

	// Images belong to their swapchain, sets to their pool. Both go away with the owner.
	swapchainImages map[metadata.Swapchain][]metadata.Image
	poolSets        map[metadata.DescriptorPool][]metadata.DescriptorSet
}

func newObjectTables() *objectTables {
	return &objectTables{
		buffers:         core.NewIdentifierTable[vk.Buffer](8),
		memories:        core.NewIdentifierTable[vk.DeviceMemory](8),
		commandPools:    core.NewIdentifierTable[vk.CommandPool](1),
		commandBuffers:  core.NewIdentifierTable[vk.CommandBuffer](4),
		semaphores:      core.NewIdentifierTable[vk.Semaphore](4),
		fences:          core.NewIdentifierTable[vk.Fence](2),
		swapchains:      core.NewIdentifierTable[vk.Swapchain](1),
		images:          core.NewIdentifierTable[vk.Image](4),
		imageViews:      core.NewIdentifierTable[vk.ImageView](4),
		framebuffers:    core.NewIdentifierTable[vk.Framebuffer](4),
		renderPasses:    core.NewIdentifierTable[vk.RenderPass](1),
		pipelines:       core.NewIdentifierTable[vk.Pipeline](1),
		pipelineLayouts: core.NewIdentifierTable[vk.PipelineLayout](1),
		setLayouts:      core.NewIdentifierTable[vk.DescriptorSetLayout](1),
		descriptorPools: core.NewIdentifierTable[vk.DescriptorPool](1),
		descriptorSets:  core.NewIdentifierTable[vk.DescriptorSet](4),
		shaderModules:   core.NewIdentifierTable[vk.ShaderModule](2),
		swapchainImages: make(map[metadata.Swapchain][]metadata.Image),
		poolSets:        make(map[metadata.DescriptorPool][]metadata.DescriptorSet),
	}
}

// live reports every table that still holds objects. Used to flag leaks at shutdown.
func (o *objectTables) live() map[string]int {
	counts := map[string]int{
		"buffer":                o.buffers.Len(),
		"device memory":         o.memories.Len(),
		"command pool":          o.commandPools.Len(),
		"command buffer":        o.commandBuffers.Len(),
		"semaphore":             o.semaphores.Len(),
		"fence":                 o.fences.Len(),
		"swapchain":             o.swapchains.Len(),
		"image view":            o.imageViews.Len(),
		"framebuffer":           o.framebuffers.Len(),
		"render pass":           o.renderPasses.Len(),
		"pipeline":              o.pipelines.Len(),
		"pipeline layout":       o.pipelineLayouts.Len(),
		"descriptor set layout": o.setLayouts.Len(),
		"descriptor pool":       o.descriptorPools.Len(),
		"shader module":         o.shaderModules.Len(),
	}
	for k, v := range counts {
		if v == 0 {
			delete(counts, k)
		}
	}
	return counts
}

// lookup resolves an identifier. Unknown identifiers resolve to the zero (null) handle.
func lookup[T any](table *core.IdentifierTable[T], id uint64) T {
	v, _ := table.Get(id)
	return v
}

// release drops an identifier and returns the handle it mapped to, if any.
func release[T any](table *core.IdentifierTable[T], id uint64) (T, bool) {
	v, err := table.Release(id)
	if err != nil {
		return v, false
	}
	return v, true
}
