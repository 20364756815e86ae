package renderer

import (
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// RecordTarget is what a command buffer draws into.
type RecordTarget struct {
	RenderPass     metadata.RenderPass
	Framebuffer    metadata.Framebuffer
	Extent         metadata.Extent2D
	Pipeline       metadata.Pipeline
	PipelineLayout metadata.PipelineLayout
	DescriptorSet  metadata.DescriptorSet
}

// CommandRecorder fills a command buffer for one swapchain image.
type CommandRecorder interface {
	Record(cb metadata.CommandBuffer, target RecordTarget) error
}

// QuadRecorder records a single render pass that clears the target and draws an indexed mesh.
type QuadRecorder struct {
	backend    CommandBackend
	Vertices   metadata.Buffer
	Indices    metadata.Buffer
	IndexCount uint32
	Clear      metadata.ClearColor
}

func NewQuadRecorder(backend CommandBackend, vertices, indices metadata.Buffer, indexCount uint32, clear metadata.ClearColor) *QuadRecorder {
	return &QuadRecorder{
		backend:    backend,
		Vertices:   vertices,
		Indices:    indices,
		IndexCount: indexCount,
		Clear:      clear,
	}
}

func (r *QuadRecorder) Record(cb metadata.CommandBuffer, target RecordTarget) error {
	if err := r.backend.BeginCommandBuffer(cb, false); err != nil {
		return core.NewStatusError("begin command buffer", err)
	}

	r.backend.CmdBeginRenderPass(cb, metadata.RenderPassBeginInfo{
		RenderPass:  target.RenderPass,
		Framebuffer: target.Framebuffer,
		Extent:      target.Extent,
		Clear:       r.Clear,
	})
	r.backend.CmdBindPipeline(cb, target.Pipeline)
	// viewport and scissor are dynamic state
	r.backend.CmdSetViewport(cb, target.Extent)
	r.backend.CmdSetScissor(cb, target.Extent)
	r.backend.CmdBindVertexBuffer(cb, r.Vertices)
	r.backend.CmdBindIndexBuffer(cb, r.Indices)
	r.backend.CmdBindDescriptorSet(cb, target.PipelineLayout, target.DescriptorSet)
	r.backend.CmdDrawIndexed(cb, r.IndexCount)
	r.backend.CmdEndRenderPass(cb)

	if err := r.backend.EndCommandBuffer(cb); err != nil {
		return core.NewStatusError("end command buffer", err)
	}
	return nil
}
