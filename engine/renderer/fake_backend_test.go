package renderer

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
)

// fakeBackend is an in-memory device. Submitted work stays pending until the
// host waits for it, so tests observe the same ordering rules as a real GPU.
type fakeBackend struct {
	t *testing.T

	nextID  uint64
	live    map[string]map[uint64]bool
	created map[string]int
	log     []string

	memoryTypes []metadata.MemoryType
	buffers     map[metadata.Buffer]*fakeBuffer
	memories    map[metadata.DeviceMemory]*fakeMemory
	cmdBuffers  map[metadata.CommandBuffer]*fakeCommandBuffer
	semaphores  map[metadata.Semaphore]bool
	fences      map[metadata.Fence]*fakeFence
	swapchains  map[metadata.Swapchain]*fakeSwapchain
	framebuffer map[metadata.Framebuffer]metadata.Extent2D
	descriptors map[metadata.DescriptorSet]metadata.Buffer
	poolSets    map[metadata.DescriptorPool][]metadata.DescriptorSet

	caps           metadata.SurfaceCapabilities
	acquireResults []metadata.PresentResult
	forcedIndices  []uint32
	presentResults []metadata.PresentResult
	rejectShader   metadata.ShaderModule

	pending         []fakeWork
	maxPendingFence int
	submits         []metadata.SubmitInfo
	presents        []metadata.PresentInfo
	destroyedBufs   []metadata.Buffer
	deviceIdleWaits int
	shutdown        bool
}

type fakeBuffer struct {
	size   uint64
	usage  metadata.BufferUsage
	memory metadata.DeviceMemory
}

type fakeMemory struct {
	data   []byte
	props  metadata.MemoryProperty
	mapped bool
}

type fakeCommandBuffer struct {
	recording bool
	ended     bool
	oneTime   bool
	ops       []string
	copies    []fakeCopy
}

type fakeCopy struct {
	src, dst metadata.Buffer
	region   metadata.BufferCopy
}

type fakeFence struct {
	signaled bool
	pending  bool
}

type fakeSwapchain struct {
	images []metadata.Image
	next   uint32
}

type fakeWork struct {
	fence  metadata.Fence
	copies []fakeCopy
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:       t,
		live:    map[string]map[uint64]bool{},
		created: map[string]int{},
		memoryTypes: []metadata.MemoryType{
			{PropertyFlags: metadata.MemoryPropertyDeviceLocal},
			{PropertyFlags: metadata.MemoryPropertyHostVisible | metadata.MemoryPropertyHostCoherent},
		},
		buffers:     map[metadata.Buffer]*fakeBuffer{},
		memories:    map[metadata.DeviceMemory]*fakeMemory{},
		cmdBuffers:  map[metadata.CommandBuffer]*fakeCommandBuffer{},
		semaphores:  map[metadata.Semaphore]bool{},
		fences:      map[metadata.Fence]*fakeFence{},
		swapchains:  map[metadata.Swapchain]*fakeSwapchain{},
		framebuffer: map[metadata.Framebuffer]metadata.Extent2D{},
		descriptors: map[metadata.DescriptorSet]metadata.Buffer{},
		poolSets:    map[metadata.DescriptorPool][]metadata.DescriptorSet{},
		caps: metadata.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  3,
			CurrentExtent:  metadata.Extent2D{Width: 800, Height: 600},
			MinImageExtent: metadata.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: metadata.Extent2D{Width: 4096, Height: 4096},
		},
	}
}

func (f *fakeBackend) create(kind string) uint64 {
	f.nextID++
	if f.live[kind] == nil {
		f.live[kind] = map[uint64]bool{}
	}
	f.live[kind][f.nextID] = true
	f.created[kind]++
	return f.nextID
}

func (f *fakeBackend) destroy(kind string, id uint64) {
	f.t.Helper()
	if !f.live[kind][id] {
		f.t.Errorf("destroy of unknown or already destroyed %s %d", kind, id)
		return
	}
	delete(f.live[kind], id)
	f.log = append(f.log, kind)
}

func (f *fakeBackend) liveCount(kind string) int {
	return len(f.live[kind])
}

func (f *fakeBackend) totalLive() int {
	n := 0
	for _, objs := range f.live {
		n += len(objs)
	}
	return n
}

func (f *fakeBackend) pendingFences() int {
	n := 0
	for _, fe := range f.fences {
		if fe.pending {
			n++
		}
	}
	return n
}

// complete retires pending work in submission order up to and including index i.
func (f *fakeBackend) complete(i int) {
	for j := 0; j <= i; j++ {
		w := f.pending[j]
		for _, c := range w.copies {
			f.runCopy(c)
		}
		if w.fence != metadata.NullHandle {
			fe := f.fences[w.fence]
			fe.pending = false
			fe.signaled = true
		}
	}
	f.pending = f.pending[i+1:]
}

func (f *fakeBackend) completeAll() {
	if len(f.pending) > 0 {
		f.complete(len(f.pending) - 1)
	}
}

func (f *fakeBackend) runCopy(c fakeCopy) {
	src, ok := f.buffers[c.src]
	if !ok {
		f.t.Errorf("copy from destroyed buffer %d", c.src)
		return
	}
	dst, ok := f.buffers[c.dst]
	if !ok {
		f.t.Errorf("copy into destroyed buffer %d", c.dst)
		return
	}
	if !src.usage.Has(metadata.BufferUsageTransferSrc) || !dst.usage.Has(metadata.BufferUsageTransferDst) {
		f.t.Errorf("copy %d -> %d with usages %s -> %s", c.src, c.dst, src.usage, dst.usage)
		return
	}
	srcMem, dstMem := f.memories[src.memory], f.memories[dst.memory]
	if srcMem == nil || dstMem == nil {
		f.t.Errorf("copy between buffers without bound memory")
		return
	}
	copy(dstMem.data[c.region.DstOffset:c.region.DstOffset+c.region.Size], srcMem.data[c.region.SrcOffset:c.region.SrcOffset+c.region.Size])
}

// BufferBackend

func (f *fakeBackend) CreateBuffer(size uint64, usage metadata.BufferUsage) (metadata.Buffer, error) {
	b := metadata.Buffer(f.create("buffer"))
	f.buffers[b] = &fakeBuffer{size: size, usage: usage}
	return b, nil
}

func (f *fakeBackend) DestroyBuffer(buffer metadata.Buffer) {
	f.destroy("buffer", uint64(buffer))
	delete(f.buffers, buffer)
	f.destroyedBufs = append(f.destroyedBufs, buffer)
}

func (f *fakeBackend) BufferMemoryRequirements(buffer metadata.Buffer) metadata.MemoryRequirements {
	return metadata.MemoryRequirements{Size: f.buffers[buffer].size, Alignment: 4, MemoryTypeBits: 0b11}
}

func (f *fakeBackend) MemoryTypes() []metadata.MemoryType {
	return f.memoryTypes
}

func (f *fakeBackend) AllocateMemory(size uint64, memoryTypeIndex uint32) (metadata.DeviceMemory, error) {
	if int(memoryTypeIndex) >= len(f.memoryTypes) {
		return 0, fmt.Errorf("memory type %d out of range", memoryTypeIndex)
	}
	m := metadata.DeviceMemory(f.create("memory"))
	f.memories[m] = &fakeMemory{data: make([]byte, size), props: f.memoryTypes[memoryTypeIndex].PropertyFlags}
	return m, nil
}

func (f *fakeBackend) FreeMemory(memory metadata.DeviceMemory) {
	if f.memories[memory] != nil && f.memories[memory].mapped {
		f.t.Errorf("memory %d freed while mapped", memory)
	}
	f.destroy("memory", uint64(memory))
	delete(f.memories, memory)
}

func (f *fakeBackend) BindBufferMemory(buffer metadata.Buffer, memory metadata.DeviceMemory) error {
	b, ok := f.buffers[buffer]
	if !ok || f.memories[memory] == nil {
		return fmt.Errorf("bind of unknown buffer or memory")
	}
	b.memory = memory
	return nil
}

func (f *fakeBackend) MapMemory(memory metadata.DeviceMemory, size uint64) ([]byte, error) {
	m, ok := f.memories[memory]
	if !ok {
		return nil, fmt.Errorf("map of unknown memory %d", memory)
	}
	if !m.props.Has(metadata.MemoryPropertyHostVisible) {
		return nil, fmt.Errorf("memory %d is not host visible", memory)
	}
	if m.mapped {
		return nil, fmt.Errorf("memory %d already mapped", memory)
	}
	if size > uint64(len(m.data)) {
		return nil, fmt.Errorf("map of %d bytes exceeds allocation of %d", size, len(m.data))
	}
	m.mapped = true
	return m.data[:size:size], nil
}

func (f *fakeBackend) UnmapMemory(memory metadata.DeviceMemory) {
	m, ok := f.memories[memory]
	if !ok || !m.mapped {
		f.t.Errorf("unmap of memory %d that is not mapped", memory)
		return
	}
	m.mapped = false
}

// CommandBackend

func (f *fakeBackend) CreateCommandPool() (metadata.CommandPool, error) {
	return metadata.CommandPool(f.create("command-pool")), nil
}

func (f *fakeBackend) DestroyCommandPool(pool metadata.CommandPool) {
	f.destroy("command-pool", uint64(pool))
}

func (f *fakeBackend) AllocateCommandBuffers(pool metadata.CommandPool, count uint32) ([]metadata.CommandBuffer, error) {
	if !f.live["command-pool"][uint64(pool)] {
		return nil, fmt.Errorf("unknown command pool %d", pool)
	}
	out := make([]metadata.CommandBuffer, count)
	for i := range out {
		out[i] = metadata.CommandBuffer(f.create("command-buffer"))
		f.cmdBuffers[out[i]] = &fakeCommandBuffer{}
	}
	return out, nil
}

func (f *fakeBackend) FreeCommandBuffers(pool metadata.CommandPool, buffers []metadata.CommandBuffer) {
	for _, cb := range buffers {
		f.destroy("command-buffer", uint64(cb))
		delete(f.cmdBuffers, cb)
	}
}

func (f *fakeBackend) BeginCommandBuffer(cb metadata.CommandBuffer, oneTime bool) error {
	c, ok := f.cmdBuffers[cb]
	if !ok {
		return fmt.Errorf("begin of unknown command buffer %d", cb)
	}
	*c = fakeCommandBuffer{recording: true, oneTime: oneTime}
	return nil
}

func (f *fakeBackend) EndCommandBuffer(cb metadata.CommandBuffer) error {
	c, ok := f.cmdBuffers[cb]
	if !ok || !c.recording {
		return fmt.Errorf("end of command buffer %d that is not recording", cb)
	}
	c.recording = false
	c.ended = true
	return nil
}

func (f *fakeBackend) record(cb metadata.CommandBuffer, op string) *fakeCommandBuffer {
	f.t.Helper()
	c, ok := f.cmdBuffers[cb]
	if !ok || !c.recording {
		f.t.Errorf("%s recorded into command buffer %d that is not recording", op, cb)
		return &fakeCommandBuffer{}
	}
	c.ops = append(c.ops, op)
	return c
}

func (f *fakeBackend) CmdCopyBuffer(cb metadata.CommandBuffer, src, dst metadata.Buffer, region metadata.BufferCopy) {
	c := f.record(cb, "copy")
	c.copies = append(c.copies, fakeCopy{src: src, dst: dst, region: region})
}

func (f *fakeBackend) CmdBeginRenderPass(cb metadata.CommandBuffer, info metadata.RenderPassBeginInfo) {
	f.record(cb, "begin-render-pass")
}

func (f *fakeBackend) CmdEndRenderPass(cb metadata.CommandBuffer) {
	f.record(cb, "end-render-pass")
}

func (f *fakeBackend) CmdBindPipeline(cb metadata.CommandBuffer, pipeline metadata.Pipeline) {
	f.record(cb, "bind-pipeline")
}

func (f *fakeBackend) CmdSetViewport(cb metadata.CommandBuffer, extent metadata.Extent2D) {
	f.record(cb, "set-viewport "+extent.String())
}

func (f *fakeBackend) CmdSetScissor(cb metadata.CommandBuffer, extent metadata.Extent2D) {
	f.record(cb, "set-scissor "+extent.String())
}

func (f *fakeBackend) CmdBindVertexBuffer(cb metadata.CommandBuffer, buffer metadata.Buffer) {
	f.record(cb, "bind-vertex-buffer")
}

func (f *fakeBackend) CmdBindIndexBuffer(cb metadata.CommandBuffer, buffer metadata.Buffer) {
	f.record(cb, "bind-index-buffer")
}

func (f *fakeBackend) CmdBindDescriptorSet(cb metadata.CommandBuffer, layout metadata.PipelineLayout, set metadata.DescriptorSet) {
	if _, ok := f.descriptors[set]; !ok {
		f.t.Errorf("descriptor set %d bound before it was written", set)
	}
	f.record(cb, "bind-descriptor-set")
}

func (f *fakeBackend) CmdDrawIndexed(cb metadata.CommandBuffer, indexCount uint32) {
	f.record(cb, fmt.Sprintf("draw-indexed %d", indexCount))
}

// QueueBackend

func (f *fakeBackend) QueueSubmit(info metadata.SubmitInfo, fence metadata.Fence) error {
	c, ok := f.cmdBuffers[info.CommandBuffer]
	if !ok || !c.ended {
		return fmt.Errorf("submit of command buffer %d that was not recorded", info.CommandBuffer)
	}
	if info.WaitSemaphore != metadata.NullHandle {
		if !f.semaphores[info.WaitSemaphore] {
			return fmt.Errorf("submit waits on semaphore %d that will never be signaled", info.WaitSemaphore)
		}
		f.semaphores[info.WaitSemaphore] = false
	}
	if info.SignalSemaphore != metadata.NullHandle {
		f.semaphores[info.SignalSemaphore] = true
	}
	if fence != metadata.NullHandle {
		fe := f.fences[fence]
		if fe == nil || fe.signaled || fe.pending {
			return fmt.Errorf("submit with fence %d that is not reset", fence)
		}
		fe.pending = true
	}
	f.submits = append(f.submits, info)
	f.pending = append(f.pending, fakeWork{fence: fence, copies: append([]fakeCopy(nil), c.copies...)})
	if n := f.pendingFences(); n > f.maxPendingFence {
		f.maxPendingFence = n
	}
	return nil
}

func (f *fakeBackend) QueueWaitIdle() error {
	f.completeAll()
	return nil
}

func (f *fakeBackend) DeviceWaitIdle() error {
	f.deviceIdleWaits++
	f.log = append(f.log, "device-wait-idle")
	f.completeAll()
	return nil
}

// SyncBackend

func (f *fakeBackend) CreateSemaphore() (metadata.Semaphore, error) {
	s := metadata.Semaphore(f.create("semaphore"))
	f.semaphores[s] = false
	return s, nil
}

func (f *fakeBackend) DestroySemaphore(semaphore metadata.Semaphore) {
	f.destroy("semaphore", uint64(semaphore))
	delete(f.semaphores, semaphore)
}

func (f *fakeBackend) CreateFence(signaled bool) (metadata.Fence, error) {
	fe := metadata.Fence(f.create("fence"))
	f.fences[fe] = &fakeFence{signaled: signaled}
	return fe, nil
}

func (f *fakeBackend) DestroyFence(fence metadata.Fence) {
	if fe := f.fences[fence]; fe != nil && fe.pending {
		f.t.Errorf("fence %d destroyed while work is pending", fence)
	}
	f.destroy("fence", uint64(fence))
	delete(f.fences, fence)
}

func (f *fakeBackend) WaitForFence(fence metadata.Fence, timeout uint64) error {
	fe, ok := f.fences[fence]
	if !ok {
		return fmt.Errorf("wait on unknown fence %d", fence)
	}
	if fe.signaled {
		return nil
	}
	for i, w := range f.pending {
		if w.fence == fence {
			f.complete(i)
			return nil
		}
	}
	return fmt.Errorf("wait on fence %d that nothing will signal", fence)
}

func (f *fakeBackend) ResetFence(fence metadata.Fence) error {
	fe, ok := f.fences[fence]
	if !ok || fe.pending {
		return fmt.Errorf("reset of fence %d with pending work", fence)
	}
	fe.signaled = false
	return nil
}

// SwapchainBackend

func (f *fakeBackend) SurfaceCapabilities() (metadata.SurfaceCapabilities, error) {
	return f.caps, nil
}

func (f *fakeBackend) SurfaceFormat() metadata.SurfaceFormat {
	return metadata.SurfaceFormat{Format: metadata.FormatB8G8R8A8Srgb, ColorSpace: metadata.ColorSpaceSrgbNonlinear}
}

func (f *fakeBackend) PresentMode() metadata.PresentMode {
	return metadata.PresentModeFifo
}

func (f *fakeBackend) CreateSwapchain(info metadata.SwapchainCreateInfo) (metadata.Swapchain, error) {
	if info.Extent.IsZero() {
		return 0, fmt.Errorf("swapchain with zero extent")
	}
	sc := metadata.Swapchain(f.create("swapchain"))
	images := make([]metadata.Image, info.MinImageCount)
	for i := range images {
		// images belong to the swapchain and are never destroyed on their own
		f.nextID++
		images[i] = metadata.Image(f.nextID)
	}
	f.swapchains[sc] = &fakeSwapchain{images: images}
	return sc, nil
}

func (f *fakeBackend) DestroySwapchain(swapchain metadata.Swapchain) {
	f.destroy("swapchain", uint64(swapchain))
	delete(f.swapchains, swapchain)
}

func (f *fakeBackend) SwapchainImages(swapchain metadata.Swapchain) ([]metadata.Image, error) {
	sc, ok := f.swapchains[swapchain]
	if !ok {
		return nil, fmt.Errorf("unknown swapchain %d", swapchain)
	}
	return sc.images, nil
}

func (f *fakeBackend) CreateImageView(image metadata.Image, format metadata.Format) (metadata.ImageView, error) {
	return metadata.ImageView(f.create("image-view")), nil
}

func (f *fakeBackend) DestroyImageView(view metadata.ImageView) {
	f.destroy("image-view", uint64(view))
}

func (f *fakeBackend) AcquireNextImage(swapchain metadata.Swapchain, timeout uint64, signal metadata.Semaphore) (uint32, metadata.PresentResult, error) {
	sc, ok := f.swapchains[swapchain]
	if !ok {
		return 0, 0, fmt.Errorf("acquire on unknown swapchain %d", swapchain)
	}
	result := metadata.PresentSuccess
	if len(f.acquireResults) > 0 {
		result, f.acquireResults = f.acquireResults[0], f.acquireResults[1:]
	}
	if result == metadata.PresentOutOfDate {
		return 0, result, nil
	}
	if f.semaphores[signal] {
		return 0, 0, fmt.Errorf("acquire signals semaphore %d that is already signaled", signal)
	}
	f.semaphores[signal] = true
	idx := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	if len(f.forcedIndices) > 0 {
		idx, f.forcedIndices = f.forcedIndices[0], f.forcedIndices[1:]
	}
	return idx, result, nil
}

func (f *fakeBackend) QueuePresent(info metadata.PresentInfo) (metadata.PresentResult, error) {
	if !f.semaphores[info.WaitSemaphore] {
		return 0, fmt.Errorf("present waits on semaphore %d that will never be signaled", info.WaitSemaphore)
	}
	f.semaphores[info.WaitSemaphore] = false
	f.presents = append(f.presents, info)
	if len(f.presentResults) > 0 {
		var r metadata.PresentResult
		r, f.presentResults = f.presentResults[0], f.presentResults[1:]
		return r, nil
	}
	return metadata.PresentSuccess, nil
}

// PipelineBackend

func (f *fakeBackend) CreateShaderModule(code []byte) (metadata.ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return 0, fmt.Errorf("invalid shader code of %d bytes", len(code))
	}
	return metadata.ShaderModule(f.create("shader-module")), nil
}

func (f *fakeBackend) DestroyShaderModule(module metadata.ShaderModule) {
	f.destroy("shader-module", uint64(module))
}

func (f *fakeBackend) CreateRenderPass(format metadata.Format) (metadata.RenderPass, error) {
	return metadata.RenderPass(f.create("render-pass")), nil
}

func (f *fakeBackend) DestroyRenderPass(pass metadata.RenderPass) {
	f.destroy("render-pass", uint64(pass))
}

func (f *fakeBackend) CreateDescriptorSetLayout() (metadata.DescriptorSetLayout, error) {
	return metadata.DescriptorSetLayout(f.create("descriptor-set-layout")), nil
}

func (f *fakeBackend) DestroyDescriptorSetLayout(layout metadata.DescriptorSetLayout) {
	f.destroy("descriptor-set-layout", uint64(layout))
}

func (f *fakeBackend) CreatePipelineLayout(setLayout metadata.DescriptorSetLayout) (metadata.PipelineLayout, error) {
	return metadata.PipelineLayout(f.create("pipeline-layout")), nil
}

func (f *fakeBackend) DestroyPipelineLayout(layout metadata.PipelineLayout) {
	f.destroy("pipeline-layout", uint64(layout))
}

func (f *fakeBackend) CreateGraphicsPipeline(config metadata.PipelineConfig) (metadata.Pipeline, error) {
	if !f.live["shader-module"][uint64(config.VertexShader)] || !f.live["shader-module"][uint64(config.FragmentShader)] {
		return 0, fmt.Errorf("pipeline with destroyed shader modules")
	}
	if f.rejectShader != 0 && (config.VertexShader == f.rejectShader || config.FragmentShader == f.rejectShader) {
		return 0, fmt.Errorf("shader module %d failed to link", f.rejectShader)
	}
	return metadata.Pipeline(f.create("pipeline")), nil
}

func (f *fakeBackend) DestroyPipeline(pipeline metadata.Pipeline) {
	f.destroy("pipeline", uint64(pipeline))
}

func (f *fakeBackend) CreateFramebuffer(pass metadata.RenderPass, view metadata.ImageView, extent metadata.Extent2D) (metadata.Framebuffer, error) {
	fb := metadata.Framebuffer(f.create("framebuffer"))
	f.framebuffer[fb] = extent
	return fb, nil
}

func (f *fakeBackend) DestroyFramebuffer(framebuffer metadata.Framebuffer) {
	f.destroy("framebuffer", uint64(framebuffer))
	delete(f.framebuffer, framebuffer)
}

// DescriptorBackend

func (f *fakeBackend) CreateDescriptorPool(count uint32) (metadata.DescriptorPool, error) {
	return metadata.DescriptorPool(f.create("descriptor-pool")), nil
}

func (f *fakeBackend) DestroyDescriptorPool(pool metadata.DescriptorPool) {
	f.destroy("descriptor-pool", uint64(pool))
	for _, set := range f.poolSets[pool] {
		delete(f.descriptors, set)
	}
	delete(f.poolSets, pool)
}

func (f *fakeBackend) AllocateDescriptorSets(pool metadata.DescriptorPool, layout metadata.DescriptorSetLayout, count uint32) ([]metadata.DescriptorSet, error) {
	out := make([]metadata.DescriptorSet, count)
	for i := range out {
		f.nextID++
		out[i] = metadata.DescriptorSet(f.nextID)
	}
	f.poolSets[pool] = out
	return out, nil
}

func (f *fakeBackend) WriteUniformDescriptor(set metadata.DescriptorSet, buffer metadata.Buffer, size uint64) {
	if b, ok := f.buffers[buffer]; !ok || !b.usage.Has(metadata.BufferUsageUniform) {
		f.t.Errorf("descriptor %d written with buffer %d that is not a uniform buffer", set, buffer)
	}
	f.descriptors[set] = buffer
}

func (f *fakeBackend) Shutdown() error {
	f.log = append(f.log, "shutdown")
	f.shutdown = true
	return nil
}

type fakeSurface struct {
	width, height uint32
}

func (s *fakeSurface) FramebufferSize() (uint32, uint32) {
	return s.width, s.height
}
