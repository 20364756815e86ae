package metadata

import "strings"

// BufferUsage is the set of ways a buffer may be used.
type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 1 << iota
	BufferUsageTransferDst
	BufferUsageUniform
	BufferUsageIndex
	BufferUsageVertex
)

func (u BufferUsage) Has(flags BufferUsage) bool {
	return u&flags == flags
}

func (u BufferUsage) String() string {
	return flagNames(uint32(u), []string{"transfer-src", "transfer-dst", "uniform", "index", "vertex"})
}

// MemoryProperty is the set of properties of a memory type.
type MemoryProperty uint32

const (
	MemoryPropertyDeviceLocal MemoryProperty = 1 << iota
	MemoryPropertyHostVisible
	MemoryPropertyHostCoherent
	MemoryPropertyHostCached
)

// Has reports whether every property of flags is present.
func (p MemoryProperty) Has(flags MemoryProperty) bool {
	return p&flags == flags
}

func (p MemoryProperty) String() string {
	return flagNames(uint32(p), []string{"device-local", "host-visible", "host-coherent", "host-cached"})
}

// PipelineStage names the stage a semaphore wait blocks.
type PipelineStage uint32

const (
	PipelineStageTopOfPipe PipelineStage = 1 << iota
	PipelineStageTransfer
	PipelineStageColorAttachmentOutput
	PipelineStageBottomOfPipe
)

func (s PipelineStage) String() string {
	return flagNames(uint32(s), []string{"top-of-pipe", "transfer", "color-attachment-output", "bottom-of-pipe"})
}

func flagNames(v uint32, names []string) string {
	if v == 0 {
		return "none"
	}
	parts := []string{}
	for i, n := range names {
		if v&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}
