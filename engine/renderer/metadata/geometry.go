package metadata

import (
	"encoding/binary"
	gomath "math"

	"github.com/spaghettifunk/vkquad/engine/math"
)

/**
 * @brief A single vertex of the quad: a 2d position followed by an rgb colour.
 */
type Vertex struct {
	Pos   [2]float32
	Color [3]float32
}

// Size in bytes of one encoded Vertex.
const VertexStride = 5 * 4

// Size in bytes of one encoded index.
const IndexSize = 2

var QuadVertices = []Vertex{
	{Pos: [2]float32{-0.5, -0.5}, Color: [3]float32{1.0, 0.0, 0.0}},
	{Pos: [2]float32{0.5, -0.5}, Color: [3]float32{0.0, 1.0, 0.0}},
	{Pos: [2]float32{0.5, 0.5}, Color: [3]float32{0.0, 0.0, 1.0}},
	{Pos: [2]float32{-0.5, 0.5}, Color: [3]float32{1.0, 1.0, 1.0}},
}

var QuadIndices = []uint16{0, 1, 2, 2, 3, 0}

// VertexBytes encodes the vertices in the layout the vertex input state describes.
func VertexBytes(vertices []Vertex) []byte {
	out := make([]byte, 0, len(vertices)*VertexStride)
	for _, v := range vertices {
		out = appendFloats(out, v.Pos[:]...)
		out = appendFloats(out, v.Color[:]...)
	}
	return out
}

func IndexBytes(indices []uint16) []byte {
	out := make([]byte, 0, len(indices)*IndexSize)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}

/**
 * @brief The per-image uniform block read by the vertex shader at binding 0.
 */
type UniformBufferObject struct {
	Model math.Mat4
	View  math.Mat4
	Proj  math.Mat4
}

// Size in bytes of an encoded UniformBufferObject.
const UniformBufferObjectSize = 3 * 16 * 4

func NewUniformBufferObject() UniformBufferObject {
	return UniformBufferObject{
		Model: math.NewMat4Identity(),
		View:  math.NewMat4Identity(),
		Proj:  math.NewMat4Identity(),
	}
}

func (u UniformBufferObject) Bytes() []byte {
	out := make([]byte, 0, UniformBufferObjectSize)
	out = appendFloats(out, u.Model.Data[:]...)
	out = appendFloats(out, u.View.Data[:]...)
	out = appendFloats(out, u.Proj.Data[:]...)
	return out
}

func appendFloats(b []byte, fs ...float32) []byte {
	for _, f := range fs {
		b = binary.LittleEndian.AppendUint32(b, gomath.Float32bits(f))
	}
	return b
}
