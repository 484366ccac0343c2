package deferred

import "github.com/Carmen-Shannon/helix/common"

// QuadVertex is one full-screen quad vertex: clip-space position and texture coordinate.
type QuadVertex struct {
	Position [3]float32
	UV       [2]float32
}

// QuadVertexStride is the size of a QuadVertex in bytes.
const QuadVertexStride = 20

// QuadIndexCount is the number of indices drawn per light.
const QuadIndexCount = 4

// QuadVertices returns the four corners of the full-screen quad.
//
// Returns:
//   - []QuadVertex: bottom-left, top-left, top-right, bottom-right
func QuadVertices() []QuadVertex {
	return []QuadVertex{
		{Position: [3]float32{-1, -1, 0}, UV: [2]float32{0, 1}},
		{Position: [3]float32{-1, 1, 0}, UV: [2]float32{0, 0}},
		{Position: [3]float32{1, 1, 0}, UV: [2]float32{1, 0}},
		{Position: [3]float32{1, -1, 0}, UV: [2]float32{1, 1}},
	}
}

// QuadIndices returns the triangle-strip indices of the full-screen quad.
//
// Returns:
//   - []uint16: {1, 2, 0, 3}
func QuadIndices() []uint16 {
	return []uint16{1, 2, 0, 3}
}

// QuadVertexBytes returns the quad vertices ready for buffer upload.
func QuadVertexBytes() []byte {
	return common.SliceToBytes(QuadVertices())
}

// QuadIndexBytes returns the quad indices ready for buffer upload.
func QuadIndexBytes() []byte {
	return common.SliceToBytes(QuadIndices())
}
