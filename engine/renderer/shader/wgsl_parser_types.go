package shader

import "github.com/cogentcore/webgpu/wgpu"

// vertexFormatInfo is a vertex attribute format with its byte size.
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// blockLayout is the host-shareable size and alignment of a WGSL type.
type blockLayout struct {
	size  uint64
	align uint64
}

// parsedField is one member of a WGSL struct.
type parsedField struct {
	name      string
	typeName  string
	location  int // -1 when the member has no @location
	isBuiltin bool
}

// parsedStruct is a WGSL struct declaration.
type parsedStruct struct {
	name   string
	fields []parsedField
}
