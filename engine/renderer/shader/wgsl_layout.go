package shader

import (
	"strconv"
	"strings"
)

// wgslPrimitiveLayoutMap holds size and alignment of the types a constant block may contain.
var wgslPrimitiveLayoutMap = map[string]blockLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2<f32>":   {8, 8},
	"vec2f":       {8, 8},
	"vec3<f32>":   {12, 16},
	"vec3f":       {12, 16},
	"vec4<f32>":   {16, 16},
	"vec4f":       {16, 16},
	"vec4<u32>":   {16, 16},
	"vec4u":       {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

func roundUp(align, v uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// resolveLayout resolves a primitive, a known struct or a fixed-size array of either.
func resolveLayout(typeName string, known map[string]blockLayout) (blockLayout, bool) {
	if l, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return blockLayout{}, false
	}
	parts := strings.SplitN(typeName[6:len(typeName)-1], ",", 2)
	if len(parts) != 2 {
		return blockLayout{}, false
	}
	elem, ok := resolveLayout(strings.TrimSpace(parts[0]), known)
	if !ok {
		return blockLayout{}, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return blockLayout{}, false
	}
	// uniform arrays have a 16-byte element stride
	stride := roundUp(16, roundUp(elem.align, elem.size))
	return blockLayout{size: n * stride, align: max(elem.align, 16)}, true
}

// structLayout lays out members at their aligned offsets and rounds the total up to
// the largest member alignment. Uniform structs are additionally aligned to 16 bytes.
func structLayout(ps parsedStruct, known map[string]blockLayout) (blockLayout, bool) {
	var offset uint64
	maxAlign := uint64(16)
	for _, f := range ps.fields {
		if f.isBuiltin || f.location >= 0 {
			return blockLayout{}, false
		}
		l, ok := resolveLayout(f.typeName, known)
		if !ok {
			return blockLayout{}, false
		}
		offset = roundUp(l.align, offset) + l.size
		maxAlign = max(maxAlign, l.align)
	}
	return blockLayout{size: roundUp(maxAlign, offset), align: maxAlign}, true
}

// computeBlockLayouts resolves every struct that can live in a uniform buffer, iterating
// until nested struct members are resolved. Vertex input and output structs are skipped.
func computeBlockLayouts(structs []parsedStruct) map[string]blockLayout {
	resolved := make(map[string]blockLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)
	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if l, ok := structLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}
