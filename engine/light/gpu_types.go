package light

import (
	"unsafe"

	"github.com/Carmen-Shannon/helix/common"
	"github.com/go-gl/mathgl/mgl32"
)

// PointLightConstants is the per-light constant block bound at the light constant slot.
// Size: 48 bytes (std140: two vec4 and a scalar padded to 16).
type PointLightConstants struct {
	Position mgl32.Vec4 // offset  0: world-space position, w = 1
	Color    mgl32.Vec4 // offset 16: linear color, w = 1
	Radius   float32    // offset 32
	_pad     [3]float32 // offset 36: padding to 48
}

// NewPointLightConstants builds the constant block for l. A non-positive radius uploads
// DefaultPointRadius.
//
// Parameters:
//   - l: the point light
//
// Returns:
//   - PointLightConstants: the constant block
func NewPointLightConstants(l Light) PointLightConstants {
	radius := l.Radius
	if radius <= 0 {
		radius = DefaultPointRadius
	}
	return PointLightConstants{
		Position: l.Position.Vec4(1),
		Color:    l.Color.Vec4(1),
		Radius:   radius,
	}
}

// Size returns the size of the PointLightConstants struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (p *PointLightConstants) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the constant block into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (p *PointLightConstants) Marshal() []byte {
	buf := make([]byte, 48)
	off := common.PutVec4(buf, p.Position)
	off += common.PutVec4(buf[off:], p.Color)
	common.PutFloat32(buf[off:], p.Radius)
	return buf
}
