package frame

import (
	"github.com/Carmen-Shannon/helix/common"
	"github.com/go-gl/mathgl/mgl32"
)

// FrameConstantsSize is the std140 size of FrameConstants in bytes.
const FrameConstantsSize = 464

// ObjectConstantsSize is the std140 size of ObjectConstants in bytes.
const ObjectConstantsSize = 192

// FrameConstants is the per-frame constant block bound at the frame slot for both stages.
//
// Layout (std140, 464 bytes):
//
//	  0 view         64 proj        128 invView
//	192 view3x3     256 invViewProj 320 invProj
//	384 sunColor    400 sunDirection 416 ambient
//	432 near, far, imageWidth, imageHeight, invTanHalfFOV, viewAspect
//	456 padding
type FrameConstants struct {
	View        mgl32.Mat4
	Proj        mgl32.Mat4
	InvView     mgl32.Mat4
	View3x3     mgl32.Mat4
	InvViewProj mgl32.Mat4
	InvProj     mgl32.Mat4

	SunColor     mgl32.Vec4
	SunDirection mgl32.Vec4
	Ambient      mgl32.Vec4

	Near          float32
	Far           float32
	ImageWidth    float32
	ImageHeight   float32
	InvTanHalfFOV float32
	ViewAspect    float32
}

// Marshal serializes the block for GPU upload.
//
// Returns:
//   - []byte: FrameConstantsSize bytes
func (f *FrameConstants) Marshal() []byte {
	buf := make([]byte, FrameConstantsSize)
	off := 0
	for _, m := range []mgl32.Mat4{f.View, f.Proj, f.InvView, f.View3x3, f.InvViewProj, f.InvProj} {
		off += common.PutMat4(buf[off:], m)
	}
	for _, v := range []mgl32.Vec4{f.SunColor, f.SunDirection, f.Ambient} {
		off += common.PutVec4(buf[off:], v)
	}
	for _, s := range []float32{f.Near, f.Far, f.ImageWidth, f.ImageHeight, f.InvTanHalfFOV, f.ViewAspect} {
		off += common.PutFloat32(buf[off:], s)
	}
	return buf
}

// ObjectConstants is the per-object constant block bound at the object slot for both stages.
//
// Layout (std140, 192 bytes): worldView, worldViewIT, invWorldViewProj.
type ObjectConstants struct {
	WorldView        mgl32.Mat4
	WorldViewIT      mgl32.Mat4
	InvWorldViewProj mgl32.Mat4
}

// MarshalTo writes the block into buf, which must hold ObjectConstantsSize bytes.
func (o *ObjectConstants) MarshalTo(buf []byte) {
	off := common.PutMat4(buf, o.WorldView)
	off += common.PutMat4(buf[off:], o.WorldViewIT)
	common.PutMat4(buf[off:], o.InvWorldViewProj)
}

// Marshal serializes the block for GPU upload.
//
// Returns:
//   - []byte: ObjectConstantsSize bytes
func (o *ObjectConstants) Marshal() []byte {
	buf := make([]byte, ObjectConstantsSize)
	o.MarshalTo(buf)
	return buf
}
