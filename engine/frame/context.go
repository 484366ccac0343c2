package frame

import (
	"github.com/Carmen-Shannon/helix/common"
	"github.com/Carmen-Shannon/helix/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// Context is the derived per-frame data for one submission slot. It is built once when the
// slot is sealed and read only by the render goroutine afterwards.
//
// Matrices are column-major and act on column vectors, so the combined view-projection
// is Proj * View.
type Context struct {
	View        mgl32.Mat4
	Proj        mgl32.Mat4
	InvView     mgl32.Mat4
	View3x3     mgl32.Mat4
	ViewProj    mgl32.Mat4
	InvViewProj mgl32.Mat4
	InvProj     mgl32.Mat4

	Scalars Scalars

	Ambient      mgl32.Vec3
	SunColor     mgl32.Vec3
	SunDirection mgl32.Vec3 // direction towards the sun (the negated light direction)
}

// Build derives a frame Context from the submitted matrices, the camera scalars and the
// lighting environment. A singular matrix yields a zero inverse.
//
// Parameters:
//   - view: the view matrix
//   - proj: the projection matrix
//   - scalars: camera scalars from ComputeScalars
//   - env: the lighting environment
//
// Returns:
//   - Context: the frame context
func Build(view, proj mgl32.Mat4, scalars Scalars, env light.Environment) Context {
	viewProj := proj.Mul4(view)
	return Context{
		View:         view,
		Proj:         proj,
		InvView:      view.Inv(),
		View3x3:      common.Upper3x3(view),
		ViewProj:     viewProj,
		InvViewProj:  viewProj.Inv(),
		InvProj:      proj.Inv(),
		Scalars:      scalars,
		Ambient:      env.Ambient,
		SunColor:     env.SunColor,
		SunDirection: env.SunDirection.Mul(-1),
	}
}

// Constants returns the frame constant block for c.
func (c *Context) Constants() FrameConstants {
	return FrameConstants{
		View:          c.View,
		Proj:          c.Proj,
		InvView:       c.InvView,
		View3x3:       c.View3x3,
		InvViewProj:   c.InvViewProj,
		InvProj:       c.InvProj,
		SunColor:      c.SunColor.Vec4(0),
		SunDirection:  c.SunDirection.Vec4(0),
		Ambient:       c.Ambient.Vec4(1),
		Near:          c.Scalars.Near,
		Far:           c.Scalars.Far,
		ImageWidth:    c.Scalars.ImageWidth,
		ImageHeight:   c.Scalars.ImageHeight,
		InvTanHalfFOV: c.Scalars.InvTanHalfFOV,
		ViewAspect:    c.Scalars.ViewAspect,
	}
}

// ObjectConstants computes the per-object constant block for a world matrix in this frame.
//
// WorldViewIT is the upper 3x3 of WorldView, which equals its inverse transpose up to scale
// as long as world matrices carry no non-uniform scale.
//
// Parameters:
//   - world: the object's world matrix
//
// Returns:
//   - ObjectConstants: the constant block
func (c *Context) ObjectConstants(world mgl32.Mat4) ObjectConstants {
	worldView := c.View.Mul4(world)
	worldViewProj := c.Proj.Mul4(worldView)
	return ObjectConstants{
		WorldView:        worldView,
		WorldViewIT:      common.Upper3x3(worldView),
		InvWorldViewProj: worldViewProj.Inv(),
	}
}
