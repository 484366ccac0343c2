package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Mat4Size is the byte size of a marshaled 4x4 float32 matrix.
const Mat4Size = 64

// Vec4Size is the byte size of a marshaled 4-component float32 vector.
const Vec4Size = 16

// Upper3x3 returns m with its translation components and the homogeneous row cleared,
// and the bottom-right element set to 1. Matrices are column-major (mgl32 convention).
//
// Used for normal transforms. For matrices without non-uniform scale the upper 3x3
// is its own inverse-transpose up to scale, so the result can be uploaded directly.
//
// Parameters:
//   - m: the source matrix
//
// Returns:
//   - mgl32.Mat4: the rotation/scale part of m embedded in an affine matrix
func Upper3x3(m mgl32.Mat4) mgl32.Mat4 {
	m[3], m[7], m[11] = 0, 0, 0
	m[12], m[13], m[14] = 0, 0, 0
	m[15] = 1
	return m
}

// Normalize3 returns v scaled to unit length. A zero vector is returned unchanged.
//
// Parameters:
//   - v: the vector to normalize
//
// Returns:
//   - mgl32.Vec3: the normalized vector
func Normalize3(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

// Clamp01 clamps v to the range [0, 1].
func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Align rounds n up to the next multiple of a. a must be a power of two.
func Align(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

// PutFloat32 writes f little-endian into buf and returns the number of bytes written.
func PutFloat32(buf []byte, f float32) int {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(f))
	return 4
}

// PutVec4 writes v little-endian into buf and returns the number of bytes written.
func PutVec4(buf []byte, v mgl32.Vec4) int {
	for i := 0; i < 4; i++ {
		PutFloat32(buf[i*4:], v[i])
	}
	return Vec4Size
}

// PutMat4 writes m little-endian into buf in column-major order and returns the
// number of bytes written.
//
// Parameters:
//   - buf: destination, must hold at least Mat4Size bytes
//   - m: the matrix to write
//
// Returns:
//   - int: bytes written (Mat4Size)
func PutMat4(buf []byte, m mgl32.Mat4) int {
	for i := 0; i < 16; i++ {
		PutFloat32(buf[i*4:], m[i])
	}
	return Mat4Size
}
