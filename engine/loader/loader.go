// Package loader imports triangle meshes from glTF 2.0 files (.gltf with external or
// embedded buffers, or .glb) into the vertex format of the G-buffer shader.
package loader

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Carmen-Shannon/helix/common"
	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the size of one imported vertex: position, normal and uv as float32.
const VertexStride = 32

// ErrTooManyVertices is returned for primitives whose indices do not fit in 16 bits.
var ErrTooManyVertices = errors.New("primitive exceeds 16-bit indices")

// ErrNoMeshes is returned when a document holds no triangle primitives.
var ErrNoMeshes = errors.New("document contains no meshes")

// Mesh is one imported primitive. Triangles wind clockwise seen from outside, the front
// face of the G-buffer pipeline; glTF's counter-clockwise order is reversed on import.
type Mesh struct {
	Name      string
	Vertices  []byte // VertexStride bytes per vertex
	Indices   []uint16
	BoundsMin mgl32.Vec3
	BoundsMax mgl32.Vec3
}

// VertexCount returns the number of vertices in m.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / VertexStride
}

type vertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV     [2]float32
}

// LoadFile imports every triangle primitive of a glTF or GLB file.
//
// Parameters:
//   - path: the .gltf or .glb file; external buffers resolve relative to it
//
// Returns:
//   - []Mesh: one mesh per primitive, named after the glTF mesh
//   - error: a parse error, ErrTooManyVertices or ErrNoMeshes
func LoadFile(path string) ([]Mesh, error) {
	var p gltfParser
	if err := p.parseFile(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return p.meshes()
}

// Load imports every triangle primitive of a document read from r.
//
// Parameters:
//   - r: glTF JSON or GLB data
//   - baseDir: the directory external buffer URIs resolve against
//
// Returns:
//   - []Mesh: one mesh per primitive
//   - error: a parse error, ErrTooManyVertices or ErrNoMeshes
func Load(r io.Reader, baseDir string) ([]Mesh, error) {
	p := gltfParser{baseDir: baseDir}
	if err := p.parseReader(r); err != nil {
		return nil, err
	}
	return p.meshes()
}

// MeshCreator uploads mesh data and registers it. The WebGPU device satisfies it.
type MeshCreator interface {
	CreateMesh(reg *assets.Registry, name, material string, vertices []byte, indices []uint16) (*assets.Mesh, error)
}

// Register uploads meshes through c and registers them under their names.
//
// Parameters:
//   - c: the device
//   - reg: the registry the meshes are added to
//   - material: the material every mesh is drawn with
//   - meshes: the imported meshes
//
// Returns:
//   - []*assets.Mesh: the registered meshes in order
//   - error: the first upload error
func Register(c MeshCreator, reg *assets.Registry, material string, meshes []Mesh) ([]*assets.Mesh, error) {
	out := make([]*assets.Mesh, 0, len(meshes))
	for _, m := range meshes {
		am, err := c.CreateMesh(reg, m.Name, material, m.Vertices, m.Indices)
		if err != nil {
			return out, fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		out = append(out, am)
	}
	return out, nil
}

// meshes converts every primitive of the loaded document.
func (p *gltfParser) meshes() ([]Mesh, error) {
	var out []Mesh
	for mi, gm := range p.document.Meshes {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("mesh_%d", mi)
		}
		for pi := range gm.Primitives {
			primName := name
			if len(gm.Primitives) > 1 {
				primName = fmt.Sprintf("%s_prim%d", name, pi)
			}
			m, err := p.primitive(&gm.Primitives[pi], primName)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", primName, err)
			}
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMeshes
	}
	return out, nil
}

// primitive converts one triangle primitive. Normals are generated when absent; missing
// texture coordinates are zero.
func (p *gltfParser) primitive(prim *gltfPrimitive, name string) (Mesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
		return Mesh{}, fmt.Errorf("unsupported primitive mode: %d (only triangles supported)", *prim.Mode)
	}

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok {
		return Mesh{}, errors.New("primitive has no POSITION attribute")
	}
	positions, err := p.readFloatAccessor(posAccessor, gltfAccessorTypeVec3)
	if err != nil {
		return Mesh{}, fmt.Errorf("failed to read positions: %w", err)
	}

	count := len(positions) / 3
	if count > math.MaxUint16+1 {
		return Mesh{}, ErrTooManyVertices
	}
	vertices := make([]vertex, count)
	bmin := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	bmax := bmin.Mul(-1)
	for i := range vertices {
		pos := mgl32.Vec3{positions[3*i], positions[3*i+1], positions[3*i+2]}
		vertices[i].Pos = pos
		for c := range 3 {
			bmin[c] = min(bmin[c], pos[c])
			bmax[c] = max(bmax[c], pos[c])
		}
	}

	hasNormals := false
	if a, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := p.readFloatAccessor(a, gltfAccessorTypeVec3)
		if err != nil {
			return Mesh{}, fmt.Errorf("failed to read normals: %w", err)
		}
		for i := 0; i < count && 3*i+2 < len(normals); i++ {
			vertices[i].Normal = [3]float32{normals[3*i], normals[3*i+1], normals[3*i+2]}
		}
		hasNormals = true
	}

	if a, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := p.readFloatAccessor(a, gltfAccessorTypeVec2)
		if err != nil {
			return Mesh{}, fmt.Errorf("failed to read texcoords: %w", err)
		}
		for i := 0; i < count && 2*i+1 < len(uvs); i++ {
			vertices[i].UV = [2]float32{uvs[2*i], uvs[2*i+1]}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = p.readIndicesAccessor(*prim.Indices)
		if err != nil {
			return Mesh{}, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return Mesh{}, fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}

	out := make([]uint16, len(indices))
	for i := 0; i < len(indices); i += 3 {
		for k, idx := range [3]uint32{indices[i], indices[i+2], indices[i+1]} {
			if int(idx) >= count {
				return Mesh{}, fmt.Errorf("index %d out of range for %d vertices", idx, count)
			}
			out[i+k] = uint16(idx)
		}
	}

	if !hasNormals {
		generateNormals(vertices, out)
	}

	return Mesh{
		Name:      name,
		Vertices:  common.SliceToBytes(vertices),
		Indices:   out,
		BoundsMin: bmin,
		BoundsMax: bmax,
	}, nil
}

// generateNormals accumulates area-weighted face normals per vertex and normalizes them.
// indices wind clockwise, so the face normal is (p2 - p0) x (p1 - p0). Vertices that
// belong to no triangle get +Y.
func generateNormals(vertices []vertex, indices []uint16) {
	accum := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := mgl32.Vec3(vertices[i0].Pos)
		p1 := mgl32.Vec3(vertices[i1].Pos)
		p2 := mgl32.Vec3(vertices[i2].Pos)

		face := p2.Sub(p0).Cross(p1.Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}

	for i, n := range accum {
		if n.Len() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = n.Normalize()
	}
}
