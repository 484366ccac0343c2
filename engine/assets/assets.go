// Package assets defines how the renderer turns names into GPU resources: mesh, material,
// shader and texture resolvers, plus an in-memory Registry implementing all four.
package assets

import (
	"errors"
	"strings"

	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
)

// ErrNotFound is returned by a resolver when no resource is registered under the name.
var ErrNotFound = errors.New("asset not found")

// ErrShaderNotReady is returned when a shader exists but has not finished loading.
var ErrShaderNotReady = errors.New("shader not ready")

// Mesh is a resolved mesh. A Mesh is immutable once registered.
type Mesh struct {
	ID           HandleID
	Name         string
	VertexBuffer gpu.Buffer
	IndexBuffer  gpu.Buffer
	IndexCount   uint32
	MaterialName string
}

// Material binds a shader to an optional texture.
type Material struct {
	ID          HandleID
	Name        string
	ShaderName  string
	TextureName string // empty when the material samples no texture
}

// HasTexture reports whether the material names a texture.
func (m *Material) HasTexture() bool {
	return m.TextureName != ""
}

// ShaderLoadState tracks where a shader is in its load pipeline.
type ShaderLoadState int

const (
	// ShaderUnloaded is the state of a shader that has been named but not requested.
	ShaderUnloaded ShaderLoadState = iota
	// ShaderLoading means the program source is being read.
	ShaderLoading
	// ShaderNeedsProcessing means the source is loaded and device objects still need to be created.
	ShaderNeedsProcessing
	// ShaderReady means the program pair and input layout are usable.
	ShaderReady
)

func (s ShaderLoadState) String() string {
	switch s {
	case ShaderUnloaded:
		return "Unloaded"
	case ShaderLoading:
		return "Loading"
	case ShaderNeedsProcessing:
		return "NeedsProcessing"
	case ShaderReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// Shader is a vertex/pixel program pair with the input layout it expects.
type Shader struct {
	ID           HandleID
	Name         string
	VS           gpu.VertexShader
	PS           gpu.PixelShader
	InputLayout  gpu.InputLayout
	VertexStride uint32
	State        ShaderLoadState
}

// MeshResolver resolves mesh names.
type MeshResolver interface {
	ResolveMesh(name string) (*Mesh, error)
}

// MaterialResolver resolves material names.
type MaterialResolver interface {
	ResolveMaterial(name string) (*Material, error)
}

// ShaderResolver resolves shader names.
type ShaderResolver interface {
	ResolveShader(name string) (*Shader, error)
}

// TextureResolver resolves texture names to shader-readable views.
// Names wrapped in brackets, like "[backbuffer]", denote system-managed targets
// and are never loaded from files.
type TextureResolver interface {
	ResolveTexture(name string) (gpu.ShaderResourceView, error)
}

// Resolvers bundles the four resolvers the renderer needs.
type Resolvers struct {
	Meshes    MeshResolver
	Materials MaterialResolver
	Shaders   ShaderResolver
	Textures  TextureResolver
}

// FromRegistry returns Resolvers that all resolve through r.
func FromRegistry(r *Registry) Resolvers {
	return Resolvers{Meshes: r, Materials: r, Shaders: r, Textures: r}
}

// Validate reports a missing resolver.
func (r Resolvers) Validate() error {
	switch {
	case r.Meshes == nil:
		return errors.New("assets: mesh resolver is nil")
	case r.Materials == nil:
		return errors.New("assets: material resolver is nil")
	case r.Shaders == nil:
		return errors.New("assets: shader resolver is nil")
	case r.Textures == nil:
		return errors.New("assets: texture resolver is nil")
	}
	return nil
}

// IsSystemName reports whether name denotes a system-managed texture, written as "[name]".
func IsSystemName(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]")
}

// System texture names registered by the renderer for its own targets.
const (
	SystemBackBuffer        = "[backbuffer]"
	SystemAlbedoShader      = "[albedoshader]"
	SystemNormalShader      = "[normalshader]"
	SystemDepthShader       = "[depthshader]"
	SystemDepthStencilInput = "[depthstencilshader]"
)
