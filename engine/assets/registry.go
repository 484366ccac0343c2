package assets

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
)

// TextureLoader loads a file-backed texture and returns its shader view.
type TextureLoader func(path string) (gpu.ShaderResourceView, error)

// Registry is an in-memory store implementing every resolver. Registration and
// resolution are safe for concurrent use: the producer resolves meshes at submission
// while the render goroutine resolves materials, shaders and textures.
type Registry struct {
	mu *sync.RWMutex

	meshes    map[HandleID]*Mesh
	materials map[HandleID]*Material
	shaders   map[HandleID]*Shader
	textures  map[HandleID]gpu.ShaderResourceView
	system    map[string]gpu.ShaderResourceView

	loadTexture TextureLoader
}

var _ MeshResolver = (*Registry)(nil)
var _ MaterialResolver = (*Registry)(nil)
var _ ShaderResolver = (*Registry)(nil)
var _ TextureResolver = (*Registry)(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTextureLoader sets the function used to load file-backed textures on first use.
//
// Parameters:
//   - fn: the loader
//
// Returns:
//   - RegistryOption: option function to apply
func WithTextureLoader(fn TextureLoader) RegistryOption {
	return func(r *Registry) {
		r.loadTexture = fn
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		mu:        &sync.RWMutex{},
		meshes:    make(map[HandleID]*Mesh),
		materials: make(map[HandleID]*Material),
		shaders:   make(map[HandleID]*Shader),
		textures:  make(map[HandleID]gpu.ShaderResourceView),
		system:    make(map[string]gpu.ShaderResourceView),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// AddMesh registers a mesh under m.Name, replacing any previous one. The stored copy is returned.
func (r *Registry) AddMesh(m Mesh) *Mesh {
	m.ID = NewHandleID("mesh", m.Name)
	stored := &m
	r.mu.Lock()
	r.meshes[m.ID] = stored
	r.mu.Unlock()
	return stored
}

// AddMaterial registers a material under m.Name, replacing any previous one.
func (r *Registry) AddMaterial(m Material) *Material {
	m.ID = NewHandleID("material", m.Name)
	stored := &m
	r.mu.Lock()
	r.materials[m.ID] = stored
	r.mu.Unlock()
	return stored
}

// AddShader registers a shader under s.Name, replacing any previous one.
func (r *Registry) AddShader(s Shader) *Shader {
	s.ID = NewHandleID("shader", s.Name)
	stored := &s
	r.mu.Lock()
	r.shaders[s.ID] = stored
	r.mu.Unlock()
	return stored
}

// SetShaderState moves a registered shader to a new load state.
//
// Returns:
//   - error: ErrNotFound if no shader has that name
func (r *Registry) SetShaderState(name string, state ShaderLoadState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shaders[NewHandleID("shader", name)]
	if !ok {
		return fmt.Errorf("shader %q: %w", name, ErrNotFound)
	}
	cp := *s
	cp.State = state
	r.shaders[cp.ID] = &cp
	return nil
}

// AddTexture registers a file-backed texture view under name.
func (r *Registry) AddTexture(name string, view gpu.ShaderResourceView) {
	r.mu.Lock()
	r.textures[NewHandleID("texture", name)] = view
	r.mu.Unlock()
}

// AddSystemTexture registers a system-managed view. name must be bracketed.
//
// Returns:
//   - error: if name is not a bracketed system name
func (r *Registry) AddSystemTexture(name string, view gpu.ShaderResourceView) error {
	if !IsSystemName(name) {
		return fmt.Errorf("system texture name %q must be bracketed", name)
	}
	r.mu.Lock()
	r.system[name] = view
	r.mu.Unlock()
	return nil
}

func (r *Registry) ResolveMesh(name string) (*Mesh, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meshes[NewHandleID("mesh", name)]
	if !ok {
		return nil, fmt.Errorf("mesh %q: %w", name, ErrNotFound)
	}
	return m, nil
}

func (r *Registry) ResolveMaterial(name string) (*Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.materials[NewHandleID("material", name)]
	if !ok {
		return nil, fmt.Errorf("material %q: %w", name, ErrNotFound)
	}
	return m, nil
}

func (r *Registry) ResolveShader(name string) (*Shader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shaders[NewHandleID("shader", name)]
	if !ok {
		return nil, fmt.Errorf("shader %q: %w", name, ErrNotFound)
	}
	if s.State != ShaderReady {
		return nil, fmt.Errorf("shader %q is %s: %w", name, s.State, ErrShaderNotReady)
	}
	return s, nil
}

// ResolveTexture resolves a texture view. Bracketed names only consult system textures.
// Other names are served from the cache, loading through the TextureLoader on first use.
func (r *Registry) ResolveTexture(name string) (gpu.ShaderResourceView, error) {
	if IsSystemName(name) {
		r.mu.RLock()
		defer r.mu.RUnlock()
		v, ok := r.system[name]
		if !ok {
			return 0, fmt.Errorf("system texture %s: %w", name, ErrNotFound)
		}
		return v, nil
	}

	id := NewHandleID("texture", name)
	r.mu.RLock()
	v, ok := r.textures[id]
	r.mu.RUnlock()
	if ok {
		return v, nil
	}
	if r.loadTexture == nil {
		return 0, fmt.Errorf("texture %q: %w", name, ErrNotFound)
	}

	v, err := r.loadTexture(name)
	if err != nil {
		return 0, fmt.Errorf("load texture %q: %w", name, err)
	}
	r.mu.Lock()
	r.textures[id] = v
	r.mu.Unlock()
	return v, nil
}
