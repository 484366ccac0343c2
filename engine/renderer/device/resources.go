package device

import (
	"fmt"

	"github.com/Carmen-Shannon/helix/common"
	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/Carmen-Shannon/helix/engine/renderer/gpu"
	"github.com/Carmen-Shannon/helix/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/helix/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// RegisterShader compiles a reflected program and registers it. The registry entry walks
// through the load states: Loading while the module is compiled, NeedsProcessing while the
// stage and layout handles are created, then Ready.
//
// Parameters:
//   - reg: the registry to add the shader to
//   - p: the reflected program
//
// Returns:
//   - *assets.Shader: the registered shader
//   - error: a compilation error; the shader stays registered in its last state
func (d *WGPUDevice) RegisterShader(reg *assets.Registry, p *shader.Program) (*assets.Shader, error) {
	reg.AddShader(assets.Shader{Name: p.Name, State: assets.ShaderLoading})

	d.mu.Lock()
	defer d.mu.Unlock()

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", p.Name, err)
	}
	d.modules = append(d.modules, module)
	if err := reg.SetShaderState(p.Name, assets.ShaderNeedsProcessing); err != nil {
		return nil, err
	}

	vs := d.id()
	d.stages[vs] = pipeline.Stage{Module: module, Entry: p.VertexEntry}
	ps := d.id()
	d.stages[ps] = pipeline.Stage{Module: module, Entry: p.FragmentEntry}
	layout := d.id()
	d.layouts[layout] = p.VertexLayout

	s := reg.AddShader(assets.Shader{
		Name:         p.Name,
		VS:           gpu.VertexShader(vs),
		PS:           gpu.PixelShader(ps),
		InputLayout:  gpu.InputLayout(layout),
		VertexStride: p.VertexStride(),
		State:        assets.ShaderReady,
	})
	d.logger.Debug("shader registered", "name", p.Name, "stride", s.VertexStride)
	return s, nil
}

// CreateMesh uploads vertex and 16-bit index data and registers the mesh.
//
// Parameters:
//   - reg: the registry to add the mesh to
//   - name: the mesh name
//   - material: the material the mesh is drawn with
//   - vertices: interleaved vertex data matching the material's shader layout
//   - indices: the triangle list indices
//
// Returns:
//   - *assets.Mesh: the registered mesh
//   - error: a buffer creation error
func (d *WGPUDevice) CreateMesh(reg *assets.Registry, name, material string, vertices []byte, indices []uint16) (*assets.Mesh, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vb, err := d.newBuffer(name+" vertices", vertices, wgpu.BufferUsageVertex)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", name, err)
	}
	ib, err := d.newBuffer(name+" indices", common.SliceToBytes(indices), wgpu.BufferUsageIndex)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", name, err)
	}
	return reg.AddMesh(assets.Mesh{
		Name:         name,
		VertexBuffer: gpu.Buffer(vb),
		IndexBuffer:  gpu.Buffer(ib),
		IndexCount:   uint32(len(indices)),
		MaterialName: material,
	}), nil
}

// CreateTexture uploads decoded pixels as a sampled sRGB texture.
//
// Parameters:
//   - label: the debug label
//   - img: the pixels
//
// Returns:
//   - gpu.ShaderResourceView: the texture's view
//   - error: a creation error
func (d *WGPUDevice) CreateTexture(label string, img common.RGBAImage) (gpu.ShaderResourceView, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Pix) < img.BytesPerRow()*img.Height {
		return 0, fmt.Errorf("texture %q: invalid %dx%d image", label, img.Width, img.Height)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.newTexture(label, img.Pix, img.Width, img.Height)
	if err != nil {
		return 0, fmt.Errorf("texture %q: %w", label, err)
	}
	return gpu.ShaderResourceView(id), nil
}

// LoadTexture decodes an image file and uploads it. Its signature matches assets.TextureLoader.
//
// Parameters:
//   - path: the PNG or JPEG file
//
// Returns:
//   - gpu.ShaderResourceView: the texture's view
//   - error: a read, decode or creation error
func (d *WGPUDevice) LoadTexture(path string) (gpu.ShaderResourceView, error) {
	img, err := common.LoadRGBA(path, d.maxTextureSize)
	if err != nil {
		return 0, err
	}
	return d.CreateTexture(path, img)
}
