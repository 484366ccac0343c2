package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
)

// ErrInvalidMaterialScript is returned when a script does not define a usable Material table.
var ErrInvalidMaterialScript = errors.New("invalid material script")

// ParseMaterialScript runs a material definition script and reads its global Material table:
//
//	Material = {
//	    Shader  = "GBuffer",
//	    Texture = "bricks.png", -- optional
//	}
//
// The script runs in a state without the standard libraries.
//
// Parameters:
//   - name: the material name assigned to the result
//   - src: the Lua source
//
// Returns:
//   - Material: the parsed material (ID is assigned on registration)
//   - error: a Lua error or ErrInvalidMaterialScript
func ParseMaterialScript(name string, src io.Reader) (Material, error) {
	code, err := io.ReadAll(src)
	if err != nil {
		return Material{}, fmt.Errorf("read material %q: %w", name, err)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	if err := L.DoString(string(code)); err != nil {
		return Material{}, fmt.Errorf("run material %q: %w", name, err)
	}

	tbl, ok := L.GetGlobal("Material").(*lua.LTable)
	if !ok {
		return Material{}, fmt.Errorf("material %q: no Material table: %w", name, ErrInvalidMaterialScript)
	}

	shader, ok := tbl.RawGetString("Shader").(lua.LString)
	if !ok || shader == "" {
		return Material{}, fmt.Errorf("material %q: Shader must be a non-empty string: %w", name, ErrInvalidMaterialScript)
	}

	mat := Material{Name: name, ShaderName: string(shader)}
	switch tex := tbl.RawGetString("Texture").(type) {
	case lua.LString:
		mat.TextureName = string(tex)
	case *lua.LNilType:
	default:
		return Material{}, fmt.Errorf("material %q: Texture must be a string: %w", name, ErrInvalidMaterialScript)
	}
	return mat, nil
}

// LoadMaterials parses <dir>/<name>.lua for each name and registers the results.
// File-backed textures named by the materials are resolved immediately so a missing
// texture surfaces at load time; bracketed names are skipped.
//
// Parameters:
//   - r: the registry to populate
//   - dir: the directory holding material scripts
//   - names: the materials to load
//
// Returns:
//   - error: the first parse or texture error
func LoadMaterials(r *Registry, dir string, names ...string) error {
	for _, name := range names {
		path := filepath.Join(dir, name+".lua")
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open material %q: %w", name, err)
		}
		mat, err := ParseMaterialScript(name, f)
		f.Close()
		if err != nil {
			return err
		}
		if mat.HasTexture() && !IsSystemName(mat.TextureName) {
			if _, err := r.ResolveTexture(mat.TextureName); err != nil {
				return fmt.Errorf("material %q: %w", name, err)
			}
		}
		r.AddMaterial(mat)
	}
	return nil
}
