// Package shader reflects WGSL programs: it finds the vertex and fragment entry points,
// derives the vertex buffer layout from the vertex input struct and computes the sizes of
// the constant blocks so they can be checked against the host-side structs.
package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoEntryPoint is returned when a module lacks a vertex or fragment entry point.
	ErrNoEntryPoint = errors.New("missing entry point")
	// ErrNoVertexInput is returned when no struct describes the vertex stream.
	ErrNoVertexInput = errors.New("missing vertex input struct")
	// ErrBlockSize is returned when a constant block disagrees with its host-side size.
	ErrBlockSize = errors.New("constant block size mismatch")
)

// Program is a parsed WGSL module with one vertex and one fragment entry point.
type Program struct {
	Name          string
	Source        string
	VertexEntry   string
	FragmentEntry string
	VertexLayout  wgpu.VertexBufferLayout

	blocks map[string]blockLayout
}

// Parse reflects WGSL source.
//
// Parameters:
//   - name: the program name, used in errors and labels
//   - source: the WGSL source
//
// Returns:
//   - *Program: the reflected program
//   - error: wraps ErrNoEntryPoint or ErrNoVertexInput
func Parse(name, source string) (*Program, error) {
	cleaned := stripComments(source)
	p := &Program{
		Name:          name,
		Source:        source,
		VertexEntry:   parseEntryPoint(cleaned, stageVertex),
		FragmentEntry: parseEntryPoint(cleaned, stageFragment),
	}
	if p.VertexEntry == "" {
		return nil, fmt.Errorf("shader %q: vertex: %w", name, ErrNoEntryPoint)
	}
	if p.FragmentEntry == "" {
		return nil, fmt.Errorf("shader %q: fragment: %w", name, ErrNoEntryPoint)
	}

	structs := parseStructBlocks(cleaned)
	layout, ok := parseVertexLayout(structs)
	if !ok {
		return nil, fmt.Errorf("shader %q: %w", name, ErrNoVertexInput)
	}
	p.VertexLayout = layout
	p.blocks = computeBlockLayouts(structs)
	return p, nil
}

// Load reads and reflects a WGSL file.
//
// Parameters:
//   - name: the program name
//   - path: the file to read
//
// Returns:
//   - *Program: the reflected program
//   - error: a read or Parse error
func Load(name, path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w", name, err)
	}
	return Parse(name, string(src))
}

// VertexStride returns the byte stride of one vertex.
func (p *Program) VertexStride() uint32 {
	return uint32(p.VertexLayout.ArrayStride)
}

// BlockSize returns the size of a struct as laid out in a uniform buffer.
//
// Parameters:
//   - structName: the WGSL struct name
//
// Returns:
//   - uint64: the size in bytes
//   - bool: false when the struct is unknown or is not host-shareable
func (p *Program) BlockSize(structName string) (uint64, bool) {
	l, ok := p.blocks[structName]
	return l.size, ok
}

// CheckBlock verifies that a struct has the size the host serializes.
//
// Parameters:
//   - structName: the WGSL struct name
//   - want: the host-side size in bytes
//
// Returns:
//   - error: wraps ErrBlockSize on mismatch or when the struct is missing
func (p *Program) CheckBlock(structName string, want uint64) error {
	got, ok := p.BlockSize(structName)
	if !ok {
		return fmt.Errorf("shader %q: struct %s not found: %w", p.Name, structName, ErrBlockSize)
	}
	if got != want {
		return fmt.Errorf("shader %q: struct %s is %d bytes, host writes %d: %w", p.Name, structName, got, want, ErrBlockSize)
	}
	return nil
}
