// Package shaders embeds the WGSL programs of the deferred renderer. Every program is the
// shared binding declarations in common.wgsl followed by its own stages.
package shaders

import (
	_ "embed"
)

// Program names as registered with the asset registry.
const (
	GBufferName  = "gbuffer"
	LightingName = "deferred_lighting"
)

var (
	//go:embed common.wgsl
	common string

	//go:embed gbuffer.wgsl
	gbuffer string

	//go:embed deferred_lighting.wgsl
	lighting string
)

// GBuffer returns the source of the G-buffer program.
func GBuffer() string {
	return common + "\n" + gbuffer
}

// Lighting returns the source of the point light program.
func Lighting() string {
	return common + "\n" + lighting
}

// Sources returns every program keyed by name.
func Sources() map[string]string {
	return map[string]string{
		GBufferName:  GBuffer(),
		LightingName: Lighting(),
	}
}
