// Command helixdemo renders a grid of spinning cubes lit by a ring of point lights through
// the deferred renderer.
//
// Usage:
//
//	helixdemo [-config helix.yaml] [-overrides local.yaml] [-cubes 100] [-lights 8] [-texture bricks.png] [-mesh model.glb] [-v]
//
// With -mesh the grid cycles through the meshes of the glTF file instead of drawing cubes.
//
// Arrow keys or WASD orbit the camera, +/- and the mouse wheel zoom, dragging with the left
// button orbits freely and space pauses the animation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/Carmen-Shannon/helix/engine"
	"github.com/Carmen-Shannon/helix/engine/assets"
	"github.com/Carmen-Shannon/helix/engine/camera"
	"github.com/Carmen-Shannon/helix/engine/config"
	"github.com/Carmen-Shannon/helix/engine/loader"
	"github.com/Carmen-Shannon/helix/engine/logging"
	"github.com/Carmen-Shannon/helix/engine/renderer"
	"github.com/Carmen-Shannon/helix/engine/renderer/device"
	"github.com/Carmen-Shannon/helix/engine/renderer/shader"
	"github.com/Carmen-Shannon/helix/engine/renderer/shaders"
	"github.com/Carmen-Shannon/helix/engine/window"
)

const (
	cubeMesh     = "cube"
	cubeMaterial = "cube"
	cubeSpacing  = 3
	orbitStep    = 0.05
	dragScale    = 0.005
)

type options struct {
	configPath    string
	overridesPath string
	materialsDir  string
	texture       string
	mesh          string
	cubes         int
	lights        int
	verbose       bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("helixdemo", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.overridesPath, "overrides", "", "YAML file merged over the configuration")
	fs.StringVar(&o.materialsDir, "materials", filepath.Join("cmd", "helixdemo", "materials"), "directory holding the material scripts")
	fs.StringVar(&o.texture, "texture", "", "image file sampled by the cube material")
	fs.StringVar(&o.mesh, "mesh", "", "glTF or GLB file drawn in place of the cube")
	fs.IntVar(&o.cubes, "cubes", 100, "number of cubes")
	fs.IntVar(&o.lights, "lights", 8, "number of point lights")
	fs.BoolVar(&o.verbose, "v", false, "log at debug level")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.cubes < 0 || o.lights < 0 {
		return o, fmt.Errorf("cubes and lights must not be negative")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "helixdemo:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logging.SetLogger(logger)

	cfg, err := config.Load(opts.configPath, opts.overridesPath)
	if err != nil {
		return err
	}
	if opts.lights > cfg.Lighting.MaxLights {
		return fmt.Errorf("%d lights exceed lighting.maxLights %d", opts.lights, cfg.Lighting.MaxLights)
	}

	// ── Window + Device ─────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return err
	}

	dev, handles, err := device.NewWGPUDevice(win.SurfaceDescriptor(), win.Width(), win.Height(),
		append(cfg.DeviceOptions(), device.WithLogger(logger))...,
	)
	if err != nil {
		_ = win.Close()
		return err
	}
	defer dev.Release()

	// ── Assets ──────────────────────────────────────────────────────
	reg := assets.NewRegistry(assets.WithTextureLoader(dev.LoadTexture))
	meshes, err := loadAssets(dev, reg, opts)
	if err != nil {
		_ = win.Close()
		return err
	}

	// ── Renderer + Camera ───────────────────────────────────────────
	cfg.Window.Width, cfg.Window.Height = win.Width(), win.Height()
	r, err := renderer.InitializeRenderer(handles, assets.FromRegistry(reg),
		append(cfg.RendererOptions(), renderer.WithLogger(logger))...,
	)
	if err != nil {
		_ = win.Close()
		return err
	}

	g := newGrid(opts.cubes, cubeSpacing)
	ctrl := camera.NewOrbitController(
		camera.WithRadius(g.extent()*2.5),
		camera.WithRadiusBounds(2, cfg.Camera.Far*0.8),
		camera.WithAngles(0.3, 0.6),
	)
	cam := camera.NewCamera(camera.WithParams(cfg.CameraParams()), camera.WithController(ctrl))

	// ── Engine ──────────────────────────────────────────────────────
	anim := &animation{grid: g, meshes: meshes, cubes: opts.cubes, lights: opts.lights, pointRadius: cfg.Lighting.PointRadius}
	eng := engine.NewEngine(r,
		engine.WithWindow(win),
		engine.WithCamera(cam),
		engine.WithTickInterval(cfg.TickInterval()),
		engine.WithTickCallback(func(dt float32) { anim.tick(r, dt) }),
		engine.WithLogger(logger),
	)
	bindInput(win, ctrl, anim)

	runErr := eng.Run()
	writeStats(os.Stdout, r.Stats(), eng.Ticks())
	return runErr
}

// loadAssets compiles the embedded shaders, loads the material scripts and uploads the drawn
// meshes, returning their names.
func loadAssets(dev *device.WGPUDevice, reg *assets.Registry, opts options) ([]string, error) {
	for name, src := range shaders.Sources() {
		p, err := shader.Parse(name, src)
		if err != nil {
			return nil, err
		}
		if _, err := dev.RegisterShader(reg, p); err != nil {
			return nil, err
		}
	}

	if err := assets.LoadMaterials(reg, opts.materialsDir, cubeMaterial, renderer.DefaultLightingMaterial); err != nil {
		return nil, err
	}
	if opts.texture != "" {
		if _, err := reg.ResolveTexture(opts.texture); err != nil {
			return nil, err
		}
		mat, err := reg.ResolveMaterial(cubeMaterial)
		if err != nil {
			return nil, err
		}
		textured := *mat
		textured.TextureName = opts.texture
		reg.AddMaterial(textured)
	}

	if opts.mesh != "" {
		return importMeshes(dev, reg, opts.mesh)
	}
	vertices, indices := buildCube()
	if _, err := dev.CreateMesh(reg, cubeMesh, cubeMaterial, vertices, indices); err != nil {
		return nil, err
	}
	return []string{cubeMesh}, nil
}

func importMeshes(c loader.MeshCreator, reg *assets.Registry, path string) ([]string, error) {
	meshes, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	registered, err := loader.Register(c, reg, cubeMaterial, meshes)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(registered))
	for i, m := range registered {
		names[i] = m.Name
	}
	logging.Logger().Info("imported meshes", "path", path, "count", len(names))
	return names, nil
}

// animation owns the scene state the tick callback advances.
type animation struct {
	grid        grid
	meshes      []string
	cubes       int
	lights      int
	pointRadius float32

	time   float32
	paused atomic.Bool
}

func (a *animation) tick(r renderer.Renderer, dt float32) {
	if !a.paused.Load() {
		a.time += dt
	}
	for i := range a.cubes {
		if err := r.SubmitInstance(a.grid.world(i, a.time), a.meshes[i%len(a.meshes)]); err != nil {
			logging.Logger().Warn("submit cube", "index", i, "error", err)
			return
		}
	}
	for _, l := range lightRing(a.lights, a.grid.extent()*0.7, 2, a.pointRadius, a.time) {
		if err := r.SubmitLight(l); err != nil {
			logging.Logger().Warn("submit light", "error", err)
			return
		}
	}
}

func bindInput(win window.Window, ctrl camera.OrbitController, anim *animation) {
	win.SetKeyCallback(func(key window.Key) {
		switch key {
		case window.KeyLeft:
			ctrl.Orbit(-orbitStep, 0)
		case window.KeyRight:
			ctrl.Orbit(orbitStep, 0)
		case window.KeyUp:
			ctrl.Orbit(0, orbitStep)
		case window.KeyDown:
			ctrl.Orbit(0, -orbitStep)
		case window.KeyZoomIn:
			ctrl.Zoom(1)
		case window.KeyZoomOut:
			ctrl.Zoom(-1)
		case window.KeySpace:
			anim.paused.Store(!anim.paused.Load())
		}
	})
	win.SetScrollCallback(ctrl.Zoom)
	win.SetDragCallback(func(dx, dy float32) {
		ctrl.Orbit(-dx*dragScale, dy*dragScale)
	})
}
