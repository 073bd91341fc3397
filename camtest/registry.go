package camtest

import (
	"sort"
	"sync"

	"camcore/camera"
	"camcore/camerr"
)

// Constructor builds a camera.Camera backend from a Config. It stands
// in for the original library's dlopen-based "open libuca<Name>.so,
// look up its entry symbol" flow (src/uca-plugin-manager.c) with Go's
// static registration: backends register a named constructor at init
// time instead of being discovered from a shared-object search path.
type Constructor func(Config) camera.Camera

// Registry is a compiled-in name->Constructor map, the Go analog of
// UcaPluginManager: instead of scanning search paths for files matching
// "libuca<Name>.so", callers look a backend up by the same short name
// (the original library's own plugin names are exactly this shape —
// "mock", "pco", "pf", "ufo", "xkit"; see original_source/plugins/).
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a named backend constructor, replacing any existing
// constructor registered under the same name.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// Available lists every registered backend name in sorted order, the
// Go equivalent of UcaPluginManager.get_available_cameras.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New instantiates the named backend. An unregistered name fails with
// NotFound, mirroring UcaPluginManager.new_camera's
// UCA_PLUGIN_MANAGER_ERROR_MODULE_NOT_FOUND for a nonexistent module
// (test/test-mock.c's test_factory exercises exactly this case against
// the original).
func (r *Registry) New(name string, cfg Config) (camera.Camera, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, camerr.NotFoundf("backend %q is not registered", name)
	}
	return ctor(cfg), nil
}

// DefaultRegistry returns a registry with this package's own fake
// backends pre-registered under the names their original counterparts
// used: "mock" for the in-process software-clocked Fake (cf.
// test/test-mock.c's "mock" camera) and "frame-grabber" for the
// DMA-region-backed FrameGrabberFake (cf. src/grabbers/me4.c).
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("mock", func(cfg Config) camera.Camera {
		return New(cfg)
	})
	r.Register("frame-grabber", func(cfg Config) camera.Camera {
		fg, err := NewFrameGrabber(cfg.Name, cfg.Geometry, 4)
		if err != nil {
			panic(err) // construction-time geometry is a programmer error, not a runtime fault
		}
		return fg
	})
	return r
}
