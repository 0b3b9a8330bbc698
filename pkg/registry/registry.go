// Package registry caches loaded plugin families and the descriptors
// resolved from them, ref-counted per spec.md §4.1. It is a config-thread
// component only.
package registry

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/fcerr"
	"github.com/kosmolabs/filterchain/pkg/rtcheck"
)

// Family loads plugins of one kind (builtin, ladspa, lv2) by path, and
// resolves a label within a loaded plugin to a Binding.
type Family interface {
	// Load opens path (for builtin, path is ignored; Registry.Load
	// canonicalizes it to "builtin" before calling Load).
	Load(path string) (Plugin, error)
}

// Plugin is one loaded plugin module, capable of producing a Binding for
// any label it declares.
type Plugin interface {
	MakeDescriptor(label string) (descriptor.Binding, error)
	// Close releases the underlying module (dlclose for ladspa/lv2; a
	// no-op for builtin).
	Close() error
}

type pluginEntry struct {
	plugin   Plugin
	refcount int
}

type descEntry struct {
	desc     *descriptor.Descriptor
	refcount int
}

// Registry is a process-wide, ref-counted cache keyed by (family, path)
// for plugins and (family, path, label) for descriptors.
type Registry struct {
	mu sync.Mutex

	families map[string]Family
	plugins  map[pluginKey]*pluginEntry
	descs    map[descKey]*descEntry
}

type pluginKey struct{ family, path string }
type descKey struct {
	family, path, label string
}

// New creates an empty Registry with no families registered.
func New() *Registry {
	return &Registry{
		families: make(map[string]Family),
		plugins:  make(map[pluginKey]*pluginEntry),
		descs:    make(map[descKey]*descEntry),
	}
}

// RegisterFamily associates a family tag ("builtin", "ladspa", "lv2")
// with its loader. Must be called before any Load for that family.
func (r *Registry) RegisterFamily(name string, f Family) {
	rtcheck.AssertConfigThread("registry.RegisterFamily")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[name] = f
}

// canonicalPath canonicalizes the builtin family's path to the literal
// "builtin" regardless of what the description supplied, per spec.md
// §4.1.
func canonicalPath(family, path string) string {
	if family == "builtin" {
		return "builtin"
	}
	return path
}

// Load resolves (family, path) to a Plugin, loading it on first use and
// incrementing its refcount on every call thereafter.
func (r *Registry) Load(family, path string) (Plugin, error) {
	rtcheck.AssertConfigThread("registry.Load")
	path = canonicalPath(family, path)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pluginKey{family, path}
	if entry, ok := r.plugins[key]; ok {
		entry.refcount++
		return entry.plugin, nil
	}

	loader, ok := r.families[family]
	if !ok {
		return nil, fcerr.Newf(fcerr.Unsupported, "registry.Load", "unknown plugin family %q", family)
	}

	plugin, err := loader.Load(path)
	if err != nil {
		return nil, fcerr.Wrap(fcerr.IO, "registry.Load", err)
	}

	r.plugins[key] = &pluginEntry{plugin: plugin, refcount: 1}
	log.Info("loaded plugin", "family", family, "path", path)
	return plugin, nil
}

// Unref decrements the refcount of (family, path); at zero the plugin is
// closed and evicted, along with every descriptor cached under it.
func (r *Registry) Unref(family, path string) error {
	rtcheck.AssertConfigThread("registry.Unref")
	path = canonicalPath(family, path)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pluginKey{family, path}
	entry, ok := r.plugins[key]
	if !ok {
		return fcerr.Newf(fcerr.NotFound, "registry.Unref", "plugin %s:%s not loaded", family, path)
	}
	entry.refcount--
	if entry.refcount > 0 {
		return nil
	}

	for dk := range r.descs {
		if dk.family == family && dk.path == path {
			delete(r.descs, dk)
		}
	}
	delete(r.plugins, key)
	log.Info("unloaded plugin", "family", family, "path", path)
	return entry.plugin.Close()
}

// Descriptor resolves (family, path, label) to a cached Descriptor,
// loading the plugin if necessary and calling MakeDescriptor on first
// resolution of that label.
func (r *Registry) Descriptor(family, path, label string) (*descriptor.Descriptor, error) {
	rtcheck.AssertConfigThread("registry.Descriptor")
	path = canonicalPath(family, path)

	r.mu.Lock()
	dk := descKey{family, path, label}
	if entry, ok := r.descs[dk]; ok {
		entry.refcount++
		if pe, ok := r.plugins[pluginKey{family, path}]; ok {
			pe.refcount++
		}
		r.mu.Unlock()
		return entry.desc, nil
	}
	r.mu.Unlock()

	plugin, err := r.Load(family, path)
	if err != nil {
		return nil, err
	}

	binding, err := plugin.MakeDescriptor(label)
	if err != nil {
		_ = r.Unref(family, path)
		return nil, fcerr.Wrap(fcerr.NotFound, "registry.Descriptor", err)
	}

	desc := descriptor.New(family, path, label, binding)
	if !desc.HasAudioPorts() {
		_ = r.Unref(family, path)
		return nil, fcerr.Newf(fcerr.Unsupported, "registry.Descriptor", "%s:%s:%s declares no audio ports", family, path, label)
	}

	r.mu.Lock()
	r.descs[dk] = &descEntry{desc: desc, refcount: 1}
	r.mu.Unlock()

	return desc, nil
}

// UnrefDescriptor decrements a descriptor's refcount, and the underlying
// plugin's in turn, mirroring Descriptor's implicit Load.
func (r *Registry) UnrefDescriptor(family, path, label string) error {
	rtcheck.AssertConfigThread("registry.UnrefDescriptor")
	path = canonicalPath(family, path)

	r.mu.Lock()
	dk := descKey{family, path, label}
	entry, ok := r.descs[dk]
	if !ok {
		r.mu.Unlock()
		return fcerr.Newf(fcerr.NotFound, "registry.UnrefDescriptor", "descriptor %s:%s:%s not loaded", family, path, label)
	}
	entry.refcount--
	if entry.refcount <= 0 {
		delete(r.descs, dk)
	}
	r.mu.Unlock()

	return r.Unref(family, path)
}

// global is the process-wide registry convenience instance, mirroring the
// teacher's package-level global-registry shape.
var global = New()

// Global returns the process-wide Registry instance.
func Global() *Registry { return global }
