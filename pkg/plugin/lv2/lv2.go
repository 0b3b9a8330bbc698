// Package lv2 loads LV2 plugin shared objects via dlopen/dlsym and
// speaks the LV2 core C ABI (LV2_Descriptor / lv2_descriptor()) directly,
// the same way ladspa.go speaks the LADSPA ABI. Turtle-manifest parsing
// (port names/ranges normally sourced from the plugin's .ttl bundle) is
// out of scope here (see SPEC_FULL.md §2.1/§4): the core ABI carries no
// port count, so every label is described with the same generic port
// list (see newBinding).
package lv2

/*
#cgo LDFLAGS: -ldl
#include <stdlib.h>
#include <dlfcn.h>

typedef struct {
	const char *URI;
	void *(*instantiate)(const void *descriptor, double sample_rate,
	                      const char *bundle_path, const void *features);
	void (*connect_port)(void *instance, unsigned long port, void *data_location);
	void (*activate)(void *instance);
	void (*run)(void *instance, unsigned long sample_count);
	void (*deactivate)(void *instance);
	void (*cleanup)(void *instance);
	const void *(*extension_data)(const char *uri);
} lv2_descriptor_t;

typedef const lv2_descriptor_t *(*lv2_descriptor_fn)(unsigned long index);

static const lv2_descriptor_t *call_descriptor(void *fn, unsigned long index) {
	return ((lv2_descriptor_fn)fn)(index);
}

static void *call_instantiate(const lv2_descriptor_t *d, double rate) {
	return d->instantiate((const void *)d, rate, NULL, NULL);
}

static void call_connect_port(const lv2_descriptor_t *d, void *instance, unsigned long port, void *loc) {
	d->connect_port(instance, port, loc);
}

static void call_activate(const lv2_descriptor_t *d, void *instance) {
	if (d->activate) d->activate(instance);
}

static void call_deactivate(const lv2_descriptor_t *d, void *instance) {
	if (d->deactivate) d->deactivate(instance);
}

static void call_run(const lv2_descriptor_t *d, void *instance, unsigned long n) {
	d->run(instance, n);
}

static void call_cleanup(const lv2_descriptor_t *d, void *instance) {
	if (d->cleanup) d->cleanup(instance);
}

static void *open_library(const char *path) {
	return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static void *find_symbol(void *handle, const char *name) {
	return dlsym(handle, name);
}
*/
import "C"

import (
	"unsafe"

	"github.com/kosmolabs/filterchain/pkg/control"
	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/fcerr"
	"github.com/kosmolabs/filterchain/pkg/process"
	"github.com/kosmolabs/filterchain/pkg/registry"
)

// Family is the registry.Family for the "lv2" plugin family. path is the
// plugin's shared-object path; spec.md describes the "plugin" field for
// LV2 as a URI obtained from a bundle browser (lv2ls), which this engine
// does not implement (no manifest/bundle discovery, per Non-goals) — the
// graph description must instead name the .so directly.
type Family struct{}

func (Family) Load(path string) (registry.Plugin, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	h := C.open_library(cpath)
	if h == nil {
		return nil, fcerr.Newf(fcerr.IO, "lv2.Load", "dlopen %q failed", path)
	}

	sym := C.CString("lv2_descriptor")
	defer C.free(unsafe.Pointer(sym))
	fn := C.find_symbol(h, sym)
	if fn == nil {
		C.dlclose(h)
		return nil, fcerr.Newf(fcerr.IO, "lv2.Load", "%q has no lv2_descriptor symbol", path)
	}

	return &Plugin{handle: h, descriptorFn: fn, path: path}, nil
}

// Plugin is one dlopen'd LV2 shared object.
type Plugin struct {
	handle       unsafe.Pointer
	descriptorFn unsafe.Pointer
	path         string
}

func (p *Plugin) Close() error {
	if p.handle != nil {
		C.dlclose(p.handle)
		p.handle = nil
	}
	return nil
}

// MakeDescriptor matches label against each plugin's URI in turn (label
// is unused by LV2 proper per spec.md §6, so the engine repurposes it as
// the URI selector when a .so bundles more than one plugin).
func (p *Plugin) MakeDescriptor(label string) (descriptor.Binding, error) {
	for idx := C.ulong(0); ; idx++ {
		d := C.call_descriptor(p.descriptorFn, idx)
		if d == nil {
			break
		}
		if label != "" && C.GoString(d.URI) != label {
			continue
		}
		return newBinding(d), nil
	}
	return nil, fcerr.Newf(fcerr.NotFound, "lv2.MakeDescriptor", "uri %q not found in %q", label, p.path)
}

// newBinding builds a generic port list: without turtle-manifest data
// the binary ABI alone gives no port count or direction, so every LV2
// label gets the same two ports, audio input "in" at index 0 and audio
// output "out" at index 1, matching the common effect-plugin shape. The
// plugin itself is not queried (extension_data is never called), and no
// control ports are declared.
func newBinding(d *C.lv2_descriptor_t) descriptor.Binding {
	ports := []descriptor.Port{
		{Name: "in", Direction: descriptor.Input, Kind: descriptor.Audio},
		{Name: "out", Direction: descriptor.Output, Kind: descriptor.Audio},
	}
	return &binding{desc: d, ports: ports}
}

type binding struct {
	desc  *C.lv2_descriptor_t
	ports []descriptor.Port
}

func (b *binding) Ports() []descriptor.Port { return b.ports }

// Capabilities returns 0: this engine does not negotiate LV2's optional
// connectionOptional port property without manifest data, so every port
// must be connected.
func (b *binding) Capabilities() descriptor.Capability { return 0 }

func (b *binding) Instantiate(rate float64, instanceIndex int, config string) (descriptor.Handle, error) {
	inst := C.call_instantiate(b.desc, C.double(rate))
	if inst == nil {
		return nil, fcerr.Newf(fcerr.IO, "lv2.Instantiate", "instantiate returned NULL")
	}
	return &handle{
		desc:    b.desc,
		inst:    inst,
		cells:   make(map[int]*C.float),
		sources: make(map[int]*control.ControlValue),
	}, nil
}

// handle mirrors ladspa.handle's control-cell bridging: LV2 control
// ports are also plain float pointers in the core spec (without the
// ttl-declared "atom" port extension, which this engine does not
// support).
type handle struct {
	desc *C.lv2_descriptor_t
	inst unsafe.Pointer

	cells   map[int]*C.float
	sources map[int]*control.ControlValue
}

func (h *handle) ConnectPort(idx int, data interface{}) {
	switch v := data.(type) {
	case []float32:
		var ptr unsafe.Pointer
		if len(v) > 0 {
			ptr = unsafe.Pointer(&v[0])
		}
		C.call_connect_port(h.desc, h.inst, C.ulong(idx), ptr)
	case *control.ControlValue:
		cell, ok := h.cells[idx]
		if !ok {
			cell = (*C.float)(C.malloc(C.size_t(unsafe.Sizeof(C.float(0)))))
			h.cells[idx] = cell
		}
		h.sources[idx] = v
		C.call_connect_port(h.desc, h.inst, C.ulong(idx), unsafe.Pointer(cell))
	case nil:
		C.call_connect_port(h.desc, h.inst, C.ulong(idx), nil)
	}
}

func (h *handle) Activate()   { C.call_activate(h.desc, h.inst) }
func (h *handle) Deactivate() { C.call_deactivate(h.desc, h.inst) }

func (h *handle) Run(nFrames int) process.Status {
	for idx, src := range h.sources {
		*h.cells[idx] = C.float(src.Load())
	}
	C.call_run(h.desc, h.inst, C.ulong(nFrames))
	return process.Continue
}

func (h *handle) Cleanup() {
	C.call_cleanup(h.desc, h.inst)
	for _, cell := range h.cells {
		C.free(unsafe.Pointer(cell))
	}
}
