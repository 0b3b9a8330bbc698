// Package ladspa loads LADSPA plugin shared objects via dlopen/dlsym and
// speaks the standard, ABI-stable LADSPA C struct layout directly — the
// same approach the original filter-chain module takes, and the reason
// this package needs cgo rather than a pure-Go LADSPA binding (none
// exists in the example corpus, and the ABI is a fixed C struct layout
// that only cgo can walk safely).
package ladspa

/*
#cgo LDFLAGS: -ldl
#include <stdlib.h>
#include <dlfcn.h>

typedef struct {
	unsigned long UniqueID;
	const char *Label;
	int Properties;
	const char *Name;
	const char *Maker;
	const char *Copyright;
	unsigned long PortCount;
	const int *PortDescriptors;
	const char * const *PortNames;
	const void *PortRangeHints;
	void *ImplementationData;
	void *(*instantiate)(void *descriptor, unsigned long sample_rate);
	void (*connect_port)(void *instance, unsigned long port, float *location);
	void (*activate)(void *instance);
	void (*run)(void *instance, unsigned long sample_count);
	void (*run_adding)(void *instance, unsigned long sample_count);
	void (*set_run_adding_gain)(void *instance, float gain);
	void (*deactivate)(void *instance);
	void (*cleanup)(void *instance);
} ladspa_descriptor_t;

typedef const ladspa_descriptor_t *(*ladspa_descriptor_fn)(unsigned long index);

static const ladspa_descriptor_t *call_descriptor(void *fn, unsigned long index) {
	return ((ladspa_descriptor_fn)fn)(index);
}

static void *call_instantiate(const ladspa_descriptor_t *d, unsigned long rate) {
	return d->instantiate((void *)d, rate);
}

static void call_connect_port(const ladspa_descriptor_t *d, void *instance, unsigned long port, float *loc) {
	d->connect_port(instance, port, loc);
}

static void call_activate(const ladspa_descriptor_t *d, void *instance) {
	if (d->activate) d->activate(instance);
}

static void call_deactivate(const ladspa_descriptor_t *d, void *instance) {
	if (d->deactivate) d->deactivate(instance);
}

static void call_run(const ladspa_descriptor_t *d, void *instance, unsigned long n) {
	d->run(instance, n);
}

static void call_cleanup(const ladspa_descriptor_t *d, void *instance) {
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

// LADSPA port descriptor bits (ladspa.h).
const (
	portInput  = 1 << 0
	portOutput = 1 << 1
	portAudio  = 1 << 2
	portCtrl   = 1 << 3
)

// Family is the registry.Family for the "ladspa" plugin family. path is
// the full shared-object path; unlike the original module this engine
// does not search a LADSPA_PATH-style directory list for a bare name,
// since spec.md defers plugin discovery to the surrounding framework.
type Family struct{}

func (Family) Load(path string) (registry.Plugin, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	h := C.open_library(cpath)
	if h == nil {
		return nil, fcerr.Newf(fcerr.IO, "ladspa.Load", "dlopen %q failed", path)
	}

	sym := C.CString("ladspa_descriptor")
	defer C.free(unsafe.Pointer(sym))
	fn := C.find_symbol(h, sym)
	if fn == nil {
		C.dlclose(h)
		return nil, fcerr.Newf(fcerr.IO, "ladspa.Load", "%q has no ladspa_descriptor symbol", path)
	}

	return &Plugin{handle: h, descriptorFn: fn, path: path}, nil
}

// Plugin is one dlopen'd LADSPA shared object.
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

// MakeDescriptor walks the plugin's labels via repeated ladspa_descriptor
// calls (index 0, 1, 2, ...) until the library signals end-of-list with
// a NULL return.
func (p *Plugin) MakeDescriptor(label string) (descriptor.Binding, error) {
	for idx := C.ulong(0); ; idx++ {
		d := C.call_descriptor(p.descriptorFn, idx)
		if d == nil {
			break
		}
		if C.GoString(d.Label) != label {
			continue
		}
		return newBinding(d), nil
	}
	return nil, fcerr.Newf(fcerr.NotFound, "ladspa.MakeDescriptor", "label %q not found in %q", label, p.path)
}

func newBinding(d *C.ladspa_descriptor_t) descriptor.Binding {
	n := int(d.PortCount)
	portDescs := unsafe.Slice(d.PortDescriptors, n)
	portNames := unsafe.Slice(d.PortNames, n)

	ports := make([]descriptor.Port, n)
	for i := 0; i < n; i++ {
		flags := int(portDescs[i])
		dir := descriptor.Input
		if flags&portOutput != 0 {
			dir = descriptor.Output
		}
		kind := descriptor.Control
		if flags&portAudio != 0 {
			kind = descriptor.Audio
		}
		ports[i] = descriptor.Port{
			Name:      C.GoString(portNames[i]),
			Direction: dir,
			Kind:      kind,
			Default:   0,
			Min:       0,
			Max:       1,
		}
	}

	return &binding{desc: d, ports: ports}
}

// binding adapts a LADSPA descriptor's function-pointer table to
// descriptor.Binding/descriptor.Handle.
type binding struct {
	desc  *C.ladspa_descriptor_t
	ports []descriptor.Port
}

func (b *binding) Ports() []descriptor.Port { return b.ports }

// Capabilities returns 0: LADSPA has no null-data convention, every port
// must be connected to a real buffer before Run.
func (b *binding) Capabilities() descriptor.Capability { return 0 }

func (b *binding) Instantiate(rate float64, instanceIndex int, config string) (descriptor.Handle, error) {
	inst := C.call_instantiate(b.desc, C.ulong(rate))
	if inst == nil {
		return nil, fcerr.Newf(fcerr.IO, "ladspa.Instantiate", "instantiate returned NULL")
	}
	return &handle{
		desc:    b.desc,
		inst:    inst,
		cells:   make(map[int]*C.float),
		sources: make(map[int]*control.ControlValue),
	}, nil
}

// handle wraps one LADSPA plugin instance. Control ports are bridged
// through small C-allocated float cells, synced from the engine's atomic
// ControlValue before every Run: LADSPA dereferences its connected
// pointer freely inside run(), so the cell must be real, stable C memory
// rather than a pointer into Go's heap.
type handle struct {
	desc *C.ladspa_descriptor_t
	inst unsafe.Pointer

	cells   map[int]*C.float
	sources map[int]*control.ControlValue
}

func (h *handle) ConnectPort(idx int, data interface{}) {
	switch v := data.(type) {
	case []float32:
		var ptr *C.float
		if len(v) > 0 {
			ptr = (*C.float)(unsafe.Pointer(&v[0]))
		}
		C.call_connect_port(h.desc, h.inst, C.ulong(idx), ptr)
	case *control.ControlValue:
		cell, ok := h.cells[idx]
		if !ok {
			cell = (*C.float)(C.malloc(C.size_t(unsafe.Sizeof(C.float(0)))))
			h.cells[idx] = cell
		}
		h.sources[idx] = v
		C.call_connect_port(h.desc, h.inst, C.ulong(idx), cell)
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
