// Package builtin implements the in-process filter catalog named in
// spec.md §6: mixer, copy, the eight bq_* biquads, convolver, and delay.
package builtin

import (
	"github.com/kosmolabs/filterchain/pkg/descriptor"
	"github.com/kosmolabs/filterchain/pkg/fcerr"
	"github.com/kosmolabs/filterchain/pkg/registry"
)

// Family is the registry.Family for the "builtin" plugin family. Its
// path is always canonicalized to "builtin" by the registry, so Load
// ignores its argument.
type Family struct{}

// Load returns the single Plugin instance hosting every builtin label;
// there is nothing to dlopen.
func (Family) Load(path string) (registry.Plugin, error) {
	return Plugin{}, nil
}

// Plugin hosts every label in the builtin catalog.
type Plugin struct{}

// Close is a no-op: the builtin plugin owns no external resource.
func (Plugin) Close() error { return nil }

// MakeDescriptor resolves a catalog label to its Binding.
func (Plugin) MakeDescriptor(label string) (descriptor.Binding, error) {
	switch label {
	case "mixer":
		return newMixerBinding(), nil
	case "copy":
		return newCopyBinding(), nil
	case "bq_lowpass", "bq_highpass", "bq_bandpass", "bq_lowshelf",
		"bq_highshelf", "bq_peaking", "bq_notch", "bq_allpass":
		return newBiquadBinding(label), nil
	case "convolver":
		return newConvolverBinding(), nil
	case "delay":
		return newDelayBinding(), nil
	default:
		return nil, fcerr.Newf(fcerr.NotFound, "builtin.MakeDescriptor", "unknown builtin label %q", label)
	}
}
