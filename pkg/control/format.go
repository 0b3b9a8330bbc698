package control

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kosmolabs/filterchain/pkg/audio"
	"github.com/kosmolabs/filterchain/pkg/descriptor"
)

// TypeName reports the control-plane type tag (spec.md §4.5's "type (bool
// / int / float)") a port's hint bits imply.
func TypeName(hint descriptor.Hint) string {
	switch {
	case hint.Has(descriptor.Boolean):
		return "bool"
	case hint.Has(descriptor.Integer):
		return "int"
	default:
		return "float"
	}
}

// FormatValue renders a control value for human display, dispatching on
// hint: booleans as "true"/"false", sample-rate-hinted values as a
// frequency with Hz/kHz units, everything else as a plain number.
func FormatValue(hint descriptor.Hint, value float64) string {
	switch {
	case hint.Has(descriptor.Boolean):
		return strconv.FormatBool(value > 0)
	case hint.Has(descriptor.Integer):
		return strconv.Itoa(int(value))
	case hint.Has(descriptor.SampleRate):
		return FormatHz(value, 1)
	default:
		return strconv.FormatFloat(value, 'f', 3, 64)
	}
}

// FormatDb formats a linear gain value as decibels, adapted from the
// teacher's FormatParameterValueDB.
func FormatDb(linear float64, precision int) string {
	db := audio.LinearToDb(linear)
	if math.IsInf(db, -1) || db <= -120.0 {
		return "-∞ dB"
	}
	return fmt.Sprintf("%.*f dB", precision, db)
}

// FormatHz formats a frequency in Hz, switching to kHz above 1000,
// adapted from the teacher's FormatParameterValueHz.
func FormatHz(freq float64, precision int) string {
	if freq >= 1000.0 {
		return fmt.Sprintf("%.*f kHz", precision, freq/1000.0)
	}
	return fmt.Sprintf("%.*f Hz", precision, freq)
}

// FormatPercent formats a normalized [0,1] value as a percentage,
// adapted from the teacher's FormatParameterValuePercent.
func FormatPercent(value float64, precision int) string {
	return fmt.Sprintf("%.*f%%", precision, value*100.0)
}

// ParseHz parses a frequency string such as "440 Hz" or "1.5 kHz" back to
// Hz, adapted from the teacher's ParseParameterValueHz.
func ParseHz(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if strings.HasSuffix(strings.ToLower(text), "khz") {
		text = strings.TrimSpace(text[:len(text)-3])
		khz, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, err
		}
		return khz * 1000.0, nil
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(text, "Hz"), "hz"))
	return strconv.ParseFloat(text, 64)
}
