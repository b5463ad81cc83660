package unit

import (
	"fmt"
	"sort"
)

// Built-in units. Time is stored on the femtosecond axis used throughout the
// graph, so a 1 ns parameter holds the integer 1000000.
var (
	Femtoseconds = Unit{Name: "fs", Symbol: "s", Aliases: []string{"sec"}, ScaleExp: -15, Prefixed: true}
	Hertz        = Unit{Name: "hz", Symbol: "Hz", Aliases: []string{"hz"}, Prefixed: true}
	Volts        = Unit{Name: "volts", Symbol: "V", Prefixed: true}
	Amps         = Unit{Name: "amps", Symbol: "A", Prefixed: true}
	Watts        = Unit{Name: "watts", Symbol: "W", Prefixed: true}
	Ohms         = Unit{Name: "ohms", Symbol: "Ω", Aliases: []string{"ohms", "ohm"}, Prefixed: true}
	Decibels     = Unit{Name: "db", Symbol: "dB"}
	DBm          = Unit{Name: "dbm", Symbol: "dBm"}
	Percent      = Unit{Name: "percent", Symbol: "%", ScaleExp: 2}
	SampleRate   = Unit{Name: "samplerate", Symbol: "S/s", Aliases: []string{"Sa/s", "sps"}, Prefixed: true}
	Samples      = Unit{Name: "samples", Symbol: "Sa", Prefixed: true}
	Bits         = Unit{Name: "bits", Symbol: "b", Aliases: []string{"bit", "bits"}, Prefixed: true}
	Baud         = Unit{Name: "baud", Symbol: "Bd", Prefixed: true}
	Counts       = Unit{Name: "counts"}
)

var builtin = map[string]Unit{}

func init() {
	for _, u := range []Unit{
		Femtoseconds, Hertz, Volts, Amps, Watts, Ohms, Decibels,
		DBm, Percent, SampleRate, Samples, Bits, Baud, Counts,
	} {
		builtin[u.Name] = u
	}
}

// Lookup returns the built-in unit registered under name.
func Lookup(name string) (Unit, bool) {
	u, ok := builtin[name]
	return u, ok
}

// MustLookup is Lookup for static declarations; it panics on unknown names.
func MustLookup(name string) Unit {
	u, ok := builtin[name]
	if !ok {
		panic(fmt.Sprintf("unit: unknown unit %q", name))
	}
	return u
}

// Names returns the registered unit names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
