package param

import "periph.io/x/conn/v3/physic"

// Unit tags the physical dimension of a parameter's value, mirroring
// the teacher's use of periph's physic package for dimensioned config
// fields (e.g. OLEDSPIFreq physic.Frequency). Parameters whose value is
// already physic-typed (Meter, DegreeCelsius) convert through physic's
// own types at the client boundary; Second is left as plain float64
// seconds with no typed conversion, since exposure/fps arithmetic in
// this domain is always done in float seconds per SPEC_FULL.md §3.
type Unit int

const (
	UnitNA Unit = iota
	UnitMeter
	UnitSecond
	UnitPixel
	UnitDegreeCelsius
	UnitCount
)

func (u Unit) String() string {
	switch u {
	case UnitMeter:
		return "meter"
	case UnitSecond:
		return "second"
	case UnitPixel:
		return "pixel"
	case UnitDegreeCelsius:
		return "degree_celsius"
	case UnitCount:
		return "count"
	default:
		return "na"
	}
}

// Access is the read/write mode of a parameter.
type Access int

const (
	AccessRO Access = iota
	AccessWO
	AccessRW
)

func (a Access) String() string {
	switch a {
	case AccessRO:
		return "ro"
	case AccessWO:
		return "wo"
	default:
		return "rw"
	}
}

func (a Access) Readable() bool { return a == AccessRO || a == AccessRW }
func (a Access) Writable() bool { return a == AccessWO || a == AccessRW }

// Range bounds a numeric parameter. Step is the quantization granularity
// (e.g. roi_width_multiplier): a write whose value is not Min plus a
// whole number of Steps is rejected, not rounded; zero means
// unconstrained. Only meaningful for Kind in {Int64, Uint64, Float64}.
type Range struct {
	Min, Max float64
	Step     float64
}

func (r Range) contains(v float64) bool {
	if v < r.Min || v > r.Max {
		return false
	}
	if r.Step <= 0 {
		return true
	}
	steps := (v - r.Min) / r.Step
	return steps == float64(int64(steps+0.5))
}

// Descriptor is the static metadata published for one parameter: its
// type, its legal values, its unit, its access mode, and whether it may
// be mutated while the camera is recording (C3 in SPEC_FULL.md §3).
type Descriptor struct {
	Name            string
	Kind            Kind
	Default         Value
	Range           *Range   // set for numeric parameters with a continuous range
	Allowed         []Value  // set for enumerated parameters (binning sets, trigger sources, …)
	Unit            Unit
	Access          Access
	LiveWritable    bool
}

// PhysicDistance converts a UnitMeter-tagged float64 value to a typed
// physic.Distance, for callers that want to do dimensioned arithmetic
// (e.g. combining sensor pixel pitch with binning).
func PhysicDistance(v Value) physic.Distance {
	return physic.Distance(v.Float64 * float64(physic.Metre))
}

// PhysicTemperature converts a UnitDegreeCelsius-tagged float64 value
// (e.g. a cooling setpoint or readback) to a typed physic.Temperature.
func PhysicTemperature(v Value) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(v.Float64*float64(physic.Kelvin))
}

// validate checks v against the descriptor's Kind, Range, and Allowed
// set. It never checks Access — that's the registry's job, since it
// also depends on runtime state (is_recording).
func (d *Descriptor) validate(v Value) error {
	if v.Kind != d.Kind {
		return typeMismatch(d.Name, d.Kind, v.Kind)
	}
	if d.Range != nil {
		f, ok := numericValue(v)
		if !ok {
			return typeMismatch(d.Name, d.Kind, v.Kind)
		}
		if !d.Range.contains(f) {
			return outOfRange(d.Name, f, d.Range)
		}
	}
	if len(d.Allowed) > 0 {
		for _, a := range d.Allowed {
			if a.Equal(v) {
				return nil
			}
		}
		return outOfRangeEnum(d.Name, v)
	}
	return nil
}

func numericValue(v Value) (float64, bool) {
	switch v.Kind {
	case KindInt64:
		return float64(v.Int64), true
	case KindUint64:
		return float64(v.Uint64), true
	case KindFloat64:
		return v.Float64, true
	default:
		return 0, false
	}
}
