// Package param implements the camera's typed, introspectable parameter
// system: every tunable of a device is a named Descriptor with a type,
// a range or enumeration, a unit, and an access mode, reachable through
// a Registry that enumerates, reads, writes, and notifies observers —
// the way the teacher's hardware packages (expander, airsensor,
// brightness) expose named registers through typed getter/setter pairs,
// generalized here into data instead of one method pair per field.
package param

// Kind tags which branch of Value is populated.
type Kind int

const (
	_ Kind = iota
	KindBool
	KindInt64
	KindUint64
	KindFloat64
	KindString
	KindEnum
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindEnum:
		return "enum_index"
	case KindBytes:
		return "byte_blob"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the value types a parameter may carry.
// Exactly one field is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Bool    bool
	Int64   int64
	Uint64  uint64
	Float64 float64
	String  string
	Enum    int
	Bytes   []byte
}

func Bool(v bool) Value          { return Value{Kind: KindBool, Bool: v} }
func Int64(v int64) Value        { return Value{Kind: KindInt64, Int64: v} }
func Uint64(v uint64) Value       { return Value{Kind: KindUint64, Uint64: v} }
func Float64(v float64) Value    { return Value{Kind: KindFloat64, Float64: v} }
func String(v string) Value      { return Value{Kind: KindString, String: v} }
func Enum(v int) Value           { return Value{Kind: KindEnum, Enum: v} }
func Bytes(v []byte) Value       { return Value{Kind: KindBytes, Bytes: v} }

// Equal reports whether two values carry the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == o.Bool
	case KindInt64:
		return v.Int64 == o.Int64
	case KindUint64:
		return v.Uint64 == o.Uint64
	case KindFloat64:
		return v.Float64 == o.Float64
	case KindString:
		return v.String == o.String
	case KindEnum:
		return v.Enum == o.Enum
	case KindBytes:
		return string(v.Bytes) == string(o.Bytes)
	default:
		return false
	}
}

