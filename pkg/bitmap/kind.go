package bitmap

import (
	"math"
	"strings"
)

// Kind names one of the supported element types. It is the runtime tag a host
// uses to pick a typed instantiation of the stages once, at configuration time.
type Kind int

const (
	KindUnknown Kind = iota
	Uint8
	Uint16
	Uint32
	Float32
	Float64
)

var kindNames = map[Kind]string{
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Float32: "float32",
	Float64: "float64",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Bits returns the storage width of the kind in bits.
func (k Kind) Bits() int {
	switch k {
	case Uint8:
		return 8
	case Uint16:
		return 16
	case Uint32, Float32:
		return 32
	case Float64:
		return 64
	}
	return 0
}

// IsIndex reports whether k can hold a coarse index.
func (k Kind) IsIndex() bool {
	return k == Uint8 || k == Uint16 || k == Uint32
}

// IsPhase reports whether k can hold a phase value.
func (k Kind) IsPhase() bool {
	return k == Float32 || k == Float64
}

// ParseKind maps a configuration name to a Kind. "float" and "double" are
// accepted as aliases of float32 and float64.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "uint8", "u8", "byte":
		return Uint8, nil
	case "uint16", "u16":
		return Uint16, nil
	case "uint32", "u32":
		return Uint32, nil
	case "float32", "float", "f32":
		return Float32, nil
	case "float64", "double", "f64":
		return Float64, nil
	}
	return KindUnknown, Configf("unknown element type %q", name)
}

// KindFor returns the Kind of the type parameter T.
func KindFor[T Intensity]() Kind {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return KindUnknown
}

// KindOf returns the element kind carried by a bitmap or sequence value
// received from an untyped source.
func KindOf(v any) Kind {
	switch v.(type) {
	case *Bitmap[uint8], Sequence[uint8]:
		return Uint8
	case *Bitmap[uint16], Sequence[uint16]:
		return Uint16
	case *Bitmap[uint32], Sequence[uint32]:
		return Uint32
	case *Bitmap[float32], Sequence[float32]:
		return Float32
	case *Bitmap[float64], Sequence[float64]:
		return Float64
	}
	return KindUnknown
}

// IsFloat reports whether T is a floating point type.
func IsFloat[T Intensity]() bool {
	k := KindFor[T]()
	return k == Float32 || k == Float64
}

// MaxValue returns the largest value representable by T as a float64.
func MaxValue[T Intensity]() float64 {
	switch KindFor[T]() {
	case Uint8:
		return math.MaxUint8
	case Uint16:
		return math.MaxUint16
	case Uint32:
		return math.MaxUint32
	case Float32:
		return math.MaxFloat32
	}
	return math.MaxFloat64
}

// Saturate converts v to T, clamping integer targets into their range and
// truncating toward zero. NaN becomes zero for integer targets.
func Saturate[T Intensity](v float64) T {
	if IsFloat[T]() {
		return T(v)
	}
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if limit := MaxValue[T](); v >= limit {
		return T(limit)
	}
	return T(v)
}
