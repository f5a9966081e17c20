package gen

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wasmkit/wastgen/script"
)

// NaN classification masks. The quiet bit is the most significant mantissa
// bit; a canonical NaN has the quiet bit set and every other mantissa bit
// clear. XOR against the flip mask turns exactly the two canonical patterns
// (either sign) into all-ones-below-sign, which keeps the 32- and 64-bit
// checks structurally identical.
const (
	QuietBit32 = uint32(1) << 22
	QuietBit64 = uint64(1) << 51

	canonFlip32 = uint32(0b1_00000000_01111111111111111111111)
	canonFlip64 = uint64(0x8007FFFFFFFFFFFF)
)

// IsQuietNaN32 reports whether bits is a NaN with the quiet bit set.
func IsQuietNaN32(bits uint32) bool {
	f := math.Float32frombits(bits)
	return f != f && bits&QuietBit32 != 0
}

// IsQuietNaN64 reports whether bits is a NaN with the quiet bit set.
func IsQuietNaN64(bits uint64) bool {
	f := math.Float64frombits(bits)
	return f != f && bits&QuietBit64 != 0
}

// IsCanonicalNaN32 reports whether bits is a canonical NaN of either sign.
func IsCanonicalNaN32(bits uint32) bool {
	flipped := bits ^ canonFlip32
	return flipped == 0xFFFFFFFF || flipped == 0x7FFFFFFF
}

// IsCanonicalNaN64 reports whether bits is a canonical NaN of either sign.
func IsCanonicalNaN64(bits uint64) bool {
	flipped := bits ^ canonFlip64
	return flipped == 0xFFFFFFFFFFFFFFFF || flipped == 0x7FFFFFFFFFFFFFFF
}

// IsNaN reports whether v is a float value holding any NaN bit pattern.
// Integer values are never NaN.
func IsNaN(v script.Value) bool {
	switch v.Kind {
	case script.KindF32:
		f := v.AsF32()
		return f != f
	case script.KindF64:
		f := v.AsF64()
		return f != f
	default:
		return false
	}
}

// TypeOf returns the short type identifier of v.
func TypeOf(v script.Value) string {
	return v.Kind.String()
}

// BareLiteral renders v as a Go expression of its native scalar type that
// reconstructs the exact bit pattern. Finite floats use the shortest decimal
// that round-trips; infinities use math.Inf because a decimal literal for
// infinity does not parse; NaNs and negative zero are rebuilt from raw bits
// since their payload or sign would not survive a textual round trip.
func BareLiteral(v script.Value) string {
	switch v.Kind {
	case script.KindI32:
		return fmt.Sprintf("int32(%d)", v.AsI32())
	case script.KindI64:
		return fmt.Sprintf("int64(%d)", v.AsI64())
	case script.KindF32:
		bits := uint32(v.Bits)
		f := v.AsF32()
		switch {
		case f != f || bits == 0x80000000:
			return fmt.Sprintf("math.Float32frombits(0x%08x)", bits)
		case math.IsInf(float64(f), 1):
			return "float32(math.Inf(1))"
		case math.IsInf(float64(f), -1):
			return "float32(math.Inf(-1))"
		default:
			return fmt.Sprintf("float32(%s)", strconv.FormatFloat(float64(f), 'g', -1, 32))
		}
	case script.KindF64:
		bits := v.Bits
		f := v.AsF64()
		switch {
		case f != f || bits == 0x8000000000000000:
			return fmt.Sprintf("math.Float64frombits(0x%016x)", bits)
		case math.IsInf(f, 1):
			return "math.Inf(1)"
		case math.IsInf(f, -1):
			return "math.Inf(-1)"
		default:
			return fmt.Sprintf("float64(%s)", strconv.FormatFloat(f, 'g', -1, 64))
		}
	default:
		return "invalid"
	}
}

// Literal renders v as a Go expression producing the raw 64-bit call/result
// encoding of the value.
func Literal(v script.Value) string {
	switch v.Kind {
	case script.KindI32:
		return fmt.Sprintf("api.EncodeI32(%s)", BareLiteral(v))
	case script.KindI64:
		return fmt.Sprintf("api.EncodeI64(%s)", BareLiteral(v))
	case script.KindF32:
		return fmt.Sprintf("api.EncodeF32(%s)", BareLiteral(v))
	case script.KindF64:
		return fmt.Sprintf("api.EncodeF64(%s)", BareLiteral(v))
	default:
		return "invalid"
	}
}
