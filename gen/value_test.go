package gen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/wastgen/script"
)

func TestBareLiteral(t *testing.T) {
	tests := []struct {
		name string
		v    script.Value
		want string
	}{
		{"i32", script.I32(-5), "int32(-5)"},
		{"i32 min", script.I32(math.MinInt32), "int32(-2147483648)"},
		{"i64", script.I64(9223372036854775807), "int64(9223372036854775807)"},
		{"f32 finite", script.F32Bits(math.Float32bits(1.5)), "float32(1.5)"},
		{"f32 denormal", script.F32Bits(1), "float32(1e-45)"},
		{"f32 pos inf", script.F32Bits(0x7F800000), "float32(math.Inf(1))"},
		{"f32 neg inf", script.F32Bits(0xFF800000), "float32(math.Inf(-1))"},
		{"f32 neg zero", script.F32Bits(0x80000000), "math.Float32frombits(0x80000000)"},
		{"f32 nan payload", script.F32Bits(0x7FC00001), "math.Float32frombits(0x7fc00001)"},
		{"f32 neg nan", script.F32Bits(0xFFC00000), "math.Float32frombits(0xffc00000)"},
		{"f64 finite", script.F64Bits(math.Float64bits(0.25)), "float64(0.25)"},
		{"f64 pos inf", script.F64Bits(0x7FF0000000000000), "math.Inf(1)"},
		{"f64 neg inf", script.F64Bits(0xFFF0000000000000), "math.Inf(-1)"},
		{"f64 neg zero", script.F64Bits(0x8000000000000000), "math.Float64frombits(0x8000000000000000)"},
		{"f64 nan payload", script.F64Bits(0x7FF0000000000001), "math.Float64frombits(0x7ff0000000000001)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, BareLiteral(tt.v))
		})
	}
}

func TestLiteralWrapsEncoding(t *testing.T) {
	require.Equal(t, "api.EncodeI32(int32(7))", Literal(script.I32(7)))
	require.Equal(t, "api.EncodeI64(int64(-1))", Literal(script.I64(-1)))
	require.Equal(t, "api.EncodeF32(float32(2))", Literal(script.F32Bits(math.Float32bits(2))))
	require.Equal(t,
		"api.EncodeF64(math.Float64frombits(0x7ff8000000000000))",
		Literal(script.F64Bits(0x7FF8000000000000)))
}

func TestTypeOf(t *testing.T) {
	require.Equal(t, "i32", TypeOf(script.I32(0)))
	require.Equal(t, "i64", TypeOf(script.I64(0)))
	require.Equal(t, "f32", TypeOf(script.F32Bits(0)))
	require.Equal(t, "f64", TypeOf(script.F64Bits(0)))
}

func TestIsNaN(t *testing.T) {
	require.True(t, IsNaN(script.F32Bits(0x7FC00000)))
	require.True(t, IsNaN(script.F64Bits(0x7FF0000000000001)))
	require.False(t, IsNaN(script.F32Bits(0x7F800000))) // inf
	require.False(t, IsNaN(script.I32(-1)))
	require.False(t, IsNaN(script.I64(math.MaxInt64)))
}

func TestQuietNaNClassification(t *testing.T) {
	// Quiet bit set, any payload below it.
	require.True(t, IsQuietNaN32(0x7FC00000))
	require.True(t, IsQuietNaN32(0x7FC00001))
	require.True(t, IsQuietNaN32(0xFFC12345))
	// Signaling: quiet bit clear but still NaN.
	require.False(t, IsQuietNaN32(0x7F800001))
	// Not NaN at all.
	require.False(t, IsQuietNaN32(0x7F800000))
	require.False(t, IsQuietNaN32(0x00400000))

	require.True(t, IsQuietNaN64(0x7FF8000000000000))
	require.True(t, IsQuietNaN64(0xFFF8000000000001))
	require.False(t, IsQuietNaN64(0x7FF0000000000001))
	require.False(t, IsQuietNaN64(0x7FF0000000000000))
}

func TestCanonicalNaNClassification(t *testing.T) {
	// Exactly the canonical pattern, either sign.
	require.True(t, IsCanonicalNaN32(0x7FC00000))
	require.True(t, IsCanonicalNaN32(0xFFC00000))
	// Extra payload bits disqualify.
	require.False(t, IsCanonicalNaN32(0x7FC00001))
	require.False(t, IsCanonicalNaN32(0x7F800001))
	require.False(t, IsCanonicalNaN32(0x7F800000))

	require.True(t, IsCanonicalNaN64(0x7FF8000000000000))
	require.True(t, IsCanonicalNaN64(0xFFF8000000000000))
	require.False(t, IsCanonicalNaN64(0x7FF8000000000001))
	require.False(t, IsCanonicalNaN64(0x7FF0000000000001))
}
