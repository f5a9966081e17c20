package wasm

import (
	"bytes"
	"math"
	"testing"
)

func TestU32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 255, 624485, math.MaxUint32}
	for _, v := range values {
		enc := AppendU32(nil, v)
		got, n, err := DecodeU32(enc)
		if err != nil {
			t.Fatalf("DecodeU32(%v): %v", enc, err)
		}
		if got != v || n != len(enc) {
			t.Errorf("round trip %d: got %d, consumed %d of %d", v, got, n, len(enc))
		}
	}
}

func TestS32RoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 63, 64, -64, -65, 666, math.MinInt32, math.MaxInt32}
	for _, v := range values {
		enc := AppendS32(nil, v)
		got, n, err := DecodeS32(enc)
		if err != nil {
			t.Fatalf("DecodeS32(%v): %v", enc, err)
		}
		if got != v || n != len(enc) {
			t.Errorf("round trip %d: got %d, consumed %d of %d", v, got, n, len(enc))
		}
	}
}

func TestS64RoundTrip(t *testing.T) {
	values := []int64{0, -1, math.MinInt64, math.MaxInt64, 1 << 40, -(1 << 40)}
	for _, v := range values {
		enc := AppendS64(nil, v)
		got, _, err := DecodeS64(enc)
		if err != nil {
			t.Fatalf("DecodeS64(%v): %v", enc, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestKnownEncodings(t *testing.T) {
	if got := AppendU32(nil, 624485); !bytes.Equal(got, []byte{0xE5, 0x8E, 0x26}) {
		t.Errorf("624485 encoded as %v", got)
	}
	if got := AppendS32(nil, -123456); !bytes.Equal(got, []byte{0xC0, 0xBB, 0x78}) {
		t.Errorf("-123456 encoded as %v", got)
	}
	// 666 needs a continuation byte: 0x9A 0x05
	if got := AppendS32(nil, 666); !bytes.Equal(got, []byte{0x9A, 0x05}) {
		t.Errorf("666 encoded as %v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, _, err := DecodeU32([]byte{0x80, 0x80}); err != ErrUnexpectedEnd {
		t.Errorf("truncated input: got %v", err)
	}
	if _, _, err := DecodeU32([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}); err != ErrOverflow {
		t.Errorf("six-byte u32: got %v", err)
	}
}

func TestFloatBitsPreserved(t *testing.T) {
	// A NaN with a non-canonical payload must survive the byte round trip.
	bits := uint32(0x7FC00001)
	b := []byte{0x01, 0x00, 0xC0, 0x7F}
	f, n, err := DecodeF32(b)
	if err != nil || n != 4 {
		t.Fatalf("DecodeF32: n=%d err=%v", n, err)
	}
	if math.Float32bits(f) != bits {
		t.Errorf("bits = %#x, want %#x", math.Float32bits(f), bits)
	}
}
