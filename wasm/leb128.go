package wasm

import (
	"encoding/binary"
	"errors"
	"math"
)

// LEB128 codecs over byte slices. Decoders return the value and the number
// of bytes consumed; encoders append to dst and return the extended slice.

var (
	// ErrOverflow is returned when a LEB128 value exceeds its bit width.
	ErrOverflow = errors.New("leb128: overflow")
	// ErrUnexpectedEnd is returned when input ends mid-value.
	ErrUnexpectedEnd = errors.New("leb128: unexpected end of input")
)

// DecodeU32 reads an unsigned LEB128 value of at most 32 bits.
func DecodeU32(b []byte) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		result |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, 0, ErrOverflow
		}
	}
	return 0, 0, ErrUnexpectedEnd
}

// DecodeU64 reads an unsigned LEB128 value of at most 64 bits.
func DecodeU64(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, 0, ErrOverflow
		}
	}
	return 0, 0, ErrUnexpectedEnd
}

// DecodeS32 reads a signed LEB128 value of at most 32 bits.
func DecodeS32(b []byte) (int32, int, error) {
	var result int32
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		result |= int32(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 32 && c&0x40 != 0 {
				result |= ^int32(0) << shift
			}
			return result, i + 1, nil
		}
		if shift >= 35 {
			return 0, 0, ErrOverflow
		}
	}
	return 0, 0, ErrUnexpectedEnd
}

// DecodeS64 reads a signed LEB128 value of at most 64 bits.
func DecodeS64(b []byte) (int64, int, error) {
	var result int64
	var shift uint
	for i := 0; i < len(b); i++ {
		c := b[i]
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				result |= ^int64(0) << shift
			}
			return result, i + 1, nil
		}
		if shift >= 70 {
			return 0, 0, ErrOverflow
		}
	}
	return 0, 0, ErrUnexpectedEnd
}

// DecodeF32 reads a little-endian float32 preserving the bit pattern.
func DecodeF32(b []byte) (float32, int, error) {
	if len(b) < 4 {
		return 0, 0, ErrUnexpectedEnd
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), 4, nil
}

// DecodeF64 reads a little-endian float64 preserving the bit pattern.
func DecodeF64(b []byte) (float64, int, error) {
	if len(b) < 8 {
		return 0, 0, ErrUnexpectedEnd
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), 8, nil
}

// AppendU32 appends v as unsigned LEB128.
func AppendU32(dst []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		dst = append(dst, c)
		if v == 0 {
			return dst
		}
	}
}

// AppendU64 appends v as unsigned LEB128.
func AppendU64(dst []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		dst = append(dst, c)
		if v == 0 {
			return dst
		}
	}
}

// AppendS32 appends v as signed LEB128.
func AppendS32(dst []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(dst, c)
		}
		dst = append(dst, c|0x80)
	}
}

// AppendS64 appends v as signed LEB128.
func AppendS64(dst []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(dst, c)
		}
		dst = append(dst, c|0x80)
	}
}
