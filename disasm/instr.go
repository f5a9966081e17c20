package disasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wasmkit/wastgen/wasm"
)

// immKind tells the printer how to decode an instruction's immediates.
type immKind int

const (
	immNone     immKind = iota
	immU32              // one index (br, call, local.get, ...)
	immCallInd          // type index + table index
	immBlock            // block type (s33)
	immBrTable          // label vector + default
	immI32              // i32.const
	immI64              // i64.const
	immF32              // f32.const
	immF64              // f64.const
	immMemarg           // align + offset
	immMemIdx           // memory.size / memory.grow
	immSelectT          // typed select
	immHeapType         // ref.null
	immMisc             // 0xFC-prefixed sub-opcode
)

type instrInfo struct {
	name string
	imm  immKind
	// natAlign is the natural alignment exponent for memarg instructions;
	// the printer only spells out align= when it deviates.
	natAlign uint32
}

var instrTable = map[byte]instrInfo{
	0x00: {name: "unreachable"},
	0x01: {name: "nop"},
	0x02: {name: "block", imm: immBlock},
	0x03: {name: "loop", imm: immBlock},
	0x04: {name: "if", imm: immBlock},
	0x05: {name: "else"},
	0x0B: {name: "end"},
	0x0C: {name: "br", imm: immU32},
	0x0D: {name: "br_if", imm: immU32},
	0x0E: {name: "br_table", imm: immBrTable},
	0x0F: {name: "return"},
	0x10: {name: "call", imm: immU32},
	0x11: {name: "call_indirect", imm: immCallInd},

	0x1A: {name: "drop"},
	0x1B: {name: "select"},
	0x1C: {name: "select", imm: immSelectT},

	0x20: {name: "local.get", imm: immU32},
	0x21: {name: "local.set", imm: immU32},
	0x22: {name: "local.tee", imm: immU32},
	0x23: {name: "global.get", imm: immU32},
	0x24: {name: "global.set", imm: immU32},
	0x25: {name: "table.get", imm: immU32},
	0x26: {name: "table.set", imm: immU32},

	0x28: {name: "i32.load", imm: immMemarg, natAlign: 2},
	0x29: {name: "i64.load", imm: immMemarg, natAlign: 3},
	0x2A: {name: "f32.load", imm: immMemarg, natAlign: 2},
	0x2B: {name: "f64.load", imm: immMemarg, natAlign: 3},
	0x2C: {name: "i32.load8_s", imm: immMemarg, natAlign: 0},
	0x2D: {name: "i32.load8_u", imm: immMemarg, natAlign: 0},
	0x2E: {name: "i32.load16_s", imm: immMemarg, natAlign: 1},
	0x2F: {name: "i32.load16_u", imm: immMemarg, natAlign: 1},
	0x30: {name: "i64.load8_s", imm: immMemarg, natAlign: 0},
	0x31: {name: "i64.load8_u", imm: immMemarg, natAlign: 0},
	0x32: {name: "i64.load16_s", imm: immMemarg, natAlign: 1},
	0x33: {name: "i64.load16_u", imm: immMemarg, natAlign: 1},
	0x34: {name: "i64.load32_s", imm: immMemarg, natAlign: 2},
	0x35: {name: "i64.load32_u", imm: immMemarg, natAlign: 2},
	0x36: {name: "i32.store", imm: immMemarg, natAlign: 2},
	0x37: {name: "i64.store", imm: immMemarg, natAlign: 3},
	0x38: {name: "f32.store", imm: immMemarg, natAlign: 2},
	0x39: {name: "f64.store", imm: immMemarg, natAlign: 3},
	0x3A: {name: "i32.store8", imm: immMemarg, natAlign: 0},
	0x3B: {name: "i32.store16", imm: immMemarg, natAlign: 1},
	0x3C: {name: "i64.store8", imm: immMemarg, natAlign: 0},
	0x3D: {name: "i64.store16", imm: immMemarg, natAlign: 1},
	0x3E: {name: "i64.store32", imm: immMemarg, natAlign: 2},
	0x3F: {name: "memory.size", imm: immMemIdx},
	0x40: {name: "memory.grow", imm: immMemIdx},

	0x41: {name: "i32.const", imm: immI32},
	0x42: {name: "i64.const", imm: immI64},
	0x43: {name: "f32.const", imm: immF32},
	0x44: {name: "f64.const", imm: immF64},

	0x45: {name: "i32.eqz"},
	0x46: {name: "i32.eq"},
	0x47: {name: "i32.ne"},
	0x48: {name: "i32.lt_s"},
	0x49: {name: "i32.lt_u"},
	0x4A: {name: "i32.gt_s"},
	0x4B: {name: "i32.gt_u"},
	0x4C: {name: "i32.le_s"},
	0x4D: {name: "i32.le_u"},
	0x4E: {name: "i32.ge_s"},
	0x4F: {name: "i32.ge_u"},
	0x50: {name: "i64.eqz"},
	0x51: {name: "i64.eq"},
	0x52: {name: "i64.ne"},
	0x53: {name: "i64.lt_s"},
	0x54: {name: "i64.lt_u"},
	0x55: {name: "i64.gt_s"},
	0x56: {name: "i64.gt_u"},
	0x57: {name: "i64.le_s"},
	0x58: {name: "i64.le_u"},
	0x59: {name: "i64.ge_s"},
	0x5A: {name: "i64.ge_u"},
	0x5B: {name: "f32.eq"},
	0x5C: {name: "f32.ne"},
	0x5D: {name: "f32.lt"},
	0x5E: {name: "f32.gt"},
	0x5F: {name: "f32.le"},
	0x60: {name: "f32.ge"},
	0x61: {name: "f64.eq"},
	0x62: {name: "f64.ne"},
	0x63: {name: "f64.lt"},
	0x64: {name: "f64.gt"},
	0x65: {name: "f64.le"},
	0x66: {name: "f64.ge"},

	0x67: {name: "i32.clz"},
	0x68: {name: "i32.ctz"},
	0x69: {name: "i32.popcnt"},
	0x6A: {name: "i32.add"},
	0x6B: {name: "i32.sub"},
	0x6C: {name: "i32.mul"},
	0x6D: {name: "i32.div_s"},
	0x6E: {name: "i32.div_u"},
	0x6F: {name: "i32.rem_s"},
	0x70: {name: "i32.rem_u"},
	0x71: {name: "i32.and"},
	0x72: {name: "i32.or"},
	0x73: {name: "i32.xor"},
	0x74: {name: "i32.shl"},
	0x75: {name: "i32.shr_s"},
	0x76: {name: "i32.shr_u"},
	0x77: {name: "i32.rotl"},
	0x78: {name: "i32.rotr"},
	0x79: {name: "i64.clz"},
	0x7A: {name: "i64.ctz"},
	0x7B: {name: "i64.popcnt"},
	0x7C: {name: "i64.add"},
	0x7D: {name: "i64.sub"},
	0x7E: {name: "i64.mul"},
	0x7F: {name: "i64.div_s"},
	0x80: {name: "i64.div_u"},
	0x81: {name: "i64.rem_s"},
	0x82: {name: "i64.rem_u"},
	0x83: {name: "i64.and"},
	0x84: {name: "i64.or"},
	0x85: {name: "i64.xor"},
	0x86: {name: "i64.shl"},
	0x87: {name: "i64.shr_s"},
	0x88: {name: "i64.shr_u"},
	0x89: {name: "i64.rotl"},
	0x8A: {name: "i64.rotr"},

	0x8B: {name: "f32.abs"},
	0x8C: {name: "f32.neg"},
	0x8D: {name: "f32.ceil"},
	0x8E: {name: "f32.floor"},
	0x8F: {name: "f32.trunc"},
	0x90: {name: "f32.nearest"},
	0x91: {name: "f32.sqrt"},
	0x92: {name: "f32.add"},
	0x93: {name: "f32.sub"},
	0x94: {name: "f32.mul"},
	0x95: {name: "f32.div"},
	0x96: {name: "f32.min"},
	0x97: {name: "f32.max"},
	0x98: {name: "f32.copysign"},
	0x99: {name: "f64.abs"},
	0x9A: {name: "f64.neg"},
	0x9B: {name: "f64.ceil"},
	0x9C: {name: "f64.floor"},
	0x9D: {name: "f64.trunc"},
	0x9E: {name: "f64.nearest"},
	0x9F: {name: "f64.sqrt"},
	0xA0: {name: "f64.add"},
	0xA1: {name: "f64.sub"},
	0xA2: {name: "f64.mul"},
	0xA3: {name: "f64.div"},
	0xA4: {name: "f64.min"},
	0xA5: {name: "f64.max"},
	0xA6: {name: "f64.copysign"},

	0xA7: {name: "i32.wrap_i64"},
	0xA8: {name: "i32.trunc_f32_s"},
	0xA9: {name: "i32.trunc_f32_u"},
	0xAA: {name: "i32.trunc_f64_s"},
	0xAB: {name: "i32.trunc_f64_u"},
	0xAC: {name: "i64.extend_i32_s"},
	0xAD: {name: "i64.extend_i32_u"},
	0xAE: {name: "i64.trunc_f32_s"},
	0xAF: {name: "i64.trunc_f32_u"},
	0xB0: {name: "i64.trunc_f64_s"},
	0xB1: {name: "i64.trunc_f64_u"},
	0xB2: {name: "f32.convert_i32_s"},
	0xB3: {name: "f32.convert_i32_u"},
	0xB4: {name: "f32.convert_i64_s"},
	0xB5: {name: "f32.convert_i64_u"},
	0xB6: {name: "f32.demote_f64"},
	0xB7: {name: "f64.convert_i32_s"},
	0xB8: {name: "f64.convert_i32_u"},
	0xB9: {name: "f64.convert_i64_s"},
	0xBA: {name: "f64.convert_i64_u"},
	0xBB: {name: "f64.promote_f32"},
	0xBC: {name: "i32.reinterpret_f32"},
	0xBD: {name: "i64.reinterpret_f64"},
	0xBE: {name: "f32.reinterpret_i32"},
	0xBF: {name: "f64.reinterpret_i64"},

	0xC0: {name: "i32.extend8_s"},
	0xC1: {name: "i32.extend16_s"},
	0xC2: {name: "i64.extend8_s"},
	0xC3: {name: "i64.extend16_s"},
	0xC4: {name: "i64.extend32_s"},

	0xD0: {name: "ref.null", imm: immHeapType},
	0xD1: {name: "ref.is_null"},
	0xD2: {name: "ref.func", imm: immU32},

	0xFC: {imm: immMisc},
}

// miscInfo describes a 0xFC-prefixed instruction: its name and the number
// of u32 immediates that follow the sub-opcode.
type miscInfo struct {
	name string
	imms int
}

var miscTable = map[uint32]miscInfo{
	0:  {name: "i32.trunc_sat_f32_s"},
	1:  {name: "i32.trunc_sat_f32_u"},
	2:  {name: "i32.trunc_sat_f64_s"},
	3:  {name: "i32.trunc_sat_f64_u"},
	4:  {name: "i64.trunc_sat_f32_s"},
	5:  {name: "i64.trunc_sat_f32_u"},
	6:  {name: "i64.trunc_sat_f64_s"},
	7:  {name: "i64.trunc_sat_f64_u"},
	8:  {name: "memory.init", imms: 2},
	9:  {name: "data.drop", imms: 1},
	10: {name: "memory.copy", imms: 2},
	11: {name: "memory.fill", imms: 1},
	12: {name: "table.init", imms: 2},
	13: {name: "elem.drop", imms: 1},
	14: {name: "table.copy", imms: 2},
	15: {name: "table.grow", imms: 1},
	16: {name: "table.size", imms: 1},
	17: {name: "table.fill", imms: 1},
}

// decodeInstr decodes one instruction at the start of b and renders it as
// flat-form WAT. It returns the text, the bytes consumed, and the nesting
// delta the instruction applies (+1 for block/loop/if, -1 for end).
func decodeInstr(b []byte) (text string, n int, delta int, err error) {
	if len(b) == 0 {
		return "", 0, 0, wasm.ErrUnexpectedEnd
	}
	op := b[0]
	info, ok := instrTable[op]
	if !ok {
		return "", 0, 0, fmt.Errorf("disasm: unknown opcode 0x%02x", op)
	}
	off := 1

	switch info.imm {
	case immNone:
		text = info.name
		switch op {
		case 0x02, 0x03, 0x04:
			delta = 1
		case 0x0B:
			delta = -1
		}

	case immU32, immMemIdx:
		v, sz, derr := wasm.DecodeU32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		if info.imm == immMemIdx && v == 0 {
			text = info.name // single-memory form prints bare
		} else {
			text = fmt.Sprintf("%s %d", info.name, v)
		}

	case immCallInd:
		typeIdx, sz, derr := wasm.DecodeU32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		tableIdx, sz, derr := wasm.DecodeU32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		if tableIdx == 0 {
			text = fmt.Sprintf("%s (type %d)", info.name, typeIdx)
		} else {
			text = fmt.Sprintf("%s %d (type %d)", info.name, tableIdx, typeIdx)
		}

	case immBlock:
		bt, sz, derr := wasm.DecodeS64(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		text = info.name + blockTypeText(bt)
		delta = 1

	case immBrTable:
		count, sz, derr := wasm.DecodeU32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		var sb strings.Builder
		sb.WriteString(info.name)
		for i := uint32(0); i <= count; i++ { // labels plus default
			v, sz, derr := wasm.DecodeU32(b[off:])
			if derr != nil {
				return "", 0, 0, derr
			}
			off += sz
			fmt.Fprintf(&sb, " %d", v)
		}
		text = sb.String()

	case immI32:
		v, sz, derr := wasm.DecodeS32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		text = fmt.Sprintf("%s %d", info.name, v)

	case immI64:
		v, sz, derr := wasm.DecodeS64(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		text = fmt.Sprintf("%s %d", info.name, v)

	case immF32:
		f, sz, derr := wasm.DecodeF32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		text = info.name + " " + f32Text(f)

	case immF64:
		f, sz, derr := wasm.DecodeF64(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		text = info.name + " " + f64Text(f)

	case immMemarg:
		align, sz, derr := wasm.DecodeU32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		offset, sz, derr := wasm.DecodeU64(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		text = info.name
		if offset != 0 {
			text += fmt.Sprintf(" offset=%d", offset)
		}
		if align != info.natAlign {
			text += fmt.Sprintf(" align=%d", uint32(1)<<align)
		}

	case immSelectT:
		count, sz, derr := wasm.DecodeU32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		var sb strings.Builder
		sb.WriteString(info.name)
		for i := uint32(0); i < count; i++ {
			if off >= len(b) {
				return "", 0, 0, wasm.ErrUnexpectedEnd
			}
			fmt.Fprintf(&sb, " (result %s)", wasm.ValType(b[off]))
			off++
		}
		text = sb.String()

	case immHeapType:
		ht, sz, derr := wasm.DecodeS64(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		text = info.name + " " + heapTypeText(ht)

	case immMisc:
		sub, sz, derr := wasm.DecodeU32(b[off:])
		if derr != nil {
			return "", 0, 0, derr
		}
		off += sz
		mi, ok := miscTable[sub]
		if !ok {
			return "", 0, 0, fmt.Errorf("disasm: unknown 0xFC sub-opcode %d", sub)
		}
		var sb strings.Builder
		sb.WriteString(mi.name)
		for i := 0; i < mi.imms; i++ {
			v, sz, derr := wasm.DecodeU32(b[off:])
			if derr != nil {
				return "", 0, 0, derr
			}
			off += sz
			fmt.Fprintf(&sb, " %d", v)
		}
		text = sb.String()
	}

	return text, off, delta, nil
}

func blockTypeText(bt int64) string {
	switch bt {
	case -64: // 0x40, void
		return ""
	case -1:
		return " (result i32)"
	case -2:
		return " (result i64)"
	case -3:
		return " (result f32)"
	case -4:
		return " (result f64)"
	default:
		if bt >= 0 {
			return fmt.Sprintf(" (type %d)", bt)
		}
		return fmt.Sprintf(" (result %s)", wasm.ValType(byte(bt&0x7F)))
	}
}

func heapTypeText(ht int64) string {
	switch ht {
	case -16:
		return "func"
	case -17:
		return "extern"
	default:
		return strconv.FormatInt(ht, 10)
	}
}

// f32Text renders an f32 in WAT syntax without losing the bit pattern:
// NaNs become nan:0x<payload>, infinities inf/-inf, everything else the
// shortest round-tripping decimal.
func f32Text(f float32) string {
	bits := math.Float32bits(f)
	sign := ""
	if bits>>31 == 1 {
		sign = "-"
	}
	switch {
	case f != f:
		payload := bits & 0x7FFFFF
		if payload == 0x400000 {
			return sign + "nan"
		}
		return fmt.Sprintf("%snan:0x%x", sign, payload)
	case math.IsInf(float64(f), 0):
		return sign + "inf"
	default:
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
}

func f64Text(f float64) string {
	bits := math.Float64bits(f)
	sign := ""
	if bits>>63 == 1 {
		sign = "-"
	}
	switch {
	case f != f:
		payload := bits & 0xFFFFFFFFFFFFF
		if payload == 0x8000000000000 {
			return sign + "nan"
		}
		return fmt.Sprintf("%snan:0x%x", sign, payload)
	case math.IsInf(f, 0):
		return sign + "inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
