package disasm

import (
	"math"
	"strings"
	"testing"

	"github.com/wasmkit/wastgen/wasm"
)

// addModule assembles (module (func (export "add") (param i32 i32)
// (result i32) ...) (memory 1 2) (global i32 (i32.const 666))).
func addModule(body []byte) []byte {
	var types []byte
	types = wasm.AppendU32(types, 1)
	types = wasm.AppendFuncType(types, wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	})

	var funcs []byte
	funcs = wasm.AppendU32(funcs, 1)
	funcs = wasm.AppendU32(funcs, 0)

	var mems []byte
	mems = wasm.AppendU32(mems, 1)
	mems = wasm.AppendLimits(mems, wasm.Limits{Min: 1, Max: 2, HasMax: true})

	var globals []byte
	globals = wasm.AppendU32(globals, 1)
	globals = append(globals, byte(wasm.ValI32), 0x00)
	globals = wasm.AppendI32Const(globals, 666)

	var exports []byte
	exports = wasm.AppendU32(exports, 1)
	exports = wasm.AppendExport(exports, wasm.Export{Name: "add", Kind: wasm.ExternFunc, Index: 0})

	var code []byte
	code = wasm.AppendU32(code, 1)
	full := append([]byte{0x00}, body...) // no locals
	code = wasm.AppendU32(code, uint32(len(full)))
	code = append(code, full...)

	bin := append([]byte{}, wasm.Header...)
	bin = wasm.AppendSection(bin, wasm.SectionType, types)
	bin = wasm.AppendSection(bin, wasm.SectionFunction, funcs)
	bin = wasm.AppendSection(bin, wasm.SectionMemory, mems)
	bin = wasm.AppendSection(bin, wasm.SectionGlobal, globals)
	bin = wasm.AppendSection(bin, wasm.SectionExport, exports)
	bin = wasm.AppendSection(bin, wasm.SectionCode, code)
	return bin
}

func TestDisassembleModule(t *testing.T) {
	body := []byte{
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x6A,         // i32.add
		wasm.OpEnd,
	}
	text, err := Disassemble(addModule(body))
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	for _, want := range []string{
		"(module\n",
		"(type (;0;) (func (param i32 i32) (result i32)))",
		"(func (;0;) (type 0) (param i32 i32) (result i32)",
		"    local.get 0\n",
		"    i32.add\n",
		"(memory (;0;) 1 2)",
		"(global (;0;) i32 (i32.const 666))",
		`(export "add" (func 0))`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestBlockIndentation(t *testing.T) {
	body := []byte{
		0x02, 0x40, // block (void)
		0x41, 0x0B, // i32.const 11 (immediate collides with the end opcode)
		0x1A,       // drop
		0x0B,       // end (block)
		0x20, 0x00, // local.get 0
		wasm.OpEnd,
	}
	text, err := Disassemble(addModule(body))
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	for _, want := range []string{
		"    block\n",
		"      i32.const 11\n",
		"      drop\n",
		"    end\n",
		"    local.get 0\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestFloatConstRendering(t *testing.T) {
	f32bits := func(bits uint32) []byte {
		return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
	}
	body := []byte{0x43}
	body = append(body, f32bits(0x7FC00001)...) // f32.const nan:0x400001
	body = append(body, 0x1A)                   // drop
	body = append(body, 0x43)
	body = append(body, f32bits(math.Float32bits(float32(math.Inf(-1))))...)
	body = append(body, 0x1A)
	body = append(body, 0x43)
	body = append(body, f32bits(0x80000000)...) // -0
	body = append(body, 0x1A)
	body = append(body, 0x20, 0x00, wasm.OpEnd)

	text, err := Disassemble(addModule(body))
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	for _, want := range []string{
		"f32.const nan:0x400001",
		"f32.const -inf",
		"f32.const -0",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestMemargRendering(t *testing.T) {
	body := []byte{
		0x41, 0x00, // i32.const 0
		0x28, 0x02, 0x04, // i32.load align=4(natural) offset=4
		wasm.OpEnd,
	}
	text, err := Disassemble(addModule(body))
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(text, "i32.load offset=4\n") {
		t.Errorf("natural alignment should not be spelled out:\n%s", text)
	}

	body = []byte{
		0x41, 0x00,
		0x28, 0x00, 0x00, // i32.load align=1
		wasm.OpEnd,
	}
	text, err = Disassemble(addModule(body))
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(text, "i32.load align=1\n") {
		t.Errorf("non-natural alignment missing:\n%s", text)
	}
}

func TestUnknownOpcode(t *testing.T) {
	body := []byte{0xFB, wasm.OpEnd}
	if _, err := Disassemble(addModule(body)); err == nil {
		t.Error("expected error for unknown opcode")
	}
}

func TestDataSegmentString(t *testing.T) {
	got := dataString([]byte("hi\x00\xff\""))
	want := `"hi\00\ff\""`
	if got != want {
		t.Errorf("dataString = %s, want %s", got, want)
	}
}
