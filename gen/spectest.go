package gen

import (
	"github.com/wasmkit/wastgen/wasm"
)

// SpectestWAT is the text form of the shared import environment every
// generated module instantiates against.
const SpectestWAT = `(module
  (func (export "print_i32") (param i32))
  (func (export "print"))
  (table (export "table") 10 20 funcref)
  (memory (export "memory") 1 2)
  (global (export "global_i32") i32 (i32.const 666)))`

// SpectestModule assembles the binary form of SpectestWAT. The generator
// embeds the bytes in the output artifact so generated tests need no
// text-to-binary step at run time.
func SpectestModule() []byte {
	var types []byte
	types = wasm.AppendU32(types, 2)
	types = wasm.AppendFuncType(types, wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}})
	types = wasm.AppendFuncType(types, wasm.FuncType{})

	var funcs []byte
	funcs = wasm.AppendU32(funcs, 2)
	funcs = wasm.AppendU32(funcs, 0)
	funcs = wasm.AppendU32(funcs, 1)

	var tables []byte
	tables = wasm.AppendU32(tables, 1)
	tables = append(tables, byte(wasm.ValFuncRef))
	tables = wasm.AppendLimits(tables, wasm.Limits{Min: 10, Max: 20, HasMax: true})

	var mems []byte
	mems = wasm.AppendU32(mems, 1)
	mems = wasm.AppendLimits(mems, wasm.Limits{Min: 1, Max: 2, HasMax: true})

	var globals []byte
	globals = wasm.AppendU32(globals, 1)
	globals = append(globals, byte(wasm.ValI32), 0x00)
	globals = wasm.AppendI32Const(globals, 666)

	var exports []byte
	exports = wasm.AppendU32(exports, 5)
	exports = wasm.AppendExport(exports, wasm.Export{Name: "print_i32", Kind: wasm.ExternFunc, Index: 0})
	exports = wasm.AppendExport(exports, wasm.Export{Name: "print", Kind: wasm.ExternFunc, Index: 1})
	exports = wasm.AppendExport(exports, wasm.Export{Name: "table", Kind: wasm.ExternTable, Index: 0})
	exports = wasm.AppendExport(exports, wasm.Export{Name: "memory", Kind: wasm.ExternMemory, Index: 0})
	exports = wasm.AppendExport(exports, wasm.Export{Name: "global_i32", Kind: wasm.ExternGlobal, Index: 0})

	var code []byte
	code = wasm.AppendU32(code, 2)
	emptyBody := []byte{0x00, wasm.OpEnd}
	for i := 0; i < 2; i++ {
		code = wasm.AppendU32(code, uint32(len(emptyBody)))
		code = append(code, emptyBody...)
	}

	bin := append([]byte{}, wasm.Header...)
	bin = wasm.AppendSection(bin, wasm.SectionType, types)
	bin = wasm.AppendSection(bin, wasm.SectionFunction, funcs)
	bin = wasm.AppendSection(bin, wasm.SectionTable, tables)
	bin = wasm.AppendSection(bin, wasm.SectionMemory, mems)
	bin = wasm.AppendSection(bin, wasm.SectionGlobal, globals)
	bin = wasm.AppendSection(bin, wasm.SectionExport, exports)
	bin = wasm.AppendSection(bin, wasm.SectionCode, code)
	return bin
}
