// Package wasm provides the binary-format primitives wastgen needs: LEB128
// and IEEE-754 little-endian codecs, section and opcode constants, a
// section-level parser for core WebAssembly modules, and append-style
// encoding helpers.
//
// The parser is deliberately structural. It resolves sections, types,
// imports, exports, and function bodies, but leaves instruction sequences as
// raw bytes for the disasm package to walk. Proposals beyond core
// WebAssembly 2.0 (GC, SIMD, threads, exceptions) are out of scope: the spec
// suites this tool consumes do not use them, and an unknown opcode surfaces
// as a parse error rather than a misread module.
package wasm
