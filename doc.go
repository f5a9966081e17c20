// Package wastgen generates Go test code from WebAssembly spec-test scripts.
//
// The input is the wast2json command-stream form of a .wast script: an
// ordered sequence of module definitions, action invocations, and assertions.
// The output is a single Go test file that compiles and instantiates each
// scripted module against the wazero runtime and asserts every scripted
// result with bit-exact numeric fidelity, including NaN payloads and signed
// zeros/infinities that a naive decimal round-trip would silently normalize.
//
// # Architecture Overview
//
// The repository is organized into small packages with distinct
// responsibilities:
//
//	wastgen/
//	├── script/      Command-stream data model and wast2json decoding
//	├── gen/         The translation engine: value codec, command visitor,
//	│                call aggregator, generator state, bundle emitter
//	├── wasm/        Binary-format primitives: LEB128, sections, module parsing
//	├── disasm/      Binary module to WAT text, for diagnostic embedding
//	├── errors/      Structured error types shared across packages
//	└── cmd/wastgen  Command-line driver
//
// # Quick Start
//
// Generate a test file for a directory of wast2json outputs:
//
//	wastgen -dir testdata/spec -outdir ./spectests
//
// Each non-fat script contributes one namespaced block to the artifact: a
// factory and start hook per scripted module, one standalone test per
// assert_invalid/assert_malformed/assert_trap, and one batched test per
// module that accumulated pending calls. Scripts whose command count exceeds
// the fat threshold are skipped (logged, never an error) to bound the size of
// the generated suite.
package wastgen
