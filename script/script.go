// Package script models a parsed spec-test script: an ordered sequence of
// commands over binary modules, decoded from the JSON form that wast2json
// produces. The generator consumes this model; it never sees wast text.
package script

import (
	"fmt"
	"math"
	"strings"
)

// Script is one decoded test script.
type Script struct {
	// SourceFilename is the .wast path recorded by wast2json.
	SourceFilename string
	Commands       []Command
}

// Command pairs a script line with what the line asks for. Line is used
// for naming and diagnostics only.
type Command struct {
	Line uint32
	Kind CommandKind
}

// CommandKind is the closed set of command variants. The generator switches
// over it exhaustively; kinds it deliberately skips still appear here so a
// new kind is a compile-visible decision, not a silent drop.
type CommandKind interface {
	isCommandKind()
}

// ModuleCmd defines and instantiates a new module, which becomes the
// implicit target of subsequent actions.
type ModuleCmd struct {
	Name   string // optional $id from the script
	Binary []byte
}

// AssertReturn invokes an action and compares its results.
type AssertReturn struct {
	Action   Invoke
	Expected []Value
}

// AssertReturnCanonicalNaN invokes an action whose single float result
// must be a canonical NaN.
type AssertReturnCanonicalNaN struct {
	Action Invoke
}

// AssertReturnArithmeticNaN invokes an action whose single float result
// must be an arithmetic (quiet) NaN.
type AssertReturnArithmeticNaN struct {
	Action Invoke
}

// AssertTrap invokes an action that must fail at runtime.
type AssertTrap struct {
	Action Invoke
	Text   string // expected trap description, diagnostic only
}

// AssertInvalid supplies a binary that must fail validation.
type AssertInvalid struct {
	Binary []byte
	Text   string
}

// AssertMalformed supplies a binary that must fail decoding.
type AssertMalformed struct {
	Binary []byte
	Text   string
}

// AssertUninstantiable, AssertExhaustion, AssertUnlinkable and Register
// are accepted but generate no test units.
type AssertUninstantiable struct{ Binary []byte }
type AssertExhaustion struct{ Action Invoke }
type AssertUnlinkable struct{ Binary []byte }
type Register struct {
	As   string
	Name string
}

// PerformAction invokes an action without asserting on its results.
type PerformAction struct {
	Action Invoke
}

func (ModuleCmd) isCommandKind()                 {}
func (AssertReturn) isCommandKind()              {}
func (AssertReturnCanonicalNaN) isCommandKind()  {}
func (AssertReturnArithmeticNaN) isCommandKind() {}
func (AssertTrap) isCommandKind()                {}
func (AssertInvalid) isCommandKind()             {}
func (AssertMalformed) isCommandKind()           {}
func (AssertUninstantiable) isCommandKind()      {}
func (AssertExhaustion) isCommandKind()          {}
func (AssertUnlinkable) isCommandKind()          {}
func (Register) isCommandKind()                  {}
func (PerformAction) isCommandKind()             {}

// Invoke names an exported function and the arguments to call it with.
// An empty Module targets the most recently defined module.
type Invoke struct {
	Module string
	Field  string
	Args   []Value
}

// ValueKind tags a Value.
type ValueKind int

const (
	KindI32 ValueKind = iota
	KindI64
	KindF32
	KindF64
)

func (k ValueKind) String() string {
	switch k {
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Value is a typed scalar holding its exact bit pattern. Floats are kept
// as bits so NaN payloads and signed zeros survive untouched.
type Value struct {
	Kind ValueKind
	Bits uint64
}

func I32(v int32) Value      { return Value{Kind: KindI32, Bits: uint64(uint32(v))} }
func I64(v int64) Value      { return Value{Kind: KindI64, Bits: uint64(v)} }
func F32Bits(b uint32) Value { return Value{Kind: KindF32, Bits: uint64(b)} }
func F64Bits(b uint64) Value { return Value{Kind: KindF64, Bits: b} }

func (v Value) AsI32() int32   { return int32(uint32(v.Bits)) }
func (v Value) AsI64() int64   { return int64(v.Bits) }
func (v Value) AsF32() float32 { return math.Float32frombits(uint32(v.Bits)) }
func (v Value) AsF64() float64 { return math.Float64frombits(v.Bits) }

// String renders the value for diagnostics, floats by bit pattern.
func (v Value) String() string {
	switch v.Kind {
	case KindI32:
		return fmt.Sprintf("i32:%d", v.AsI32())
	case KindI64:
		return fmt.Sprintf("i64:%d", v.AsI64())
	case KindF32:
		return fmt.Sprintf("f32:0x%08x", uint32(v.Bits))
	case KindF64:
		return fmt.Sprintf("f64:0x%016x", v.Bits)
	default:
		return "invalid"
	}
}

func (a Invoke) String() string {
	args := make([]string, len(a.Args))
	for i, v := range a.Args {
		args[i] = v.String()
	}
	target := a.Field
	if a.Module != "" {
		target = a.Module + "." + a.Field
	}
	return fmt.Sprintf("invoke %q(%s)", target, strings.Join(args, ", "))
}
