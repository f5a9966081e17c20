// Package errors provides structured error types for the test generator.
//
// Errors are categorized by Phase (where in the pipeline the error occurred)
// and Kind (error category). The Error type carries the originating script
// path and line plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindDecode).
//		Script("spec/i32.json").
//		Line(42).
//		Detail("unknown command type %q", typ).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Parse(errors.KindIO, "read script", cause)
//	err := errors.Disasm("module 3", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
