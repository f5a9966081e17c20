package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the pipeline the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // script and module decoding
	PhaseDisasm   Phase = "disasm"   // binary to text conversion
	PhaseGenerate Phase = "generate" // test-code emission
	PhaseVerify   Phase = "verify"   // preflight module compilation
	PhaseWrite    Phase = "write"    // artifact output
)

// Kind categorizes the error
type Kind string

const (
	KindIO          Kind = "io"
	KindDecode      Kind = "decode"
	KindInvalidData Kind = "invalid_data"
	KindUnsupported Kind = "unsupported"
	KindCompile     Kind = "compile"
	KindNotFound    Kind = "not_found"
)

// Error is the structured error type used throughout the generator
type Error struct {
	Phase  Phase
	Kind   Kind
	Script string // originating script path, when known
	Line   uint32 // originating script line, when known
	Detail string
	Cause  error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Script != "" {
		b.WriteString(" at ")
		b.WriteString(e.Script)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Script sets the originating script path
func (b *Builder) Script(path string) *Builder {
	b.err.Script = path
	return b
}

// Line sets the originating script line
func (b *Builder) Line(line uint32) *Builder {
	b.err.Line = line
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Parse creates a script or module decoding error
func Parse(kind Kind, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Disasm creates a binary-to-text conversion error
func Disasm(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseDisasm,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Generate creates a test-code emission error
func Generate(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Write creates an artifact output error
func Write(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseWrite,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// Unsupported creates an unsupported construct error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}
