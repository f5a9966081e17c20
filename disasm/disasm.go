// Package disasm renders binary modules as WebAssembly text. The output
// follows the flat (non-folded) form that wasm2wat produces, which keeps
// generated test files diffable against reference tooling.
package disasm

import (
	"fmt"
	"strings"

	"github.com/wasmkit/wastgen/wasm"
)

// Disassemble parses a binary module and renders it as text.
func Disassemble(bin []byte) (string, error) {
	m, err := wasm.Parse(bin)
	if err != nil {
		return "", err
	}
	return Text(m)
}

// Text renders a parsed module as text.
func Text(m *wasm.Module) (string, error) {
	p := &printer{m: m}
	p.line(0, "(module")
	p.types()
	if err := p.imports(); err != nil {
		return "", err
	}
	if err := p.funcs(); err != nil {
		return "", err
	}
	p.tables()
	p.memories()
	if err := p.globals(); err != nil {
		return "", err
	}
	p.exports()
	if m.Start != nil {
		p.line(1, "(start %d)", *m.Start)
	}
	if err := p.elems(); err != nil {
		return "", err
	}
	p.data()
	p.line(0, ")")
	return p.sb.String(), nil
}

type printer struct {
	m  *wasm.Module
	sb strings.Builder
}

func (p *printer) line(indent int, format string, args ...any) {
	for i := 0; i < indent; i++ {
		p.sb.WriteString("  ")
	}
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) types() {
	for i, ft := range p.m.Types {
		p.line(1, "(type (;%d;) (func%s))", i, sigText(ft))
	}
}

func sigText(ft wasm.FuncType) string {
	var sb strings.Builder
	if len(ft.Params) > 0 {
		sb.WriteString(" (param")
		for _, t := range ft.Params {
			sb.WriteString(" " + t.String())
		}
		sb.WriteString(")")
	}
	if len(ft.Results) > 0 {
		sb.WriteString(" (result")
		for _, t := range ft.Results {
			sb.WriteString(" " + t.String())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

func limitsText(lim wasm.Limits) string {
	if lim.HasMax {
		return fmt.Sprintf("%d %d", lim.Min, lim.Max)
	}
	return fmt.Sprintf("%d", lim.Min)
}

func globalTypeText(g wasm.Global) string {
	if g.Mutable {
		return fmt.Sprintf("(mut %s)", g.Type)
	}
	return g.Type.String()
}

func (p *printer) imports() error {
	var nFunc, nTable, nMem, nGlobal int
	for _, imp := range p.m.Imports {
		var desc string
		switch imp.Kind {
		case wasm.ExternFunc:
			desc = fmt.Sprintf("(func (;%d;) (type %d))", nFunc, imp.TypeIdx)
			nFunc++
		case wasm.ExternTable:
			desc = fmt.Sprintf("(table (;%d;) %s %s)", nTable, limitsText(imp.Table.Lim), imp.Table.Elem)
			nTable++
		case wasm.ExternMemory:
			desc = fmt.Sprintf("(memory (;%d;) %s)", nMem, limitsText(imp.Mem))
			nMem++
		case wasm.ExternGlobal:
			desc = fmt.Sprintf("(global (;%d;) %s)", nGlobal, globalTypeText(imp.Global))
			nGlobal++
		default:
			return fmt.Errorf("disasm: import %q.%q has unknown kind", imp.Module, imp.Name)
		}
		p.line(1, "(import %q %q %s)", imp.Module, imp.Name, desc)
	}
	return nil
}

func (p *printer) funcs() error {
	base := int(p.m.NumImportedFuncs())
	for i, typeIdx := range p.m.Funcs {
		if int(typeIdx) >= len(p.m.Types) {
			return fmt.Errorf("disasm: function %d references type %d out of range", i, typeIdx)
		}
		p.line(1, "(func (;%d;) (type %d)%s", base+i, typeIdx, sigText(p.m.Types[typeIdx]))
		if i >= len(p.m.Code) {
			return fmt.Errorf("disasm: function %d has no body", base+i)
		}
		fn := p.m.Code[i]
		if len(fn.Locals) > 0 {
			var sb strings.Builder
			sb.WriteString("(local")
			for _, l := range fn.Locals {
				for k := uint32(0); k < l.Count; k++ {
					sb.WriteString(" " + l.Type.String())
				}
			}
			sb.WriteString(")")
			p.line(2, "%s", sb.String())
		}
		if err := p.body(fn.Body); err != nil {
			return fmt.Errorf("disasm: function %d: %w", base+i, err)
		}
		p.line(1, ")")
	}
	return nil
}

// body prints a function body, indenting with block structure. The final
// end closes the function itself and is dropped in favor of the closing
// paren the caller prints.
func (p *printer) body(b []byte) error {
	depth := 1
	off := 0
	for off < len(b) {
		text, n, delta, err := decodeInstr(b[off:])
		if err != nil {
			return err
		}
		off += n
		if delta < 0 {
			depth += delta
			if depth == 0 {
				if off != len(b) {
					return fmt.Errorf("code after final end")
				}
				return nil
			}
		}
		indent := depth
		if text == "else" {
			indent = depth - 1
		}
		p.line(1+indent, "%s", text)
		if delta > 0 {
			depth += delta
		}
	}
	return wasm.ErrUnexpectedEnd
}

func (p *printer) tables() {
	for i, t := range p.m.Tables {
		p.line(1, "(table (;%d;) %s %s)", i, limitsText(t.Lim), t.Elem)
	}
}

func (p *printer) memories() {
	for i, lim := range p.m.Memories {
		p.line(1, "(memory (;%d;) %s)", i, limitsText(lim))
	}
}

func (p *printer) globals() error {
	for i, g := range p.m.Globals {
		init, err := constExprText(g.Init)
		if err != nil {
			return fmt.Errorf("disasm: global %d: %w", i, err)
		}
		p.line(1, "(global (;%d;) %s (%s))", i, globalTypeText(g), init)
	}
	return nil
}

func (p *printer) exports() {
	for _, e := range p.m.Exports {
		p.line(1, "(export %q (%s %d))", e.Name, e.Kind, e.Index)
	}
}

func (p *printer) elems() error {
	for i, e := range p.m.Elems {
		var sb strings.Builder
		fmt.Fprintf(&sb, "(elem (;%d;)", i)
		switch {
		case e.Declared:
			sb.WriteString(" declare")
		case e.Passive:
			// no offset clause
		default:
			init, err := constExprText(e.Offset)
			if err != nil {
				return fmt.Errorf("disasm: elem %d: %w", i, err)
			}
			if e.TableIdx != 0 {
				fmt.Fprintf(&sb, " (table %d)", e.TableIdx)
			}
			fmt.Fprintf(&sb, " (%s)", init)
		}
		sb.WriteString(" func")
		for _, fi := range e.Funcs {
			fmt.Fprintf(&sb, " %d", fi)
		}
		sb.WriteString(")")
		p.line(1, "%s", sb.String())
	}
	return nil
}

func (p *printer) data() {
	for i, d := range p.m.Data {
		if d.Passive {
			p.line(1, "(data (;%d;) %s)", i, dataString(d.Init))
			continue
		}
		init, err := constExprText(d.Offset)
		if err != nil {
			init = "?"
		}
		if d.MemIdx != 0 {
			p.line(1, "(data (;%d;) (memory %d) (%s) %s)", i, d.MemIdx, init, dataString(d.Init))
		} else {
			p.line(1, "(data (;%d;) (%s) %s)", i, init, dataString(d.Init))
		}
	}
}

// constExprText renders a single-instruction constant expression whose
// terminating end has already been stripped by the parser.
func constExprText(expr []byte) (string, error) {
	text, n, _, err := decodeInstr(expr)
	if err != nil {
		return "", err
	}
	if n != len(expr) {
		return "", fmt.Errorf("multi-instruction constant expression")
	}
	return text, nil
}

// dataString renders segment bytes in WAT string syntax: printable ASCII
// stays literal, everything else becomes a two-digit hex escape.
func dataString(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		switch {
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\\':
			sb.WriteString(`\\`)
		case c >= 0x20 && c < 0x7F:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "\\%02x", c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
