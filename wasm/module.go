package wasm

import (
	"bytes"
	"fmt"
)

// Module is the section-level decoding of a binary module. Function bodies
// and constant expressions are kept as raw instruction bytes.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type index per module-defined function
	Tables   []Table
	Memories []Limits
	Globals  []Global
	Exports  []Export
	Start    *uint32
	Elems    []Elem
	Code     []Func
	Data     []Data
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Limits bounds a table or memory.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
}

// Table declares a table of reference values.
type Table struct {
	Elem ValType
	Lim  Limits
}

// Global declares a global with its init expression bytes (end stripped).
type Global struct {
	Type    ValType
	Mutable bool
	Init    []byte
}

// Import is one imported definition. Exactly one of the typed fields is
// meaningful, selected by Kind.
type Import struct {
	Module  string
	Name    string
	Kind    ExternKind
	TypeIdx uint32 // Kind == ExternFunc
	Table   Table  // Kind == ExternTable
	Mem     Limits // Kind == ExternMemory
	Global  Global // Kind == ExternGlobal, Init unused
}

// Export is one exported definition.
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// Elem is an element segment. Only function-index segments are resolved;
// expression-encoded segments keep their raw entries.
type Elem struct {
	TableIdx uint32
	Offset   []byte // active segments only; init expression bytes
	Funcs    []uint32
	Passive  bool
	Declared bool
}

// Func is one entry of the code section.
type Func struct {
	Locals []Local
	Body   []byte // instruction bytes including the trailing end
}

// Local is a run of identically-typed locals.
type Local struct {
	Count uint32
	Type  ValType
}

// Data is a data segment.
type Data struct {
	MemIdx  uint32
	Offset  []byte // active segments only
	Init    []byte
	Passive bool
}

// NumImportedFuncs returns the number of imported functions, which offsets
// every function index used by exports and element segments.
func (m *Module) NumImportedFuncs() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Kind == ExternFunc {
			n++
		}
	}
	return n
}

// TypeOfFunc resolves the signature of function index idx across the
// imported and module-defined index spaces.
func (m *Module) TypeOfFunc(idx uint32) (FuncType, error) {
	var seen uint32
	for _, imp := range m.Imports {
		if imp.Kind != ExternFunc {
			continue
		}
		if seen == idx {
			return m.typeAt(imp.TypeIdx)
		}
		seen++
	}
	local := idx - seen
	if int(local) >= len(m.Funcs) {
		return FuncType{}, fmt.Errorf("wasm: function index %d out of range", idx)
	}
	return m.typeAt(m.Funcs[local])
}

func (m *Module) typeAt(idx uint32) (FuncType, error) {
	if int(idx) >= len(m.Types) {
		return FuncType{}, fmt.Errorf("wasm: type index %d out of range", idx)
	}
	return m.Types[idx], nil
}

// Parse decodes a binary module at the section level.
func Parse(bin []byte) (*Module, error) {
	if !bytes.HasPrefix(bin, Header) {
		return nil, fmt.Errorf("wasm: bad magic or version")
	}
	p := &parser{b: bin, off: len(Header)}
	m := &Module{}
	for p.off < len(p.b) {
		id := p.b[p.off]
		p.off++
		size := p.u32()
		if p.err != nil {
			return nil, p.err
		}
		end := p.off + int(size)
		if end > len(p.b) {
			return nil, fmt.Errorf("wasm: section %d extends past end of module", id)
		}
		switch id {
		case SectionCustom:
			p.off = end // name sections and friends are irrelevant here
		case SectionType:
			p.typeSection(m)
		case SectionImport:
			p.importSection(m)
		case SectionFunction:
			for n := p.u32(); n > 0 && p.err == nil; n-- {
				m.Funcs = append(m.Funcs, p.u32())
			}
		case SectionTable:
			for n := p.u32(); n > 0 && p.err == nil; n-- {
				m.Tables = append(m.Tables, p.table())
			}
		case SectionMemory:
			for n := p.u32(); n > 0 && p.err == nil; n-- {
				m.Memories = append(m.Memories, p.limits())
			}
		case SectionGlobal:
			for n := p.u32(); n > 0 && p.err == nil; n-- {
				m.Globals = append(m.Globals, p.global())
			}
		case SectionExport:
			for n := p.u32(); n > 0 && p.err == nil; n-- {
				m.Exports = append(m.Exports, Export{
					Name:  p.name(),
					Kind:  ExternKind(p.byte()),
					Index: p.u32(),
				})
			}
		case SectionStart:
			idx := p.u32()
			m.Start = &idx
		case SectionElement:
			p.elemSection(m)
		case SectionCode:
			p.codeSection(m)
		case SectionData:
			p.dataSection(m)
		case SectionDataCnt:
			p.u32()
		default:
			return nil, fmt.Errorf("wasm: unknown section id %d", id)
		}
		if p.err != nil {
			return nil, fmt.Errorf("wasm: section %d: %w", id, p.err)
		}
		if p.off != end {
			return nil, fmt.Errorf("wasm: section %d: %d trailing bytes", id, end-p.off)
		}
	}
	return m, nil
}

type parser struct {
	b   []byte
	off int
	err error
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func (p *parser) byte() byte {
	if p.err != nil {
		return 0
	}
	if p.off >= len(p.b) {
		p.fail("unexpected end of input")
		return 0
	}
	c := p.b[p.off]
	p.off++
	return c
}

func (p *parser) u32() uint32 {
	if p.err != nil {
		return 0
	}
	v, n, err := DecodeU32(p.b[p.off:])
	if err != nil {
		p.err = err
		return 0
	}
	p.off += n
	return v
}

func (p *parser) bytes(n uint32) []byte {
	if p.err != nil {
		return nil
	}
	if p.off+int(n) > len(p.b) {
		p.fail("unexpected end of input")
		return nil
	}
	out := p.b[p.off : p.off+int(n)]
	p.off += int(n)
	return out
}

func (p *parser) name() string {
	return string(p.bytes(p.u32()))
}

func (p *parser) valType() ValType {
	t := ValType(p.byte())
	switch t {
	case ValI32, ValI64, ValF32, ValF64, ValFuncRef, ValExternRef:
		return t
	default:
		p.fail("invalid value type 0x%02x", byte(t))
		return 0
	}
}

func (p *parser) limits() Limits {
	flags := p.byte()
	lim := Limits{Min: p.u32()}
	if flags&0x01 != 0 {
		lim.Max = p.u32()
		lim.HasMax = true
	}
	return lim
}

func (p *parser) table() Table {
	return Table{Elem: p.valType(), Lim: p.limits()}
}

func (p *parser) globalType() (ValType, bool) {
	t := p.valType()
	mut := p.byte()
	if mut > 1 {
		p.fail("invalid mutability flag %d", mut)
	}
	return t, mut == 1
}

func (p *parser) global() Global {
	t, mut := p.globalType()
	return Global{Type: t, Mutable: mut, Init: p.constExpr()}
}

// constExpr consumes a constant expression and returns its bytes with the
// terminating end stripped. Constant expressions are flat, so the immediates
// of the handful of legal opcodes are enough to find the terminator.
func (p *parser) constExpr() []byte {
	start := p.off
	for p.err == nil {
		op := p.byte()
		switch op {
		case OpEnd:
			return p.b[start : p.off-1]
		case OpI32Const:
			_, n, err := DecodeS32(p.b[p.off:])
			p.advance(n, err)
		case OpI64Const:
			_, n, err := DecodeS64(p.b[p.off:])
			p.advance(n, err)
		case OpF32Const:
			p.bytes(4)
		case OpF64Const:
			p.bytes(8)
		case 0x23, 0xD2: // global.get, ref.func
			p.u32()
		case 0xD0: // ref.null: heap type
			_, n, err := DecodeS64(p.b[p.off:])
			p.advance(n, err)
		default:
			p.fail("unexpected opcode 0x%02x in constant expression", op)
		}
	}
	return nil
}

func (p *parser) advance(n int, err error) {
	if p.err != nil {
		return
	}
	if err != nil {
		p.err = err
		return
	}
	p.off += n
}

func (p *parser) typeSection(m *Module) {
	for n := p.u32(); n > 0 && p.err == nil; n-- {
		if tag := p.byte(); tag != funcTypeTag {
			p.fail("invalid function type tag 0x%02x", tag)
			return
		}
		var ft FuncType
		for k := p.u32(); k > 0 && p.err == nil; k-- {
			ft.Params = append(ft.Params, p.valType())
		}
		for k := p.u32(); k > 0 && p.err == nil; k-- {
			ft.Results = append(ft.Results, p.valType())
		}
		m.Types = append(m.Types, ft)
	}
}

func (p *parser) importSection(m *Module) {
	for n := p.u32(); n > 0 && p.err == nil; n-- {
		imp := Import{Module: p.name(), Name: p.name(), Kind: ExternKind(p.byte())}
		switch imp.Kind {
		case ExternFunc:
			imp.TypeIdx = p.u32()
		case ExternTable:
			imp.Table = p.table()
		case ExternMemory:
			imp.Mem = p.limits()
		case ExternGlobal:
			t, mut := p.globalType()
			imp.Global = Global{Type: t, Mutable: mut}
		default:
			p.fail("invalid import kind %d", imp.Kind)
		}
		m.Imports = append(m.Imports, imp)
	}
}

func (p *parser) elemSection(m *Module) {
	for n := p.u32(); n > 0 && p.err == nil; n-- {
		flags := p.u32()
		var e Elem
		switch flags {
		case 0:
			e.Offset = p.constExpr()
			e.Funcs = p.funcIdxVec()
		case 1:
			p.byte() // elemkind
			e.Passive = true
			e.Funcs = p.funcIdxVec()
		case 2:
			e.TableIdx = p.u32()
			e.Offset = p.constExpr()
			p.byte() // elemkind
			e.Funcs = p.funcIdxVec()
		case 3:
			p.byte() // elemkind
			e.Declared = true
			e.Funcs = p.funcIdxVec()
		case 4:
			e.Offset = p.constExpr()
			e.Funcs = p.exprVec()
		case 5, 7:
			p.byte() // reftype
			e.Passive = flags == 5
			e.Declared = flags == 7
			e.Funcs = p.exprVec()
		case 6:
			e.TableIdx = p.u32()
			e.Offset = p.constExpr()
			p.byte() // reftype
			e.Funcs = p.exprVec()
		default:
			p.fail("invalid element segment flags %d", flags)
		}
		m.Elems = append(m.Elems, e)
	}
}

func (p *parser) funcIdxVec() []uint32 {
	n := p.u32()
	out := make([]uint32, 0, n)
	for ; n > 0 && p.err == nil; n-- {
		out = append(out, p.u32())
	}
	return out
}

// exprVec resolves expression-encoded element entries of the form
// (ref.func N) or (ref.null); nulls are dropped from the resolved list.
func (p *parser) exprVec() []uint32 {
	n := p.u32()
	var out []uint32
	for ; n > 0 && p.err == nil; n-- {
		expr := p.constExpr()
		if len(expr) > 0 && expr[0] == 0xD2 {
			idx, _, err := DecodeU32(expr[1:])
			if err != nil {
				p.err = err
				return nil
			}
			out = append(out, idx)
		}
	}
	return out
}

func (p *parser) codeSection(m *Module) {
	for n := p.u32(); n > 0 && p.err == nil; n-- {
		size := p.u32()
		body := p.bytes(size)
		if p.err != nil {
			return
		}
		fn, err := parseFuncBody(body)
		if err != nil {
			p.err = err
			return
		}
		m.Code = append(m.Code, fn)
	}
}

func parseFuncBody(body []byte) (Func, error) {
	count, n, err := DecodeU32(body)
	if err != nil {
		return Func{}, err
	}
	off := n
	fn := Func{Locals: make([]Local, 0, count)}
	for i := uint32(0); i < count; i++ {
		cnt, n, err := DecodeU32(body[off:])
		if err != nil {
			return Func{}, err
		}
		off += n
		if off >= len(body) {
			return Func{}, ErrUnexpectedEnd
		}
		fn.Locals = append(fn.Locals, Local{Count: cnt, Type: ValType(body[off])})
		off++
	}
	fn.Body = body[off:]
	return fn, nil
}

func (p *parser) dataSection(m *Module) {
	for n := p.u32(); n > 0 && p.err == nil; n-- {
		flags := p.u32()
		var d Data
		switch flags {
		case 0:
			d.Offset = p.constExpr()
		case 1:
			d.Passive = true
		case 2:
			d.MemIdx = p.u32()
			d.Offset = p.constExpr()
		default:
			p.fail("invalid data segment flags %d", flags)
		}
		d.Init = p.bytes(p.u32())
		m.Data = append(m.Data, d)
	}
}
