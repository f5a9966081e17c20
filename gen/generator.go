package gen

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/wasmkit/wastgen/disasm"
	"github.com/wasmkit/wastgen/errors"
	"github.com/wasmkit/wastgen/script"
)

// FatThreshold is the command count above which a script's output is
// suppressed to bound generated-code size.
const FatThreshold = 200

// Generator turns one script's command stream into test source. It is
// single use: create one per script, call Consume once, read the buffer.
type Generator struct {
	ns  string
	buf bytes.Buffer

	lastModule   uint32
	lastLine     uint32
	commandCount uint32

	agg         *callAggregator
	moduleNames map[string]uint32
}

// New returns a generator whose emitted identifiers carry the prefix ns.
func New(ns string) *Generator {
	return &Generator{
		ns:          ns,
		agg:         newCallAggregator(),
		moduleNames: make(map[string]uint32),
	}
}

// Consume drives the full command stream, then flushes every module index
// in ascending order. It must be called exactly once.
func (g *Generator) Consume(cmds []script.Command) error {
	for _, c := range cmds {
		g.lastLine = c.Line
		g.commandCount++
		if err := g.command(c); err != nil {
			return err
		}
	}
	for i := uint32(1); i <= g.lastModule; i++ {
		g.flush(i)
	}
	return nil
}

// CommandCount reports how many commands were consumed.
func (g *Generator) CommandCount() uint32 { return g.commandCount }

// IsFat reports whether the script exceeded the suppression threshold.
func (g *Generator) IsFat() bool { return g.commandCount > FatThreshold }

// WriteTo copies the generated source to w.
func (g *Generator) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(g.buf.Bytes())
	return int64(n), err
}

// Output returns the generated source.
func (g *Generator) Output() string { return g.buf.String() }

func (g *Generator) command(c script.Command) error {
	// Every command leaves a line marker, including the kinds that
	// generate no units, so the artifact maps back to the script 1:1.
	fmt.Fprintf(&g.buf, "// Line %d\n", c.Line)

	switch k := c.Kind.(type) {
	case script.ModuleCmd:
		return g.module(k)
	case script.AssertReturn:
		name, err := g.invokeUnit(k.Action, k.Expected)
		if err != nil {
			return err
		}
		g.agg.register(g.batchModule(k.Action), pendingCall{name: name, wrapErr: true})
		return nil
	case script.AssertReturnCanonicalNaN:
		return g.nanUnit(k.Action, "assert_return_canonical_nan")
	case script.AssertReturnArithmeticNaN:
		return g.nanUnit(k.Action, "assert_return_arithmetic_nan")
	case script.AssertTrap:
		return g.assertTrap(k)
	case script.AssertInvalid:
		g.compileFailure(k.Binary, "assert_invalid", k.Text)
		return nil
	case script.AssertMalformed:
		g.compileFailure(k.Binary, "assert_malformed", k.Text)
		return nil
	case script.PerformAction:
		name, err := g.invokeUnit(k.Action, nil)
		if err != nil {
			return err
		}
		g.agg.register(g.batchModule(k.Action), pendingCall{name: name, wrapErr: true})
		return nil
	case script.AssertUninstantiable, script.AssertExhaustion,
		script.AssertUnlinkable, script.Register:
		// Accepted but generate no units.
		return nil
	default:
		return errors.Unsupported(errors.PhaseGenerate, fmt.Sprintf("command kind %T", k))
	}
}

// batchModule picks the module index a batched unit registers under.
// Batches attach to the current module only: an earlier module's batch may
// already be flushed, and a second wrapper for the same index would
// collide. Named references to older modules are honored where a fresh
// instance is safe (trap tests) and warned about here.
func (g *Generator) batchModule(a script.Invoke) uint32 {
	if a.Module != "" {
		if idx, ok := g.moduleNames[a.Module]; ok && idx != g.lastModule {
			Logger().Warn("action names a non-current module; batching against the current instance",
				zap.String("namespace", g.ns),
				zap.String("module", a.Module),
				zap.Uint32("line", g.lastLine))
		}
	}
	return g.lastModule
}

// trapModule resolves the instance a standalone trap test builds; named
// references may target any earlier module since the test instantiates
// its own copy.
func (g *Generator) trapModule(a script.Invoke) uint32 {
	if a.Module != "" {
		if idx, ok := g.moduleNames[a.Module]; ok {
			return idx
		}
	}
	return g.lastModule
}

// unitName derives the unique identity of a generated unit.
func (g *Generator) unitName(suffix string) string {
	return fmt.Sprintf("%sc%d_l%d_%s", g.ns, g.commandCount, g.lastLine, suffix)
}

func (g *Generator) module(k script.ModuleCmd) error {
	if g.lastModule > 0 {
		g.flush(g.lastModule)
	}
	g.lastModule++
	if k.Name != "" {
		g.moduleNames[k.Name] = g.lastModule
	}

	text, err := disasm.Disassemble(k.Binary)
	if err != nil {
		return errors.Disasm(fmt.Sprintf("module %d (line %d)", g.lastModule, g.lastLine), err)
	}

	fmt.Fprintf(&g.buf, "// Module %d\n", g.lastModule)
	fmt.Fprintf(&g.buf, "var %smodule_%d_wasm = []byte{\n", g.ns, g.lastModule)
	writeByteLiteral(&g.buf, k.Binary)
	g.buf.WriteString("}\n\n")

	fmt.Fprintf(&g.buf, "var %smodule_%d_wat = %s\n\n", g.ns, g.lastModule, textLiteral(text))

	fmt.Fprintf(&g.buf, "func %screate_module_%d(t *testing.T, ctx context.Context, r wazero.Runtime) api.Module {\n", g.ns, g.lastModule)
	g.buf.WriteString("\tt.Helper()\n")
	fmt.Fprintf(&g.buf, "\tmod, err := r.InstantiateWithConfig(ctx, %smodule_%d_wasm, wazero.NewModuleConfig())\n", g.ns, g.lastModule)
	fmt.Fprintf(&g.buf, "\trequire.NoError(t, err, %smodule_%d_wat)\n", g.ns, g.lastModule)
	g.buf.WriteString("\treturn mod\n}\n\n")

	// The start function, when present, already ran during instantiation;
	// the hook keeps the batch's call sequence aligned with the script.
	fmt.Fprintf(&g.buf, "func %sstart_module_%d(t *testing.T, ctx context.Context, mod api.Module) {\n}\n\n", g.ns, g.lastModule)

	g.agg.register(g.lastModule, pendingCall{
		name: fmt.Sprintf("%sstart_module_%d", g.ns, g.lastModule),
	})
	return nil
}

// invokeUnit emits a callable unit performing the action and, when expected
// values are given, asserting on the results. It returns the unit's name.
func (g *Generator) invokeUnit(a script.Invoke, expected []script.Value) (string, error) {
	if g.lastModule == 0 {
		return "", errors.Generate(fmt.Sprintf("action %s before any module", a), nil)
	}
	name := g.unitName("action_invoke")

	fmt.Fprintf(&g.buf, "func %s(t *testing.T, ctx context.Context, mod api.Module) error {\n", name)
	g.buf.WriteString("\tt.Helper()\n")
	g.emitCall(a, len(expected) > 0)

	switch {
	case len(expected) == 1 && IsNaN(expected[0]):
		// NaN expectations compare NaN-ness and sign only; payloads are not
		// guaranteed to propagate through every runtime.
		g.emitNaNComparison(expected[0])
	case len(expected) > 0:
		lits := make([]string, len(expected))
		for i, v := range expected {
			lits[i] = Literal(v)
		}
		fmt.Fprintf(&g.buf, "\trequire.Equal(t, []uint64{%s}, results)\n", strings.Join(lits, ", "))
	}
	g.buf.WriteString("\treturn nil\n}\n\n")
	return name, nil
}

// emitCall writes the export lookup and call. Units forward lookup and call
// failures as errors so trap tests can assert on them.
func (g *Generator) emitCall(a script.Invoke, keepResults bool) {
	fmt.Fprintf(&g.buf, "\tfn := mod.ExportedFunction(%q)\n", a.Field)
	g.buf.WriteString("\tif fn == nil {\n")
	fmt.Fprintf(&g.buf, "\t\treturn fmt.Errorf(\"exported function %%q not found\", %q)\n", a.Field)
	g.buf.WriteString("\t}\n")

	args := make([]string, len(a.Args))
	for i, v := range a.Args {
		args[i] = Literal(v)
	}
	lhs := "_, err"
	if keepResults {
		lhs = "results, err"
	}
	fmt.Fprintf(&g.buf, "\t%s := fn.Call(ctx%s)\n", lhs, joinArgs(args))
	g.buf.WriteString("\tif err != nil {\n\t\treturn err\n\t}\n")
}

func joinArgs(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return ", " + strings.Join(args, ", ")
}

// emitNaNComparison asserts the single result is a NaN of the expected
// width with the expected sign bit.
func (g *Generator) emitNaNComparison(want script.Value) {
	g.buf.WriteString("\trequire.Len(t, results, 1)\n")
	switch want.Kind {
	case script.KindF32:
		sign := uint32(want.Bits) >> 31
		g.buf.WriteString("\tbits := math.Float32bits(api.DecodeF32(results[0]))\n")
		g.buf.WriteString("\trequire.True(t, math.IsNaN(float64(math.Float32frombits(bits))), \"got 0x%08x\", bits)\n")
		fmt.Fprintf(&g.buf, "\trequire.Equal(t, uint32(%d), bits>>31)\n", sign)
	case script.KindF64:
		sign := want.Bits >> 63
		g.buf.WriteString("\tbits := math.Float64bits(api.DecodeF64(results[0]))\n")
		g.buf.WriteString("\trequire.True(t, math.IsNaN(math.Float64frombits(bits)), \"got 0x%016x\", bits)\n")
		fmt.Fprintf(&g.buf, "\trequire.Equal(t, uint64(%d), bits>>63)\n", sign)
	}
}

// nanUnit emits a unit asserting the single result is a quiet NaN of
// whichever float width the export returns, and registers it as pending.
func (g *Generator) nanUnit(a script.Invoke, suffix string) error {
	if g.lastModule == 0 {
		return errors.Generate(fmt.Sprintf("action %s before any module", a), nil)
	}
	name := g.unitName(suffix)

	fmt.Fprintf(&g.buf, "func %s(t *testing.T, ctx context.Context, mod api.Module) error {\n", name)
	g.buf.WriteString("\tt.Helper()\n")
	g.emitCall(a, true)
	g.buf.WriteString("\trequire.Len(t, results, 1)\n")
	g.buf.WriteString("\tswitch fn.Definition().ResultTypes()[0] {\n")
	g.buf.WriteString("\tcase api.ValueTypeF32:\n")
	g.buf.WriteString("\t\trequire.True(t, isQuietNaN32(uint32(results[0])), \"got 0x%08x\", uint32(results[0]))\n")
	g.buf.WriteString("\tcase api.ValueTypeF64:\n")
	g.buf.WriteString("\t\trequire.True(t, isQuietNaN64(results[0]), \"got 0x%016x\", results[0])\n")
	g.buf.WriteString("\tdefault:\n")
	g.buf.WriteString("\t\tt.Fatal(\"expected a float result\")\n")
	g.buf.WriteString("\t}\n\treturn nil\n}\n\n")

	g.agg.register(g.batchModule(a), pendingCall{name: name, wrapErr: true})
	return nil
}

// assertTrap emits the action unit plus its own standalone test. The unit
// is never batched: a trap can leave the instance's memory and globals in
// an unspecified state that later batched calls must not observe.
func (g *Generator) assertTrap(k script.AssertTrap) error {
	name, err := g.invokeUnit(k.Action, nil)
	if err != nil {
		return err
	}
	idx := g.trapModule(k.Action)

	fmt.Fprintf(&g.buf, "func Test_%sc%d_l%d_assert_trap(t *testing.T) {\n", g.ns, g.commandCount, g.lastLine)
	g.buf.WriteString("\tctx, r := newSpectestRuntime(t)\n")
	fmt.Fprintf(&g.buf, "\tmod := %screate_module_%d(t, ctx, r)\n", g.ns, idx)
	fmt.Fprintf(&g.buf, "\terr := %s(t, ctx, mod)\n", name)
	fmt.Fprintf(&g.buf, "\trequire.Error(t, err, %q)\n", "expected trap: "+k.Text)
	g.buf.WriteString("}\n\n")
	return nil
}

// compileFailure emits a standalone test asserting a binary fails to
// compile. These do not touch module numbering or the pending lists.
func (g *Generator) compileFailure(bin []byte, suffix, text string) {
	base := fmt.Sprintf("%sc%d_l%d_%s", g.ns, g.commandCount, g.lastLine, suffix)

	fmt.Fprintf(&g.buf, "var %s_wasm = []byte{\n", base)
	writeByteLiteral(&g.buf, bin)
	g.buf.WriteString("}\n\n")

	fmt.Fprintf(&g.buf, "func Test_%s(t *testing.T) {\n", base)
	g.buf.WriteString("\tctx, r := newSpectestRuntime(t)\n")
	fmt.Fprintf(&g.buf, "\t_, err := r.CompileModule(ctx, %s_wasm)\n", base)
	fmt.Fprintf(&g.buf, "\trequire.Error(t, err, %q)\n", "compilation should fail: "+text)
	g.buf.WriteString("}\n\n")
}

// flush emits the batched test for moduleIdx if any units are pending.
// The batch instantiates the module once and replays every unit in
// registration order against that single instance.
func (g *Generator) flush(moduleIdx uint32) {
	calls := g.agg.take(moduleIdx)
	if len(calls) == 0 {
		return
	}
	Logger().Debug("flushing module batch",
		zap.String("namespace", g.ns),
		zap.Uint32("module", moduleIdx),
		zap.Int("calls", len(calls)))

	fmt.Fprintf(&g.buf, "func Test_%smodule_%d(t *testing.T) {\n", g.ns, moduleIdx)
	g.buf.WriteString("\tctx, r := newSpectestRuntime(t)\n")
	fmt.Fprintf(&g.buf, "\tmod := %screate_module_%d(t, ctx, r)\n", g.ns, moduleIdx)
	for _, c := range calls {
		if c.wrapErr {
			fmt.Fprintf(&g.buf, "\trequire.NoError(t, %s(t, ctx, mod))\n", c.name)
		} else {
			fmt.Fprintf(&g.buf, "\t%s(t, ctx, mod)\n", c.name)
		}
	}
	g.buf.WriteString("}\n\n")
}

// writeByteLiteral formats bin as rows of sixteen hex bytes.
func writeByteLiteral(buf *bytes.Buffer, bin []byte) {
	for i, b := range bin {
		if i%16 == 0 {
			buf.WriteByte('\t')
		} else {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(buf, "0x%02x,", b)
		if i%16 == 15 {
			buf.WriteByte('\n')
		}
	}
	if len(bin)%16 != 0 {
		buf.WriteByte('\n')
	}
}

// textLiteral renders s as a Go string literal, raw when possible.
func textLiteral(s string) string {
	if strings.Contains(s, "`") {
		return fmt.Sprintf("%q", s)
	}
	return "`" + s + "`"
}
