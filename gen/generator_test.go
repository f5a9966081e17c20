package gen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmkit/wastgen/script"
	"github.com/wasmkit/wastgen/wasm"
)

// testModule assembles a valid module exporting "add" so the generator's
// disassembly step has something real to chew on.
func testModule() []byte {
	var types []byte
	types = wasm.AppendU32(types, 1)
	types = wasm.AppendFuncType(types, wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32, wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	})

	var funcs []byte
	funcs = wasm.AppendU32(funcs, 1)
	funcs = wasm.AppendU32(funcs, 0)

	var exports []byte
	exports = wasm.AppendU32(exports, 1)
	exports = wasm.AppendExport(exports, wasm.Export{Name: "add", Kind: wasm.ExternFunc, Index: 0})

	var code []byte
	code = wasm.AppendU32(code, 1)
	body := []byte{0x00, 0x20, 0x00, 0x20, 0x01, 0x6A, wasm.OpEnd}
	code = wasm.AppendU32(code, uint32(len(body)))
	code = append(code, body...)

	bin := append([]byte{}, wasm.Header...)
	bin = wasm.AppendSection(bin, wasm.SectionType, types)
	bin = wasm.AppendSection(bin, wasm.SectionFunction, funcs)
	bin = wasm.AppendSection(bin, wasm.SectionExport, exports)
	bin = wasm.AppendSection(bin, wasm.SectionCode, code)
	return bin
}

func moduleCmd(line uint32) script.Command {
	return script.Command{Line: line, Kind: script.ModuleCmd{Binary: testModule()}}
}

func TestSingleModuleWithAssertReturn(t *testing.T) {
	g := New("i32_")
	err := g.Consume([]script.Command{
		moduleCmd(1),
		{Line: 44, Kind: script.AssertReturn{
			Action:   script.Invoke{Field: "add", Args: []script.Value{script.I32(2), script.I32(3)}},
			Expected: []script.Value{script.I32(5)},
		}},
	})
	require.NoError(t, err)
	out := g.Output()

	require.Contains(t, out, "func i32_create_module_1(t *testing.T, ctx context.Context, r wazero.Runtime) api.Module")
	require.Contains(t, out, "func i32_start_module_1(t *testing.T, ctx context.Context, mod api.Module)")
	require.Contains(t, out, "func i32_c2_l44_action_invoke(t *testing.T, ctx context.Context, mod api.Module) error")
	require.Contains(t, out, `fn := mod.ExportedFunction("add")`)
	require.Contains(t, out, "fn.Call(ctx, api.EncodeI32(int32(2)), api.EncodeI32(int32(3)))")
	require.Contains(t, out, "require.Equal(t, []uint64{api.EncodeI32(int32(5))}, results)")

	// The batch runs the start hook then the unit, in order.
	wrapper := out[strings.Index(out, "func Test_i32_module_1"):]
	start := strings.Index(wrapper, "i32_start_module_1(t, ctx, mod)")
	unit := strings.Index(wrapper, "require.NoError(t, i32_c2_l44_action_invoke(t, ctx, mod))")
	require.True(t, start >= 0 && unit > start)

	// Disassembly of the module is embedded for diagnostics.
	require.Contains(t, out, "i32.add")
}

func TestModuleNumbering(t *testing.T) {
	g := New("ns_")
	err := g.Consume([]script.Command{moduleCmd(1), moduleCmd(10), moduleCmd(20)})
	require.NoError(t, err)
	out := g.Output()

	for _, want := range []string{"ns_create_module_1", "ns_create_module_2", "ns_create_module_3"} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "ns_create_module_4")
	require.NotContains(t, out, "ns_create_module_0")
}

func TestFlushPrecedesNextModule(t *testing.T) {
	g := New("ns_")
	err := g.Consume([]script.Command{
		moduleCmd(1),
		{Line: 5, Kind: script.AssertReturn{
			Action: script.Invoke{Field: "add", Args: []script.Value{script.I32(1), script.I32(1)}},
		}},
		moduleCmd(9),
	})
	require.NoError(t, err)
	out := g.Output()

	batch1 := strings.Index(out, "func Test_ns_module_1")
	create2 := strings.Index(out, "var ns_module_2_wasm")
	unit := strings.Index(out, "func ns_c2_l5_action_invoke")
	require.True(t, unit >= 0 && batch1 > unit, "batch must follow its units")
	require.True(t, create2 > batch1, "module 2 must follow module 1's batch")

	// Module 2 had only its start hook pending and still gets a batch.
	require.Contains(t, out, "func Test_ns_module_2")
}

func TestTrapUnitsNeverBatched(t *testing.T) {
	g := New("i32_")
	err := g.Consume([]script.Command{
		moduleCmd(1),
		{Line: 106, Kind: script.AssertTrap{
			Action: script.Invoke{Field: "add", Args: []script.Value{script.I32(1), script.I32(0)}},
			Text:   "integer divide by zero",
		}},
	})
	require.NoError(t, err)
	out := g.Output()

	require.Contains(t, out, "func i32_c2_l106_action_invoke")
	require.Contains(t, out, "func Test_i32_c2_l106_assert_trap(t *testing.T)")
	require.Contains(t, out, `"expected trap: integer divide by zero"`)

	wrapper := out[strings.Index(out, "func Test_i32_module_1"):]
	require.NotContains(t, wrapper, "c2_l106_action_invoke")
}

func TestNaNUnits(t *testing.T) {
	g := New("f32_")
	err := g.Consume([]script.Command{
		moduleCmd(1),
		{Line: 30, Kind: script.AssertReturnArithmeticNaN{
			Action: script.Invoke{Field: "add", Args: []script.Value{script.F32Bits(0x7FC00000), script.F32Bits(0)}},
		}},
		{Line: 31, Kind: script.AssertReturnCanonicalNaN{
			Action: script.Invoke{Field: "add", Args: []script.Value{script.F32Bits(0x7FC00000), script.F32Bits(0)}},
		}},
	})
	require.NoError(t, err)
	out := g.Output()

	require.Contains(t, out, "func f32_c2_l30_assert_return_arithmetic_nan")
	require.Contains(t, out, "func f32_c3_l31_assert_return_canonical_nan")
	require.Contains(t, out, "isQuietNaN32(uint32(results[0]))")
	require.Contains(t, out, "isQuietNaN64(results[0])")
	require.Contains(t, out, "fn.Definition().ResultTypes()[0]")

	// Both register into the batch.
	wrapper := out[strings.Index(out, "func Test_f32_module_1"):]
	require.Contains(t, wrapper, "require.NoError(t, f32_c2_l30_assert_return_arithmetic_nan(t, ctx, mod))")
	require.Contains(t, wrapper, "require.NoError(t, f32_c3_l31_assert_return_canonical_nan(t, ctx, mod))")
}

func TestNaNExpectedComparesSignOnly(t *testing.T) {
	g := New("f64_")
	err := g.Consume([]script.Command{
		moduleCmd(1),
		{Line: 7, Kind: script.AssertReturn{
			Action:   script.Invoke{Field: "add", Args: nil},
			Expected: []script.Value{script.F64Bits(0xFFF8000000000123)},
		}},
	})
	require.NoError(t, err)
	out := g.Output()

	require.Contains(t, out, "math.Float64bits(api.DecodeF64(results[0]))")
	require.Contains(t, out, "require.Equal(t, uint64(1), bits>>63)")
	// The payload is deliberately not compared bit for bit.
	require.NotContains(t, out, "0xfff8000000000123")
}

func TestCompileFailureUnits(t *testing.T) {
	g := New("i32_")
	err := g.Consume([]script.Command{
		{Line: 300, Kind: script.AssertInvalid{Binary: []byte{0xDE, 0xAD}, Text: "type mismatch"}},
		{Line: 301, Kind: script.AssertMalformed{Binary: []byte{0xBE, 0xEF}, Text: "magic header"}},
	})
	require.NoError(t, err)
	out := g.Output()

	require.Contains(t, out, "var i32_c1_l300_assert_invalid_wasm = []byte{")
	require.Contains(t, out, "func Test_i32_c1_l300_assert_invalid(t *testing.T)")
	require.Contains(t, out, "func Test_i32_c2_l301_assert_malformed(t *testing.T)")
	require.Contains(t, out, "r.CompileModule(ctx, i32_c1_l300_assert_invalid_wasm)")
	require.Contains(t, out, `"compilation should fail: type mismatch"`)
	// No module numbering side effects.
	require.NotContains(t, out, "create_module_")
}

func TestIgnoredKinds(t *testing.T) {
	g := New("ns_")
	err := g.Consume([]script.Command{
		moduleCmd(1),
		{Line: 2, Kind: script.Register{As: "mod"}},
		{Line: 3, Kind: script.AssertUnlinkable{Binary: []byte{1}}},
		{Line: 4, Kind: script.AssertUninstantiable{Binary: []byte{1}}},
		{Line: 5, Kind: script.AssertExhaustion{Action: script.Invoke{Field: "f"}}},
	})
	require.NoError(t, err)
	out := g.Output()
	require.NotContains(t, out, "c2_")
	require.NotContains(t, out, "c3_")
	require.NotContains(t, out, "c4_")
	require.NotContains(t, out, "c5_")
	require.EqualValues(t, 5, g.CommandCount())
}

func TestLineMarkerPerCommand(t *testing.T) {
	g := New("ns_")
	err := g.Consume([]script.Command{
		moduleCmd(1),
		{Line: 2, Kind: script.Register{As: "mod"}},
		{Line: 44, Kind: script.AssertReturn{
			Action:   script.Invoke{Field: "add", Args: []script.Value{script.I32(2), script.I32(3)}},
			Expected: []script.Value{script.I32(5)},
		}},
		{Line: 50, Kind: script.AssertExhaustion{Action: script.Invoke{Field: "f"}}},
	})
	require.NoError(t, err)
	out := g.Output()

	// Every command leaves its marker, units or not.
	for _, want := range []string{"// Line 1\n", "// Line 2\n", "// Line 44\n", "// Line 50\n"} {
		require.Equal(t, 1, strings.Count(out, want), "marker %q", want)
	}
}

func TestActionBeforeModuleFails(t *testing.T) {
	g := New("ns_")
	err := g.Consume([]script.Command{
		{Line: 1, Kind: script.PerformAction{Action: script.Invoke{Field: "poke"}}},
	})
	require.ErrorContains(t, err, "before any module")
}

func TestDisassemblyFailureAborts(t *testing.T) {
	g := New("ns_")
	err := g.Consume([]script.Command{
		{Line: 1, Kind: script.ModuleCmd{Binary: []byte("not a module")}},
	})
	require.Error(t, err)
}

func TestFatThreshold(t *testing.T) {
	cmds := []script.Command{moduleCmd(1)}
	for len(cmds) < FatThreshold {
		cmds = append(cmds, script.Command{
			Line: uint32(len(cmds) + 1),
			Kind: script.AssertReturn{
				Action:   script.Invoke{Field: "add", Args: []script.Value{script.I32(1), script.I32(2)}},
				Expected: []script.Value{script.I32(3)},
			},
		})
	}

	g := New("ns_")
	require.NoError(t, g.Consume(cmds))
	require.EqualValues(t, FatThreshold, g.CommandCount())
	require.False(t, g.IsFat())

	cmds = append(cmds, script.Command{Line: 999, Kind: script.Register{}})
	g = New("ns_")
	require.NoError(t, g.Consume(cmds))
	require.EqualValues(t, FatThreshold+1, g.CommandCount())
	require.True(t, g.IsFat())
}

func TestNamedModuleTargeting(t *testing.T) {
	g := New("ns_")
	err := g.Consume([]script.Command{
		{Line: 1, Kind: script.ModuleCmd{Name: "$one", Binary: testModule()}},
		moduleCmd(5),
		{Line: 6, Kind: script.AssertTrap{
			Action: script.Invoke{Module: "$one", Field: "add", Args: []script.Value{script.I32(1), script.I32(1)}},
			Text:   "unreachable",
		}},
		{Line: 7, Kind: script.AssertReturn{
			Action:   script.Invoke{Module: "$one", Field: "add", Args: []script.Value{script.I32(1), script.I32(1)}},
			Expected: []script.Value{script.I32(2)},
		}},
	})
	require.NoError(t, err)
	out := g.Output()

	// The standalone trap test instantiates the named module.
	trap := out[strings.Index(out, "func Test_ns_c3_l6_assert_trap"):]
	trap = trap[:strings.Index(trap, "\n}")+2]
	require.Contains(t, trap, "ns_create_module_1(t, ctx, r)")

	// Batched units stay with the current module; module 1's batch was
	// already flushed when module 2 appeared.
	wrapper2 := out[strings.Index(out, "func Test_ns_module_2"):]
	require.Contains(t, wrapper2, "ns_c4_l7_action_invoke")
	require.Equal(t, 1, strings.Count(out, "func Test_ns_module_1(t *testing.T)"))
}
