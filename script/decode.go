package script

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strconv"

	"github.com/wasmkit/wastgen/errors"
)

// Wire types for the wast2json output. Values arrive as decimal strings of
// the raw bit pattern, so a full f64 payload survives JSON's number type.
type jsonScript struct {
	SourceFilename string        `json:"source_filename"`
	Commands       []jsonCommand `json:"commands"`
}

type jsonCommand struct {
	Type       string      `json:"type"`
	Line       uint32      `json:"line"`
	Name       string      `json:"name"`
	Filename   string      `json:"filename"`
	ModuleType string      `json:"module_type"`
	As         string      `json:"as"`
	Text       string      `json:"text"`
	Action     *jsonAction `json:"action"`
	Expected   []jsonValue `json:"expected"`
}

type jsonAction struct {
	Type   string      `json:"type"`
	Module string      `json:"module"`
	Field  string      `json:"field"`
	Args   []jsonValue `json:"args"`
}

type jsonValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// nanClass distinguishes the symbolic NaN expectations wast2json writes in
// place of a bit pattern.
type nanClass int

const (
	nanNone nanClass = iota
	nanCanonical
	nanArithmetic
)

// Load decodes the wast2json file at jsonPath. Module binaries referenced
// by the commands are read from the same directory of fsys.
func Load(fsys fs.FS, jsonPath string) (*Script, error) {
	raw, err := fs.ReadFile(fsys, jsonPath)
	if err != nil {
		return nil, errors.Parse(errors.KindIO, "read script", err)
	}
	var js jsonScript
	if err := json.Unmarshal(raw, &js); err != nil {
		return nil, errors.Parse(errors.KindDecode, jsonPath, err)
	}

	dir := path.Dir(jsonPath)
	s := &Script{SourceFilename: js.SourceFilename}
	for i, jc := range js.Commands {
		kind, err := decodeCommand(fsys, dir, jc)
		if err != nil {
			return nil, fmt.Errorf("%s: command %d (line %d): %w", jsonPath, i, jc.Line, err)
		}
		if kind == nil {
			continue // text-form assertion, nothing to generate against
		}
		s.Commands = append(s.Commands, Command{Line: jc.Line, Kind: kind})
	}
	return s, nil
}

func decodeCommand(fsys fs.FS, dir string, jc jsonCommand) (CommandKind, error) {
	// Actions other than invoke (wast "get" reads a global) have no
	// generated mapping; drop the command like the text-form assertions
	// below rather than failing the script.
	if jc.Action != nil && jc.Action.Type != "invoke" {
		return nil, nil
	}

	switch jc.Type {
	case "module":
		bin, err := readModule(fsys, dir, jc.Filename)
		if err != nil {
			return nil, err
		}
		return ModuleCmd{Name: jc.Name, Binary: bin}, nil

	case "assert_return":
		act, err := decodeInvoke(jc.Action)
		if err != nil {
			return nil, err
		}
		expected, class, err := decodeValues(jc.Expected)
		if err != nil {
			return nil, err
		}
		// wast2json spells NaN-class expectations as symbolic values inside
		// an ordinary assert_return; surface them as the dedicated kinds.
		switch class {
		case nanCanonical:
			return AssertReturnCanonicalNaN{Action: act}, nil
		case nanArithmetic:
			return AssertReturnArithmeticNaN{Action: act}, nil
		}
		return AssertReturn{Action: act, Expected: expected}, nil

	case "assert_return_canonical_nan":
		act, err := decodeInvoke(jc.Action)
		if err != nil {
			return nil, err
		}
		return AssertReturnCanonicalNaN{Action: act}, nil

	case "assert_return_arithmetic_nan":
		act, err := decodeInvoke(jc.Action)
		if err != nil {
			return nil, err
		}
		return AssertReturnArithmeticNaN{Action: act}, nil

	case "assert_trap":
		act, err := decodeInvoke(jc.Action)
		if err != nil {
			return nil, err
		}
		return AssertTrap{Action: act, Text: jc.Text}, nil

	case "assert_invalid":
		bin, err := readBinaryAssertion(fsys, dir, jc)
		if err != nil || bin == nil {
			return nil, err
		}
		return AssertInvalid{Binary: bin, Text: jc.Text}, nil

	case "assert_malformed":
		bin, err := readBinaryAssertion(fsys, dir, jc)
		if err != nil || bin == nil {
			return nil, err
		}
		return AssertMalformed{Binary: bin, Text: jc.Text}, nil

	case "assert_uninstantiable":
		bin, err := readModule(fsys, dir, jc.Filename)
		if err != nil {
			return nil, err
		}
		return AssertUninstantiable{Binary: bin}, nil

	case "assert_exhaustion":
		act, err := decodeInvoke(jc.Action)
		if err != nil {
			return nil, err
		}
		return AssertExhaustion{Action: act}, nil

	case "assert_unlinkable":
		bin, err := readModule(fsys, dir, jc.Filename)
		if err != nil {
			return nil, err
		}
		return AssertUnlinkable{Binary: bin}, nil

	case "register":
		return Register{As: jc.As, Name: jc.Name}, nil

	case "action":
		act, err := decodeInvoke(jc.Action)
		if err != nil {
			return nil, err
		}
		return PerformAction{Action: act}, nil

	default:
		return nil, errors.Parse(errors.KindDecode, "command",
			fmt.Errorf("unknown command type %q", jc.Type))
	}
}

// readBinaryAssertion loads the payload of an assert_invalid or
// assert_malformed. Text-form payloads (.wat) have no binary to hand the
// runtime, so they decode to nil and the caller skips the command.
func readBinaryAssertion(fsys fs.FS, dir string, jc jsonCommand) ([]byte, error) {
	if jc.ModuleType != "" && jc.ModuleType != "binary" {
		return nil, nil
	}
	return readModule(fsys, dir, jc.Filename)
}

func readModule(fsys fs.FS, dir, filename string) ([]byte, error) {
	if filename == "" {
		return nil, errors.Parse(errors.KindDecode, "module", fmt.Errorf("missing filename"))
	}
	bin, err := fs.ReadFile(fsys, path.Join(dir, filename))
	if err != nil {
		return nil, errors.Parse(errors.KindIO, "read module binary", err)
	}
	return bin, nil
}

func decodeInvoke(ja *jsonAction) (Invoke, error) {
	if ja == nil {
		return Invoke{}, fmt.Errorf("command has no action")
	}
	if ja.Type != "invoke" {
		return Invoke{}, fmt.Errorf("unsupported action type %q", ja.Type)
	}
	args, class, err := decodeValues(ja.Args)
	if err != nil {
		return Invoke{}, err
	}
	if class != nanNone {
		return Invoke{}, fmt.Errorf("symbolic NaN is not a valid argument")
	}
	return Invoke{Module: ja.Module, Field: ja.Field, Args: args}, nil
}

func decodeValues(jvs []jsonValue) ([]Value, nanClass, error) {
	var out []Value
	class := nanNone
	for _, jv := range jvs {
		switch jv.Value {
		case "nan:canonical":
			class = nanCanonical
			continue
		case "nan:arithmetic":
			class = nanArithmetic
			continue
		}
		v, err := parseValue(jv)
		if err != nil {
			return nil, nanNone, err
		}
		out = append(out, v)
	}
	return out, class, nil
}

func parseValue(jv jsonValue) (Value, error) {
	bits, err := strconv.ParseUint(jv.Value, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("value %q: %w", jv.Value, err)
	}
	switch jv.Type {
	case "i32":
		return Value{Kind: KindI32, Bits: bits & 0xFFFFFFFF}, nil
	case "i64":
		return Value{Kind: KindI64, Bits: bits}, nil
	case "f32":
		return Value{Kind: KindF32, Bits: bits & 0xFFFFFFFF}, nil
	case "f64":
		return Value{Kind: KindF64, Bits: bits}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %q", jv.Type)
	}
}
