package gen

import (
	"context"

	"github.com/tetratelabs/wazero"

	"github.com/wasmkit/wastgen/errors"
	"github.com/wasmkit/wastgen/script"
)

// Verify preflights a script against the same runtime the generated tests
// will use: every Module command must compile, and every assert_invalid or
// assert_malformed payload must be rejected. This catches broken script
// conversions at generation time instead of as confusing failures inside
// the emitted suite.
func Verify(ctx context.Context, s *script.Script) error {
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	for _, c := range s.Commands {
		switch k := c.Kind.(type) {
		case script.ModuleCmd:
			cm, err := r.CompileModule(ctx, k.Binary)
			if err != nil {
				return errors.New(errors.PhaseVerify, errors.KindCompile).
					Script(s.SourceFilename).
					Line(c.Line).
					Detail("module does not compile").
					Cause(err).Build()
			}
			_ = cm.Close(ctx)
		case script.AssertInvalid:
			if cm, err := r.CompileModule(ctx, k.Binary); err == nil {
				_ = cm.Close(ctx)
				return errors.New(errors.PhaseVerify, errors.KindCompile).
					Script(s.SourceFilename).
					Line(c.Line).
					Detail("assert_invalid payload compiles").Build()
			}
		case script.AssertMalformed:
			if cm, err := r.CompileModule(ctx, k.Binary); err == nil {
				_ = cm.Close(ctx)
				return errors.New(errors.PhaseVerify, errors.KindCompile).
					Script(s.SourceFilename).
					Line(c.Line).
					Detail("assert_malformed payload compiles").Build()
			}
		}
	}
	return nil
}
