package gen

import (
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/wasmkit/wastgen/errors"
	"github.com/wasmkit/wastgen/script"
)

// Bundle appends the generated blocks of many scripts to one artifact.
// Blocks are whole: a script's output is written in a single call, so
// callers driving scripts from parallel workers only need to serialize
// Add itself.
type Bundle struct {
	w        io.Writer
	pkg      string
	preamble bool
	scripts  int
	skipped  int
}

// NewBundle writes the artifact to w as Go source in package pkg.
func NewBundle(w io.Writer, pkg string) *Bundle {
	return &Bundle{w: w, pkg: pkg}
}

// Add generates code for one script and appends its namespaced block,
// unless the script is fat. Fat scripts are logged and skipped; that is
// policy, not failure.
func (b *Bundle) Add(name string, s *script.Script) error {
	g := New(Namespace(name))
	if err := g.Consume(s.Commands); err != nil {
		return err
	}
	b.scripts++
	if g.IsFat() {
		b.skipped++
		Logger().Info("skipping fat script",
			zap.String("script", name),
			zap.Uint32("commands", g.CommandCount()),
			zap.Int("threshold", FatThreshold))
		return nil
	}

	if err := b.ensurePreamble(); err != nil {
		return err
	}
	source := s.SourceFilename
	if source == "" {
		source = name
	}
	if _, err := fmt.Fprintf(b.w, "// ===== %s =====\n\n", source); err != nil {
		return errors.Write("block header", err)
	}
	if _, err := g.WriteTo(b.w); err != nil {
		return errors.Write("script block", err)
	}
	Logger().Debug("added script block",
		zap.String("script", name),
		zap.Uint32("commands", g.CommandCount()))
	return nil
}

// Close finishes the artifact. It guarantees the preamble is present even
// when every script was suppressed, so the artifact is always compilable.
func (b *Bundle) Close() error {
	if err := b.ensurePreamble(); err != nil {
		return err
	}
	Logger().Info("bundle complete",
		zap.Int("scripts", b.scripts),
		zap.Int("skipped", b.skipped))
	return nil
}

func (b *Bundle) ensurePreamble() error {
	if b.preamble {
		return nil
	}
	if err := WritePreamble(b.w, b.pkg); err != nil {
		return errors.Write("preamble", err)
	}
	b.preamble = true
	return nil
}

// Namespace derives the identifier prefix for a script's generated names
// from its base file name: "spec/i32.json" becomes "i32_".
func Namespace(name string) string {
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	ns := sb.String()
	if ns == "" || ns[0] >= '0' && ns[0] <= '9' {
		ns = "x" + ns
	}
	return ns + "_"
}
