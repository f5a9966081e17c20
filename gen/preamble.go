package gen

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Banner heads every artifact. The standard generated-code marker keeps
// linters and review tooling away from the file.
const Banner = "// Code generated by wastgen. DO NOT EDIT.\n"

// WritePreamble writes the header shared by every script block: package
// clause, imports, the embedded spectest environment, the runtime factory
// and the NaN classification helpers.
func WritePreamble(w io.Writer, pkg string) error {
	var buf bytes.Buffer
	buf.WriteString(Banner)
	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	buf.WriteString(`import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Not every script block exercises every import.
var (
	_ = fmt.Errorf
	_ = math.Float32frombits
	_ = api.EncodeI32
)

`)

	buf.WriteString("// spectestWasm is the shared import environment, in text form:\n")
	for _, line := range strings.Split(SpectestWAT, "\n") {
		buf.WriteString("//\t" + line + "\n")
	}
	buf.WriteString("var spectestWasm = []byte{\n")
	writeByteLiteral(&buf, SpectestModule())
	buf.WriteString("}\n\n")

	buf.WriteString(`// newSpectestRuntime returns a fresh runtime with the spectest module
// already registered under its well-known name.
func newSpectestRuntime(t *testing.T) (context.Context, wazero.Runtime) {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = r.Close(ctx) })
	_, err := r.InstantiateWithConfig(ctx, spectestWasm, wazero.NewModuleConfig().WithName("spectest"))
	require.NoError(t, err)
	return ctx, r
}

// A quiet NaN carries the most significant mantissa bit; arithmetic NaN
// results must be quiet whatever their remaining payload.
func isQuietNaN32(bits uint32) bool {
	f := math.Float32frombits(bits)
	return f != f && bits&(1<<22) != 0
}

func isQuietNaN64(bits uint64) bool {
	f := math.Float64frombits(bits)
	return f != f && bits&(1<<51) != 0
}

`)

	_, err := w.Write(buf.Bytes())
	return err
}
