package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"github.com/wasmkit/wastgen/gen"
	"github.com/wasmkit/wastgen/script"
)

// config carries the overrides a build system sets through the
// environment instead of flags.
type config struct {
	OutDir  string `env:"WASTGEN_OUT_DIR"`
	Package string `env:"WASTGEN_PKG"`
}

func main() {
	var (
		dir     = flag.String("dir", "", "Directory of wast2json .json scripts")
		out     = flag.String("out", "spectests_gen_test.go", "Output file name")
		outDir  = flag.String("outdir", "", "Output directory (env WASTGEN_OUT_DIR)")
		pkg     = flag.String("pkg", "spectests", "Package name of the artifact (env WASTGEN_PKG)")
		verify  = flag.Bool("verify", false, "Preflight-compile every module before generating")
		verbose = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Usage: wastgen -dir <scripts> [-out file] [-outdir dir] [-pkg name] [-verify] [-v]")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()
	gen.SetLogger(logger)

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Environment fills in whatever the flags left at defaults.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if cfg.OutDir != "" && !set["outdir"] {
		*outDir = cfg.OutDir
	}
	if cfg.Package != "" && !set["pkg"] {
		*pkg = cfg.Package
	}

	if err := run(*dir, filepath.Join(*outDir, *out), *pkg, *verify, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dir, outPath, pkg string, verify bool, logger *zap.Logger) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("list scripts: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no .json scripts in %s", dir)
	}
	sort.Strings(matches)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	fsys := os.DirFS(dir)
	bundle := gen.NewBundle(f, pkg)

	for _, m := range matches {
		name := filepath.Base(m)
		s, err := script.Load(fsys, name)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		if verify {
			if err := gen.Verify(ctx, s); err != nil {
				return fmt.Errorf("verify %s: %w", name, err)
			}
		}
		if err := bundle.Add(name, s); err != nil {
			return fmt.Errorf("generate %s: %w", name, err)
		}
		logger.Info("processed script",
			zap.String("script", name),
			zap.Int("commands", len(s.Commands)))
	}

	if err := bundle.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("flush artifact: %w", err)
	}
	logger.Info("artifact written", zap.String("path", outPath))
	return nil
}
