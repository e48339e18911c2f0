// Command ctlm-gen generates Go name constants for the targets, packets,
// items and states of a directory of target definitions.
//
// Usage:
//
//	ctlm-gen -defs ./targets -package names -output internal/names/names_gen.go
//
// With -check nothing is written; ctlm-gen fails when the output file is
// missing or differs from what it would generate.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/tools/imports"

	"github.com/ctlm-ground/ctlm-go/pkg/defparse"
)

// errStale is returned in check mode when the output is out of date.
var errStale = errors.New("generated file is out of date")

type options struct {
	defsDir string
	pkg     string
	output  string
	check   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.defsDir, "defs", "", "Directory of target definition YAMLs")
	flag.StringVar(&opts.pkg, "package", "", "Package name of the generated file")
	flag.StringVar(&opts.output, "output", "", "Output path for the generated Go file")
	flag.BoolVar(&opts.check, "check", false, "Verify the output file is up to date instead of writing it")
	flag.Parse()

	if opts.defsDir == "" || opts.pkg == "" || opts.output == "" {
		fmt.Fprintln(os.Stderr, "Usage: ctlm-gen -defs <dir> -package <name> -output <file.go> [-check]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	defs, err := defparse.LoadDir(opts.defsDir)
	if err != nil {
		return fmt.Errorf("loading definitions: %w", err)
	}
	if len(defs) == 0 {
		return fmt.Errorf("no definitions in %s", opts.defsDir)
	}

	code, err := Generate(opts.pkg, filepath.Base(opts.defsDir), defs)
	if err != nil {
		return err
	}
	formatted, err := format(opts.output, code)
	if err != nil {
		return err
	}

	if opts.check {
		existing, err := os.ReadFile(opts.output)
		if err != nil || !bytes.Equal(existing, formatted) {
			return fmt.Errorf("%w: %s (run ctlm-gen without -check)", errStale, opts.output)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(opts.output, formatted, 0o644); err != nil {
		return err
	}
	fmt.Printf("  generated %s\n", opts.output)
	return nil
}

// format runs goimports over code. On failure the raw source is left next
// to path with a .broken suffix.
func format(path, code string) ([]byte, error) {
	out, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		_ = os.MkdirAll(filepath.Dir(path), 0o755)
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return nil, fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return out, nil
}
