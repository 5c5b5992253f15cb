package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/stackc/cache"
	"github.com/chazu/stackc/compiler"
	"github.com/chazu/stackc/pkg/bytecode"
)

// buildOptions holds one compile request from the command line.
type buildOptions struct {
	Input   string
	Output  string // "" derives a name from Input; "-" is stdout
	Format  string
	Disasm  bool
	AST     bool
	Check   bool
	Verbose bool
	Cache   *cache.Cache // may be nil
}

// outputExt is the default file extension per output format.
var outputExt = map[string]string{
	bytecode.FormatText:   ".txt",
	bytecode.FormatBinary: ".o",
	bytecode.FormatObject: ".sco",
}

// build compiles opts.Input and writes the artifact.
// Usage:
//
//	stackc main.sc              # main.txt
//	stackc -f binary main.sc    # main.o
//	stackc -o - main.sc         # listing on stdout
func build(opts buildOptions, stdout io.Writer) error {
	ext, ok := outputExt[opts.Format]
	if !ok {
		return fmt.Errorf("unknown format %q (want %s)", opts.Format, strings.Join(bytecode.Formats, ", "))
	}

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return err
	}
	source := string(data)

	switch {
	case opts.AST:
		root, err := compiler.Parse(source)
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, compiler.Dump(root))
		return err
	case opts.Check:
		if err := compiler.Check(source); err != nil {
			return err
		}
		if opts.Verbose {
			fmt.Fprintf(stdout, "%s: ok\n", opts.Input)
		}
		return nil
	}

	name := filepath.Base(opts.Input)
	prog, cached, err := cache.Compile(opts.Cache, name, source)
	if err != nil {
		return err
	}
	code, err := bytecode.Render(prog, opts.Format, name, source)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == "" {
		out = strings.TrimSuffix(opts.Input, filepath.Ext(opts.Input)) + ext
	}
	if out == "-" {
		if _, err := stdout.Write(code); err != nil {
			return err
		}
	} else if err := os.WriteFile(out, code, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", out, err)
	}

	if opts.Disasm {
		if _, err := io.WriteString(stdout, prog.DisassembleWithName(name)); err != nil {
			return err
		}
	}
	if opts.Verbose && out != "-" {
		from := "compiled"
		if cached {
			from = "cached"
		}
		fmt.Fprintf(stdout, "Wrote %s (%d instructions, %s)\n", out, prog.Len(), from)
	}
	return nil
}
