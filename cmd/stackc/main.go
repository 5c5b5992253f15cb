// stackc CLI - compiles source files to bytecode and hosts the compile
// service and language server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/stackc/cache"
	"github.com/chazu/stackc/compiler"
	"github.com/chazu/stackc/manifest"
	"github.com/chazu/stackc/pkg/bytecode"
	"github.com/chazu/stackc/server"
)

const version = "0.1.0"

var log = commonlog.GetLogger("stackc.cli")

func main() {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], m, os.Stdout, os.Stderr))
}

// run executes one command line and returns the process exit code.
// m may be nil when no stackc.toml was found.
func run(args []string, m *manifest.Manifest, stdout, stderr io.Writer) int {
	defaults := buildDefaults(m)

	fs := flag.NewFlagSet("stackc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", defaults.Output, "Output path (\"-\" for stdout)")
	format := fs.String("f", defaults.Format, "Output format: text, binary or object")
	disasm := fs.Bool("d", defaults.Disasm, "Print a disassembly listing")
	dumpAST := fs.Bool("ast", false, "Print the checked syntax tree and stop")
	checkOnly := fs.Bool("check", false, "Analyze only; write no output")
	addr := fs.String("addr", defaults.Addr, "Listen address for serve")
	noCache := fs.Bool("no-cache", false, "Bypass the build cache")
	verbose := fs.Bool("v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: stackc [options] <file>\n")
		fmt.Fprintf(stderr, "       stackc [options] serve | lsp | disasm <file> | cache clear|stats\n\n")
		fmt.Fprintf(stderr, "Compiles a source file to bytecode.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  stackc main.sc                 # Write main.txt\n")
		fmt.Fprintf(stderr, "  stackc -f binary -o a.o main.sc # Write a binary image\n")
		fmt.Fprintf(stderr, "  stackc -check main.sc          # Report the first error, if any\n")
		fmt.Fprintf(stderr, "  stackc disasm main.o           # Disassemble a compiled file\n")
		fmt.Fprintf(stderr, "\nServices:\n")
		fmt.Fprintf(stderr, "  stackc serve                   # Compile service on %s\n", defaults.Addr)
		fmt.Fprintf(stderr, "  stackc lsp                     # Language server on stdio\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	rest := fs.Args()
	if len(rest) == 0 {
		if defaults.Entry == "" {
			fs.Usage()
			return 2
		}
		rest = []string{defaults.Entry}
	}

	switch rest[0] {
	case "serve":
		return runServe(*addr, openCache(m, *noCache), stderr)
	case "lsp":
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return 1
		}
		return 0
	case "disasm":
		if len(rest) != 2 {
			fmt.Fprintln(stderr, "Usage: stackc disasm <file>")
			return 2
		}
		return report(disassembleFile(rest[1], stdout), stderr)
	case "cache":
		if len(rest) != 2 {
			fmt.Fprintln(stderr, "Usage: stackc cache clear|stats")
			return 2
		}
		return report(cacheCommand(rest[1], cachePath(m), stdout), stderr)
	}

	if len(rest) > 1 {
		fmt.Fprintf(stderr, "Error: expected one source file, got %d\n", len(rest))
		return 2
	}

	opts := buildOptions{
		Input:   rest[0],
		Output:  *output,
		Format:  *format,
		Disasm:  *disasm,
		AST:     *dumpAST,
		Check:   *checkOnly,
		Verbose: *verbose,
	}
	if !opts.AST && !opts.Check {
		opts.Cache = openCache(m, *noCache)
		if opts.Cache != nil {
			defer opts.Cache.Close()
		}
	}
	return report(build(opts, stdout), stderr)
}

// report prints err and maps it to an exit code. Compile errors carry
// their own kind prefix.
func report(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if compiler.IsUserError(err) {
		fmt.Fprintln(stderr, err)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// flagDefaults are the flag values a manifest supplies.
type flagDefaults struct {
	Entry  string
	Output string
	Format string
	Disasm bool
	Addr   string
}

func buildDefaults(m *manifest.Manifest) flagDefaults {
	if m == nil {
		return flagDefaults{Format: manifest.DefaultFormat, Addr: manifest.DefaultAddr}
	}
	return flagDefaults{
		Entry:  m.EntryPath(),
		Output: m.OutputPath(),
		Format: m.Build.Format,
		Disasm: m.Build.Disasm,
		Addr:   m.Server.Addr,
	}
}

func cachePath(m *manifest.Manifest) string {
	if m == nil {
		return manifest.DefaultCachePath
	}
	return m.CachePath()
}

// openCache opens the build cache when the manifest enables it. A cache
// that cannot be opened only disables caching.
func openCache(m *manifest.Manifest, disabled bool) *cache.Cache {
	if disabled || m == nil || !m.CacheEnabled() {
		return nil
	}
	c, err := cache.Open(m.CachePath())
	if err != nil {
		log.Warningf("build cache disabled: %s", err)
		return nil
	}
	return c
}

func runServe(addr string, c *cache.Cache, stderr io.Writer) int {
	var opts []server.ServerOption
	if c != nil {
		defer c.Close()
		opts = append(opts, server.WithCache(c))
	}
	srv := server.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warningf("shutdown: %s", err)
		}
	}()

	if err := srv.ListenAndServe(addr); err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

func disassembleFile(path string, stdout io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := bytecode.Read(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = io.WriteString(stdout, prog.DisassembleWithName(path))
	return err
}

func cacheCommand(action, path string, stdout io.Writer) error {
	c, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	switch action {
	case "clear":
		n, err := c.Clear()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Removed %d entries from %s\n", n, c.Path())
	case "stats":
		s, err := c.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Cache:   %s\n", c.Path())
		fmt.Fprintf(stdout, "Entries: %d\n", s.Entries)
		fmt.Fprintf(stdout, "Bytes:   %d\n", s.Bytes)
		fmt.Fprintf(stdout, "Hits:    %d\n", s.Hits)
	default:
		return fmt.Errorf("unknown cache action %q (want clear or stats)", action)
	}
	return nil
}
