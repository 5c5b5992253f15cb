package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/stackc/manifest"
	"github.com/chazu/stackc/pkg/bytecode"
)

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCLI runs one command line and returns the exit code and both streams.
func runCLI(t *testing.T, m *manifest.Manifest, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, m, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestBuildWritesTextListing(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.sc", "let INT x = 5;\nlet INT y = x + 3;\n")

	code, _, stderr := runCLI(t, nil, src)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "main.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "STORE 5\nSTORE_MEM 0\nLOAD 0\nSTORE 3\nADD 0\nSTORE_MEM 4\n"
	if string(data) != want {
		t.Errorf("main.txt =\n%s\nwant\n%s", data, want)
	}
}

func TestBuildEachFormat(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "prog.sc", "let FLOAT f = 2;\nprint(f);\n")

	for _, format := range bytecode.Formats {
		out := filepath.Join(dir, "out."+format)
		code, _, stderr := runCLI(t, nil, "-f", format, "-o", out, src)
		if code != 0 {
			t.Fatalf("%s: exit %d: %s", format, code, stderr)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		prog, err := bytecode.Read(data)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if got := prog.Mnemonics(); len(got) < 2 || got[0] != "STORE_FLOAT" || got[1] != "STORE_MEM" {
			t.Errorf("%s: mnemonics %v", format, prog.Mnemonics())
		}
	}
}

func TestBuildToStdoutWithDisassembly(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "s.sc", "let INT x = 1;")

	code, stdout, _ := runCLI(t, nil, "-o", "-", "-d", src)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.HasPrefix(stdout, "STORE 1\nSTORE_MEM 0\n") {
		t.Errorf("stdout does not start with the listing:\n%s", stdout)
	}
	if !strings.Contains(stdout, "; === s.sc ===") || !strings.Contains(stdout, "; Memory:") {
		t.Errorf("stdout has no disassembly:\n%s", stdout)
	}
}

func TestCompileErrorsExitNonZero(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "bad.sc", "let INT x = 1;\nlet INT x = 2;\n")

	code, _, stderr := runCLI(t, nil, src)
	if code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if strings.TrimSpace(stderr) != "NameError: Variable x is already declared at line 2." {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.txt")); !os.IsNotExist(err) {
		t.Error("output written for a rejected program")
	}
}

func TestCheckAndAST(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "ok.sc", "let INT x = 1;")

	code, stdout, _ := runCLI(t, nil, "-check", "-v", src)
	if code != 0 || !strings.Contains(stdout, "ok.sc: ok") {
		t.Errorf("check: exit %d, stdout %q", code, stdout)
	}

	code, stdout, _ = runCLI(t, nil, "-ast", src)
	if code != 0 || !strings.HasPrefix(stdout, "(program") {
		t.Errorf("ast: exit %d, stdout %q", code, stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "ok.txt")); !os.IsNotExist(err) {
		t.Error("-check and -ast must not write output")
	}
}

func TestUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "a.sc", "let INT x = 1;")

	code, _, stderr := runCLI(t, nil, "-f", "elf", src)
	if code != 1 || !strings.Contains(stderr, `unknown format "elf"`) {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestDisasmSubcommand(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "d.sc", "let INT x = 1;")
	obj := filepath.Join(dir, "d.o")

	if code, _, stderr := runCLI(t, nil, "-f", "binary", "-o", obj, src); code != 0 {
		t.Fatalf("build: %s", stderr)
	}
	code, stdout, _ := runCLI(t, nil, "disasm", obj)
	if code != 0 {
		t.Fatalf("disasm exit %d", code)
	}
	if !strings.Contains(stdout, "0000  STORE") || !strings.Contains(stdout, "0001  STORE_MEM") {
		t.Errorf("disasm output:\n%s", stdout)
	}

	if code, _, _ := runCLI(t, nil, "disasm"); code != 2 {
		t.Errorf("disasm without a file exit %d, want 2", code)
	}
}

func TestManifestDefaultsAndCache(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "main.sc", "let INT x = 7;")
	toml := `[project]
name = "demo"

[build]
entry = "main.sc"
output = "build/main.o"
format = "binary"

[cache]
path = "cache.db"
`
	if err := os.MkdirAll(filepath.Join(dir, "build"), 0755); err != nil {
		t.Fatal(err)
	}
	writeSource(t, dir, manifest.FileName, toml)
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if code, _, stderr := runCLI(t, m); code != 0 {
			t.Fatalf("build %d: exit %d: %s", i, code, stderr)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "build", "main.o"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2*bytecode.InstructionLen {
		t.Errorf("binary image is %d bytes", len(data))
	}

	code, stdout, _ := runCLI(t, m, "cache", "stats")
	if code != 0 || !strings.Contains(stdout, "Entries: 1") || !strings.Contains(stdout, "Hits:    1") {
		t.Errorf("cache stats: exit %d\n%s", code, stdout)
	}
	code, stdout, _ = runCLI(t, m, "cache", "clear")
	if code != 0 || !strings.Contains(stdout, "Removed 1 entries") {
		t.Errorf("cache clear: exit %d\n%s", code, stdout)
	}
	if code, _, _ := runCLI(t, m, "cache", "vacuum"); code != 1 {
		t.Errorf("unknown cache action exit %d, want 1", code)
	}
}

func TestUsage(t *testing.T) {
	code, _, stderr := runCLI(t, nil)
	if code != 2 || !strings.Contains(stderr, "Usage: stackc") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
	if code, _, _ := runCLI(t, nil, "-h"); code != 0 {
		t.Errorf("-h exit %d", code)
	}
	if code, _, _ := runCLI(t, nil, "a.sc", "b.sc"); code != 2 {
		t.Errorf("two inputs exit %d", code)
	}
}
