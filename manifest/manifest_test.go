package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "calc"
version = "0.1.0"

[build]
entry = "src/main.sc"
output = "build/main.o"
format = "binary"
disasm = true

[cache]
enabled = false
path = "/tmp/stackc.db"

[server]
addr = ":9000"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "calc" {
		t.Errorf("project name = %q, want calc", m.Project.Name)
	}
	if m.Project.Version != "0.1.0" {
		t.Errorf("project version = %q, want 0.1.0", m.Project.Version)
	}
	if m.Build.Format != "binary" || !m.Build.Disasm {
		t.Errorf("build = %+v", m.Build)
	}
	if m.EntryPath() != filepath.Join(m.Dir, "src", "main.sc") {
		t.Errorf("entry path = %q", m.EntryPath())
	}
	if m.OutputPath() != filepath.Join(m.Dir, "build", "main.o") {
		t.Errorf("output path = %q", m.OutputPath())
	}
	if m.CacheEnabled() {
		t.Error("cache enabled = true, want false")
	}
	if m.CachePath() != "/tmp/stackc.db" {
		t.Errorf("cache path = %q, want the absolute path unchanged", m.CachePath())
	}
	if m.Server.Addr != ":9000" {
		t.Errorf("server addr = %q, want :9000", m.Server.Addr)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Build.Format != DefaultFormat {
		t.Errorf("default format = %q, want %q", m.Build.Format, DefaultFormat)
	}
	if !m.CacheEnabled() {
		t.Error("cache should be enabled by default")
	}
	if m.CachePath() != filepath.Join(m.Dir, DefaultCachePath) {
		t.Errorf("default cache path = %q", m.CachePath())
	}
	if m.Server.Addr != DefaultAddr {
		t.Errorf("default addr = %q, want %q", m.Server.Addr, DefaultAddr)
	}
	if m.EntryPath() != "" || m.OutputPath() != "" {
		t.Errorf("entry/output = %q/%q, want empty", m.EntryPath(), m.OutputPath())
	}
}

func TestLoadEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Build.Format != DefaultFormat {
		t.Errorf("format = %q", m.Build.Format)
	}
}

func TestSchemaRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown format", "[build]\nformat = \"elf\"\n"},
		{"unknown table", "[dependencies]\nhelper = \"x\"\n"},
		{"unknown key", "[project]\nname = \"a\"\nauthor = \"b\"\n"},
		{"wrong type", "[build]\ndisasm = \"yes\"\n"},
		{"bad project name", "[project]\nname = \"has space\"\n"},
		{"empty output", "[build]\noutput = \"\"\n"},
		{"addr without port", "[server]\naddr = \"localhost\"\n"},
	}

	for _, tc := range tests {
		_, err := Parse([]byte(tc.content), FileName)
		if err == nil {
			t.Errorf("%s: expected a validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), "invalid "+FileName) {
			t.Errorf("%s: error = %v", tc.name, err)
		}
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("[build\nformat = 1"), "broken.toml")
	if err == nil || !strings.Contains(err.Error(), "parse error in broken.toml") {
		t.Errorf("error = %v, want a parse error", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[project]\nname = \"found-project\"\n")

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no stackc.toml exists")
	}
}

func TestFindAndLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[build]\nformat = \"elf\"\n")
	if _, err := FindAndLoad(dir); err == nil {
		t.Error("expected the schema error to surface from FindAndLoad")
	}
}
