// Package manifest handles stackc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in project directories.
const FileName = "stackc.toml"

// Manifest represents a stackc.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Build   BuildConfig  `toml:"build"`
	Cache   CacheConfig  `toml:"cache"`
	Server  ServerConfig `toml:"server"`

	// Dir is the directory containing the stackc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// BuildConfig sets the defaults of the stackc command-line flags.
type BuildConfig struct {
	Entry  string `toml:"entry"`
	Output string `toml:"output"`
	Format string `toml:"format"` // text, binary or object
	Disasm bool   `toml:"disasm"`
}

// CacheConfig configures the build cache.
type CacheConfig struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

// ServerConfig configures the compile service.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Defaults
const (
	DefaultFormat    = "text"
	DefaultCachePath = ".stackc/cache.db"
	DefaultAddr      = "localhost:8420"
)

// Load parses a stackc.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes and validates manifest data. name is used in errors.
func Parse(data []byte, name string) (*Manifest, error) {
	var raw map[string]interface{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", name, err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", name, err)
	}

	// Defaults
	if m.Build.Format == "" {
		m.Build.Format = DefaultFormat
	}
	if m.Cache.Path == "" {
		m.Cache.Path = DefaultCachePath
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a stackc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CacheEnabled reports whether builds should use the cache. It defaults to true.
func (m *Manifest) CacheEnabled() bool {
	return m.Cache.Enabled == nil || *m.Cache.Enabled
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

// EntryPath returns the absolute path of the default source file, or "".
func (m *Manifest) EntryPath() string {
	if m.Build.Entry == "" {
		return ""
	}
	return m.resolve(m.Build.Entry)
}

// OutputPath returns the absolute path of the default output file, or "".
func (m *Manifest) OutputPath() string {
	if m.Build.Output == "" {
		return ""
	}
	return m.resolve(m.Build.Output)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
