// Package manifest handles cmrt.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "cmrt.toml"

// Manifest represents a cmrt.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Program ProgramConfig `toml:"program"`
	Runtime RuntimeConfig `toml:"runtime"`
	Log     LogConfig     `toml:"log"`
	Store   StoreConfig   `toml:"store"`

	// Dir is the directory containing the cmrt.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ProgramConfig names the program to run.
type ProgramConfig struct {
	Image string `toml:"image"` // relative to Dir
	Entry string `toml:"entry"`
}

// RuntimeConfig mirrors the machine options.
type RuntimeConfig struct {
	SimplifyCFG   bool     `toml:"simplify-cfg"`
	Profile       bool     `toml:"profile"`
	MaxFrameDepth int      `toml:"max-frame-depth"`
	Builtins      []string `toml:"builtins"` // empty = allow all

	HotBlockThreshold int `toml:"hot-block-threshold"` // 0 = profiler default
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// StoreConfig locates the image store.
type StoreConfig struct {
	Path string `toml:"path"` // relative to Dir
}

// Default returns the configuration used when no cmrt.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Program.Entry == "" {
		m.Program.Entry = "main"
	}
	if m.Store.Path == "" {
		m.Store.Path = filepath.Join(".cmrt", "images.db")
	}
}

// Load parses a cmrt.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if m.Runtime.MaxFrameDepth < 0 {
		return nil, fmt.Errorf("%s: max-frame-depth must not be negative", path)
	}
	if m.Runtime.HotBlockThreshold < 0 {
		return nil, fmt.Errorf("%s: hot-block-threshold must not be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a cmrt.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
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

// ImagePath returns the absolute program path, or "" when none is set.
func (m *Manifest) ImagePath() string {
	if m.Program.Image == "" {
		return ""
	}
	return m.resolve(m.Program.Image)
}

// StorePath returns the absolute image store path.
func (m *Manifest) StorePath() string {
	return m.resolve(m.Store.Path)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
