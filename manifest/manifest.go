// Package manifest handles tundra.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/tundra-lang/tundra/ws"
)

// FileName is the manifest file looked up next to source files.
const FileName = "tundra.toml"

// Manifest represents a tundra.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Dialect Dialect `toml:"dialect"`
	Build   Build   `toml:"build"`
	Run     Run     `toml:"run"`

	// Dir is the directory containing the tundra.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Entry   string `toml:"entry"`
}

// Dialect selects language extensions beyond the base instruction set.
type Dialect struct {
	Wspace03      bool `toml:"wspace03"`
	Shuffle       bool `toml:"shuffle"`
	DumpStackHeap bool `toml:"dump-stack-heap"`
	DumpTrace     bool `toml:"dump-trace"`
}

// Build configures compilation.
type Build struct {
	Optimize bool `toml:"optimize"`
}

// Run bounds program execution.
type Run struct {
	MaxSteps int64 `toml:"max-steps"`
}

// Features returns the instruction set extensions the dialect enables.
func (d Dialect) Features() ws.Features {
	var f ws.Features
	if d.Wspace03 {
		f = f.With(ws.FeatWspace03)
	}
	if d.Shuffle {
		f = f.With(ws.FeatShuffle)
	}
	if d.DumpStackHeap {
		f = f.With(ws.FeatDumpStackHeap)
	}
	if d.DumpTrace {
		f = f.With(ws.FeatDumpTrace)
	}
	return f
}

// Default returns the manifest used when no tundra.toml is present: the
// wspace 0.3 dialect with optimization on and no step limit.
func Default() *Manifest {
	return &Manifest{
		Dialect: Dialect{Wspace03: true},
		Build:   Build{Optimize: true},
	}
}

// Load parses a tundra.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a tundra.toml file, then
// loads and returns the manifest. Returns the default manifest if none
// is found.
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
			return Default(), nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the configured entry program,
// or empty when none is configured.
func (m *Manifest) EntryPath() string {
	if m.Project.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}
