package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tundra-lang/tundra/ws"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "sieve"
version = "0.1.0"
entry = "sieve.ws"

[dialect]
wspace03 = true
dump-trace = true

[build]
optimize = false

[run]
max-steps = 5000
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if m.Project.Name != "sieve" {
		t.Errorf("name = %q, want %q", m.Project.Name, "sieve")
	}
	if m.Build.Optimize {
		t.Error("optimize = true, want false")
	}
	if m.Run.MaxSteps != 5000 {
		t.Errorf("max-steps = %d, want 5000", m.Run.MaxSteps)
	}
	if got := m.EntryPath(); got != filepath.Join(dir, "sieve.ws") {
		t.Errorf("entry path = %q, want it joined to the manifest dir", got)
	}

	feats := m.Dialect.Features()
	if !feats.Contains(ws.FeatWspace03) {
		t.Error("wspace03 missing from features")
	}
	if !feats.Contains(ws.FeatDumpTrace) {
		t.Error("dump-trace missing from features")
	}
	if feats.Contains(ws.FeatShuffle) {
		t.Error("shuffle enabled without being configured")
	}
}

func TestLoadKeepsDefaultsForOmittedSections(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project]\nname = \"x\"\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !m.Dialect.Wspace03 {
		t.Error("wspace03 default lost")
	}
	if !m.Build.Optimize {
		t.Error("optimize default lost")
	}
}

func TestDefault(t *testing.T) {
	m := Default()
	if !m.Dialect.Features().Contains(ws.FeatWspace03) {
		t.Error("default dialect should include wspace 0.3")
	}
	if m.Run.MaxSteps != 0 {
		t.Errorf("default max-steps = %d, want unlimited", m.Run.MaxSteps)
	}
	if m.EntryPath() != "" {
		t.Errorf("default entry path = %q, want empty", m.EntryPath())
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"up\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if m.Project.Name != "up" {
		t.Errorf("name = %q, want %q", m.Project.Name, "up")
	}
}

func TestFindAndLoadFallsBackToDefault(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("find error: %v", err)
	}
	if m.Project.Name != "" || !m.Build.Optimize {
		t.Errorf("expected the default manifest, got %+v", m)
	}
}

func TestLoadBadTOML(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "not [valid toml")
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}
