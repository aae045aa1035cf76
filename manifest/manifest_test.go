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
name = "demo"
version = "0.1.0"

[program]
image = "prog.yaml"
entry = "start"

[runtime]
simplify-cfg = true
profile = true
max-frame-depth = 64
hot-block-threshold = 50
builtins = ["println", "len"]

[log]
verbosity = 2
file = "cmrt.log"

[store]
path = "/var/lib/cmrt/images.db"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("project name = %q, want demo", m.Project.Name)
	}
	if m.Program.Entry != "start" {
		t.Errorf("entry = %q, want start", m.Program.Entry)
	}
	if !m.Runtime.SimplifyCFG || !m.Runtime.Profile {
		t.Errorf("runtime = %+v", m.Runtime)
	}
	if m.Runtime.MaxFrameDepth != 64 {
		t.Errorf("max-frame-depth = %d, want 64", m.Runtime.MaxFrameDepth)
	}
	if m.Runtime.HotBlockThreshold != 50 {
		t.Errorf("hot-block-threshold = %d, want 50", m.Runtime.HotBlockThreshold)
	}
	if len(m.Runtime.Builtins) != 2 {
		t.Errorf("builtins = %v", m.Runtime.Builtins)
	}
	if m.Log.Verbosity != 2 || m.Log.File != "cmrt.log" {
		t.Errorf("log = %+v", m.Log)
	}
	if got, want := m.ImagePath(), filepath.Join(m.Dir, "prog.yaml"); got != want {
		t.Errorf("ImagePath = %q, want %q", got, want)
	}
	if got := m.StorePath(); got != "/var/lib/cmrt/images.db" {
		t.Errorf("StorePath = %q", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project]\nname = \"bare\"\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Program.Entry != "main" {
		t.Errorf("default entry = %q, want main", m.Program.Entry)
	}
	if m.ImagePath() != "" {
		t.Errorf("ImagePath = %q, want empty", m.ImagePath())
	}
	if got, want := m.StorePath(), filepath.Join(m.Dir, ".cmrt", "images.db"); got != want {
		t.Errorf("StorePath = %q, want %q", got, want)
	}

	d := Default()
	if d.Program.Entry != "main" || d.Store.Path == "" {
		t.Errorf("Default() = %+v", d)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\n", "parse error"},
		{"unknown key", "[runtime]\nsimplify = true\n", "unknown key"},
		{"negative depth", "[runtime]\nmax-frame-depth = -1\n", "max-frame-depth"},
		{"negative threshold", "[runtime]\nhot-block-threshold = -5\n", "hot-block-threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			_, err := Load(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want %q", err, tt.want)
			}
		})
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load without cmrt.toml should fail")
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[project]\nname = \"walk\"\n")
	deep := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(deep)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m == nil || m.Project.Name != "walk" {
		t.Fatalf("manifest = %+v", m)
	}
}
