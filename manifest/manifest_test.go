package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "flick.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[player]
movie = "game.swf"
frames = 100
frame-rate = 24.0

[limits]
instruction-budget = 50000
call-depth = 64

[storage]
path = "save.db"

[log]
verbosity = 2
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Player.Movie != "game.swf" || m.Player.Frames != 100 || m.Player.FrameRate != 24 {
		t.Errorf("player = %+v", m.Player)
	}
	if m.Limits.InstructionBudget != 50000 || m.Limits.CallDepth != 64 {
		t.Errorf("limits = %+v", m.Limits)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log = %+v", m.Log)
	}
	if got := m.MoviePath(); got != filepath.Join(m.Dir, "game.swf") {
		t.Errorf("MoviePath = %q", got)
	}
	if got := m.StoragePath(); got != filepath.Join(m.Dir, "save.db") {
		t.Errorf("StoragePath = %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load on empty dir must fail")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[limits]
instruction-budget = -1
`)
	if _, err := Load(dir); err == nil {
		t.Fatal("negative budget must be rejected")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[player]
movie = "top.swf"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m == nil || m.Player.Movie != "top.swf" {
		t.Fatalf("manifest = %+v", m)
	}
}

func TestFindAndLoadNone(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if m != nil {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestEmptyManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "")
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.MoviePath() != "" || m.StoragePath() != "" {
		t.Error("empty manifest must leave paths empty")
	}
}
