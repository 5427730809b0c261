package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileCreatesParentsAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "out.txt")

	if err := WriteFile(path, []byte("hello")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "hello" {
		t.Fatalf("read back %q, %v", got, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in dir, found %d entries", len(entries))
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json")
	WriteFile(path, []byte("first"))
	if err := WriteFile(path, []byte("second")); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Errorf("got %q", got)
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	if err := WriteJSON(path, map[string]any{"seed": 42}); err != nil {
		t.Fatal(err)
	}
	var m map[string]int
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &m); err != nil || m["seed"] != 42 {
		t.Fatalf("unexpected content %s (%v)", data, err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(filepath.Join(dir, "nope")) {
		t.Error("missing file reported as existing")
	}
	if Exists(dir) {
		t.Error("directory reported as a file")
	}
	if Exists("") {
		t.Error("empty path reported as existing")
	}
	p := filepath.Join(dir, "f")
	os.WriteFile(p, nil, 0o644)
	if !Exists(p) {
		t.Error("existing file not found")
	}
}
