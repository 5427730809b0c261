package corpus

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	s := NewSplitter()
	got := s.Tokenize("Benign nevus, smooth border. Malignant melanoma!\nbasal-cell carcinoma")
	want := [][]string{
		{"benign", "nevus", "smooth", "border"},
		{"malignant", "melanoma"},
		{"basal-cell", "carcinoma"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestSentencesSkipsBlank(t *testing.T) {
	s := NewSplitter()
	got := s.Sentences("one.\n\n  \ntwo")
	if !reflect.DeepEqual(got, []string{"one.", "two"}) {
		t.Fatalf("Sentences = %q", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.txt")
	if err := os.WriteFile(path, []byte("benign lesion\nmalignant lesion\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	seqs, err := NewSplitter().Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(seqs) != 2 {
		t.Fatalf("got %d sequences, want 2", len(seqs))
	}

	empty := filepath.Join(dir, "empty.txt")
	os.WriteFile(empty, []byte("  ...  "), 0o644)
	if _, err := NewSplitter().Load(empty); err == nil {
		t.Fatal("expected error for corpus without tokens")
	}
	if _, err := NewSplitter().Load(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
