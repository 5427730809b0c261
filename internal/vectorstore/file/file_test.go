package file

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"bczsl/internal/domain"
	"bczsl/internal/embedding"
	"bczsl/internal/vectorstore"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(filepath.Join(t.TempDir(), "models", "class_embeddings.json"))
	if _, err := s.Load(ctx); !errors.Is(err, domain.ErrMissingArtifact) {
		t.Fatalf("Load before Save err = %v", err)
	}
	labels := []string{"melanoma", "nevus", "keratosis"}
	vecs := [][]float64{{1, 0, 0.5}, {0, 1, 0}, {0.25, 0.25, 1}}
	tbl, err := embedding.NewTable(labels, vecs)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, tbl); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Labels(), labels) {
		t.Errorf("labels = %v, want %v", got.Labels(), labels)
	}
	for i, l := range labels {
		v, _ := got.Vector(l)
		if !reflect.DeepEqual(v, vecs[i]) {
			t.Errorf("vector %s = %v, want %v", l, v, vecs[i])
		}
	}

	res, err := vectorstore.Search(ctx, s, []float64{0, 1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Label != "nevus" {
		t.Errorf("Search top = %+v", res[0])
	}
}
