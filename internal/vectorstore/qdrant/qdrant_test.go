package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"bczsl/internal/domain"
	"bczsl/internal/embedding"
)

// fakeQdrant keeps one collection in memory and serves scroll in pages of
// one point, newest first, so Load must reorder by the stored index.
type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	size    int
	points  []map[string]any
	apiKeys []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	path := strings.TrimPrefix(r.URL.Path, "/collections/labels")
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	switch {
	case r.Method == http.MethodDelete && path == "":
		if !f.exists {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		f.exists, f.points = false, nil
	case r.Method == http.MethodPut && path == "":
		f.exists = true
		f.size = int(body["vectors"].(map[string]any)["size"].(float64))
	case r.Method == http.MethodPut && path == "/points":
		if !f.exists {
			http.Error(w, "no collection", http.StatusNotFound)
			return
		}
		for _, p := range body["points"].([]any) {
			f.points = append(f.points, p.(map[string]any))
		}
	case r.Method == http.MethodPost && path == "/points/scroll":
		start := 0
		if off, ok := body["offset"].(float64); ok {
			start = int(off)
		}
		var page []map[string]any
		var next any
		if start < len(f.points) {
			page = []map[string]any{f.points[len(f.points)-1-start]}
			if start+1 < len(f.points) {
				next = start + 1
			}
		}
		writeJSON(w, map[string]any{"result": map[string]any{"points": page, "next_page_offset": next}})
		return
	case r.Method == http.MethodPost && path == "/points/search":
		writeJSON(w, map[string]any{"result": []map[string]any{
			{"score": 0.9, "payload": map[string]any{"label": "u2", "index": 1}},
		}})
		return
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"result": true})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestSaveLoad(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, APIKey: "secret", Collection: "labels"})
	ctx := context.Background()
	if _, err := s.Load(ctx); !errors.Is(err, domain.ErrMissingArtifact) {
		t.Fatalf("Load before Save err = %v", err)
	}

	labels := []string{"u1", "u2", "u3"}
	vecs := [][]float64{{0, 1}, {1, 0}, {0.5, 0.5}}
	tbl, err := embedding.NewTable(labels, vecs)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Save(ctx, tbl); err != nil {
			t.Fatalf("Save #%d: %v", i+1, err)
		}
	}
	if len(fake.points) != 3 || fake.size != 2 {
		t.Fatalf("server holds %d points of size %d", len(fake.points), fake.size)
	}
	if fake.points[0]["id"] != PointID("u1") {
		t.Errorf("point id = %v, want %s", fake.points[0]["id"], PointID("u1"))
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.Labels(), labels) {
		t.Errorf("labels = %v, want %v", got.Labels(), labels)
	}
	v, _ := got.Vector("u3")
	if !reflect.DeepEqual(v, vecs[2]) {
		t.Errorf("u3 = %v", v)
	}
	for _, k := range fake.apiKeys {
		if k != "secret" {
			t.Fatalf("request sent api-key %q", k)
		}
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(&fakeQdrant{})
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "labels"})
	res, err := s.Search(context.Background(), []float64{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Label != "u2" || res[0].Score != 0.9 {
		t.Errorf("Search = %+v", res)
	}
}

func TestPointIDDeterministic(t *testing.T) {
	if PointID("benign") != PointID("benign") || PointID("benign") == PointID("malignant") {
		t.Error("PointID is not a stable injective mapping")
	}
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "labels"})
	tbl, _ := embedding.NewTable([]string{"a"}, [][]float64{{1}})
	if err := s.Save(context.Background(), tbl); err == nil {
		t.Error("Save succeeded against a failing server")
	}
}
