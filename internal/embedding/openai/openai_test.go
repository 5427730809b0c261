package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "TEST_EMBED_KEY", Model: "m", MaxRetries: 2, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY_EMPTY", "")
	if _, err := NewClient(Config{APIKeyEnv: "TEST_EMBED_KEY_EMPTY"}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestEmbedOpenAIShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["input"] != "melanoma" || body["model"] != "m" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.5,0.25,0.125]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	v, err := c.Embed(context.Background(), "melanoma")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v) != 3 || v[0] != 0.5 {
		t.Errorf("vector = %v", v)
	}
	if c.Dimension() != 3 {
		t.Errorf("Dimension = %d, want 3", c.Dimension())
	}
}

func TestEmbedOllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding":[1,2]}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL).Vectorize(context.Background(), "x")
	if err != nil {
		t.Fatalf("Vectorize: %v", err)
	}
	if len(v) != 2 || v[1] != 2 {
		t.Errorf("vector = %v", v)
	}
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL).Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestEmbedClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL).Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 401")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
