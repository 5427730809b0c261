package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"bczsl/internal/domain"
	"bczsl/internal/embedding"
)

// pointNamespace scopes the deterministic point ids derived from labels.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bczsl/class-embeddings"))

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and recreates the collection on every Save.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID returns the id under which label is stored.
func PointID(label string) string {
	return uuid.NewSHA1(pointNamespace, []byte(label)).String()
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) Save(ctx context.Context, table *embedding.Table) error {
	if table.Len() == 0 {
		return domain.ErrEmptyTable
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	create := map[string]any{
		"vectors": map[string]any{
			"size":     table.Dim(),
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(""), create, nil); err != nil {
		return err
	}

	points := make([]map[string]any, 0, table.Len())
	i := 0
	table.Each(func(label string, vec []float64) {
		points = append(points, map[string]any{
			"id":     PointID(label),
			"vector": vec,
			"payload": map[string]any{
				"label": label,
				"index": i,
			},
		})
		i++
	})
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

type point struct {
	Payload struct {
		Label string `json:"label"`
		Index int    `json:"index"`
	} `json:"payload"`
	Vector []float64 `json:"vector"`
	Score  float64   `json:"score"`
}

func (s *Storage) Load(ctx context.Context) (*embedding.Table, error) {
	var all []point
	var offset any
	for {
		req := map[string]any{
			"limit":        256,
			"with_payload": true,
			"with_vector":  true,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), req, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Result.Points...)
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("qdrant collection %s: %w", s.collection, domain.ErrMissingArtifact)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Payload.Index < all[j].Payload.Index })
	labels := make([]string, len(all))
	vectors := make([][]float64, len(all))
	for i, p := range all {
		labels[i], vectors[i] = p.Payload.Label, p.Vector
	}
	return embedding.NewTable(labels, vectors)
}

// Search asks Qdrant for the topK nearest labels.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.ScoredLabel, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []point `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.ScoredLabel, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.ScoredLabel{Label: r.Payload.Label, Score: r.Score})
	}
	return results, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil)
	if se, ok := err.(*statusError); ok && se.code == http.StatusNotFound {
		return nil
	}
	return err
}

type statusError struct {
	method, url string
	code        int
	status      string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
