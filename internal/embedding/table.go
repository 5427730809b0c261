package embedding

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"bczsl/internal/domain"
)

// Table is an ordered, immutable mapping from class label to embedding
// vector. Iteration order is insertion order.
type Table struct {
	labels  []string
	vectors [][]float64
	index   map[string]int
	dim     int
}

// NewTable builds a Table from parallel label and vector slices. Labels must
// be unique and all vectors must share one dimensionality. Inputs are copied.
func NewTable(labels []string, vectors [][]float64) (*Table, error) {
	if len(labels) != len(vectors) {
		return nil, fmt.Errorf("embedding table: %d labels for %d vectors", len(labels), len(vectors))
	}
	t := &Table{
		labels:  make([]string, 0, len(labels)),
		vectors: make([][]float64, 0, len(vectors)),
		index:   make(map[string]int, len(labels)),
	}
	for i, lbl := range labels {
		if lbl == "" {
			return nil, fmt.Errorf("embedding table: entry %d has an empty label", i)
		}
		if _, dup := t.index[lbl]; dup {
			return nil, fmt.Errorf("embedding table: duplicate label %q", lbl)
		}
		if i == 0 {
			t.dim = len(vectors[i])
		} else if len(vectors[i]) != t.dim {
			return nil, &domain.ShapeMismatchError{Op: "embedding.NewTable", Want: t.dim, Got: len(vectors[i])}
		}
		if j := nonFinite(vectors[i]); j >= 0 {
			return nil, fmt.Errorf("embedding table: %q[%d] = %v: %w", lbl, j, vectors[i][j], domain.ErrNonFinite)
		}
		t.index[lbl] = i
		t.labels = append(t.labels, lbl)
		t.vectors = append(t.vectors, append([]float64(nil), vectors[i]...))
	}
	return t, nil
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

// Dim returns the embedding dimensionality (0 for an empty table).
func (t *Table) Dim() int { return t.dim }

// Labels returns the labels in iteration order.
func (t *Table) Labels() []string { return append([]string(nil), t.labels...) }

// Vector returns a copy of the embedding for label.
func (t *Table) Vector(label string) ([]float64, bool) {
	i, ok := t.index[label]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), t.vectors[i]...), true
}

// Each calls fn for every entry in iteration order. fn must not retain or
// modify vec.
func (t *Table) Each(fn func(label string, vec []float64)) {
	for i, lbl := range t.labels {
		fn(lbl, t.vectors[i])
	}
}

type tableEntry struct {
	Label  string    `json:"label"`
	Vector []float64 `json:"vector"`
}

type tableJSON struct {
	Dim     int          `json:"dim"`
	Entries []tableEntry `json:"entries"`
}

// MarshalJSON encodes the table as an ordered entry list.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{Dim: t.dim, Entries: make([]tableEntry, len(t.labels))}
	for i, lbl := range t.labels {
		out.Entries[i] = tableEntry{Label: lbl, Vector: t.vectors[i]}
	}
	return json.Marshal(out)
}

// DecodeTable parses the output of MarshalJSON.
func DecodeTable(data []byte) (*Table, error) {
	var in tableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("embedding table: decode: %w", err)
	}
	labels := make([]string, len(in.Entries))
	vectors := make([][]float64, len(in.Entries))
	for i, e := range in.Entries {
		labels[i] = e.Label
		vectors[i] = e.Vector
	}
	return NewTable(labels, vectors)
}

// Similarity returns the cosine similarity of a and b. If either vector has
// zero norm the similarity is exactly 0.
func Similarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.ShapeMismatchError{Op: "embedding.Similarity", Want: len(a), Got: len(b)}
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// BestMatch returns the label whose embedding is most similar to query. On
// equal scores the entry seen first wins.
func BestMatch(query []float64, table *Table) (string, error) {
	if err := checkQuery("embedding.BestMatch", query, table); err != nil {
		return "", err
	}
	best, bestScore := "", math.Inf(-1)
	for i, lbl := range table.labels {
		score, err := Similarity(query, table.vectors[i])
		if err != nil {
			return "", err
		}
		if score > bestScore {
			best, bestScore = lbl, score
		}
	}
	if best == "" {
		return "", fmt.Errorf("embedding.BestMatch: no finite similarity: %w", domain.ErrNonFinite)
	}
	return best, nil
}

// Rank returns the k most similar labels in descending score order, ties in
// table order. k <= 0 returns every entry. Entries whose similarity overflows
// sort last.
func Rank(query []float64, table *Table, k int) ([]domain.ScoredLabel, error) {
	if err := checkQuery("embedding.Rank", query, table); err != nil {
		return nil, err
	}
	out := make([]domain.ScoredLabel, len(table.labels))
	finite := 0
	for i, lbl := range table.labels {
		score, err := Similarity(query, table.vectors[i])
		if err != nil {
			return nil, err
		}
		if !math.IsNaN(score) && !math.IsInf(score, 0) {
			finite++
		}
		out[i] = domain.ScoredLabel{Label: lbl, Score: score}
	}
	if finite == 0 {
		return nil, fmt.Errorf("embedding.Rank: no finite similarity: %w", domain.ErrNonFinite)
	}
	sort.SliceStable(out, func(i, j int) bool { return rankKey(out[i].Score) > rankKey(out[j].Score) })
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func rankKey(score float64) float64 {
	if math.IsNaN(score) {
		return math.Inf(-1)
	}
	return score
}

func checkQuery(op string, query []float64, table *Table) error {
	if table.Len() == 0 {
		return domain.ErrEmptyTable
	}
	if len(query) != table.dim {
		return &domain.ShapeMismatchError{Op: op, Want: table.dim, Got: len(query)}
	}
	if j := nonFinite(query); j >= 0 {
		return fmt.Errorf("%s: query[%d] = %v: %w", op, j, query[j], domain.ErrNonFinite)
	}
	return nil
}

// nonFinite returns the index of the first NaN or Inf in v, or -1.
func nonFinite(v []float64) int {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}
