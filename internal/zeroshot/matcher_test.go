package zeroshot

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"bczsl/internal/classifier"
	"bczsl/internal/domain"
	"bczsl/internal/embedding"
)

type fixedPredictor struct {
	index int
	err   error
	calls int
}

func (p *fixedPredictor) Predict(domain.FeatureVector) (int, error) {
	p.calls++
	return p.index, p.err
}

func table(t *testing.T, labels []string, vectors [][]float64) *embedding.Table {
	t.Helper()
	tbl, err := embedding.NewTable(labels, vectors)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func encoder(t *testing.T) *classifier.LabelEncoder {
	t.Helper()
	enc, err := classifier.NewLabelEncoder([]string{"benign", "malignant"})
	if err != nil {
		t.Fatalf("NewLabelEncoder: %v", err)
	}
	return enc
}

func TestPredictUnseenIgnoresClassifierOutput(t *testing.T) {
	tbl := table(t, []string{"u1", "u2"}, [][]float64{{0, 1}, {1, 0}})
	tests := []struct {
		name  string
		index int
	}{
		{"valid index", 0},
		{"other valid index", 1},
		{"out of range", 7},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fixedPredictor{index: tt.index}
			got, err := PredictUnseen([]float64{1, 0}, p, encoder(t), tbl)
			if err != nil {
				t.Fatalf("PredictUnseen: %v", err)
			}
			if got != "u2" {
				t.Errorf("PredictUnseen = %q, want u2", got)
			}
			if p.calls != 1 {
				t.Errorf("classifier called %d times, want 1", p.calls)
			}
		})
	}
}

func TestPredictUnseenPropagatesClassifierError(t *testing.T) {
	tbl := table(t, []string{"u1"}, [][]float64{{1, 0}})
	for _, cause := range []error{
		&domain.ShapeMismatchError{Op: "test", Want: 3, Got: 2},
		domain.ErrNotFitted,
	} {
		p := &fixedPredictor{err: cause}
		_, err := PredictUnseen([]float64{1, 0}, p, encoder(t), tbl)
		if !errors.Is(err, cause) {
			t.Errorf("err = %v, want wrapping %v", err, cause)
		}
	}
}

func TestPredictUnseenRealClassifierShapeMismatch(t *testing.T) {
	m, err := classifier.NewModel([][]float64{{1, 0, 0}, {0, 1, 0}}, []float64{0, 0})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	tbl := table(t, []string{"u1", "u2"}, [][]float64{{0, 1}, {1, 0}})
	if _, err := PredictUnseen([]float64{1, 0}, m, encoder(t), tbl); !errors.Is(err, domain.ErrShapeMismatch) {
		t.Errorf("err = %v, want ErrShapeMismatch", err)
	}
}

func TestPredictUnseenEmptyTable(t *testing.T) {
	p := &fixedPredictor{}
	if _, err := PredictUnseen([]float64{1, 0}, p, encoder(t), nil); !errors.Is(err, domain.ErrEmptyTable) {
		t.Errorf("err = %v, want ErrEmptyTable", err)
	}
}

func TestPredictUnseenFirstSeenTie(t *testing.T) {
	tbl := table(t, []string{"a", "b"}, [][]float64{{1, 0}, {1, 0}})
	got, err := PredictUnseen([]float64{1, 0}, &fixedPredictor{}, encoder(t), tbl)
	if err != nil || got != "a" {
		t.Errorf("PredictUnseen = %q, %v; want a", got, err)
	}
}

func TestMatcherPredictAll(t *testing.T) {
	tbl := table(t, []string{"melanoma", "nevus", "keratosis"}, [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})
	m := NewMatcher(&fixedPredictor{index: 1}, encoder(t), tbl)
	features := [][]float64{{0.1, 0.9, 0}, {2, 0, 0}, {0, 0.2, 0.3}, {0, 0, 0}}
	got, err := m.PredictAll(features)
	if err != nil {
		t.Fatalf("PredictAll: %v", err)
	}
	want := []string{"nevus", "melanoma", "keratosis", "melanoma"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PredictAll[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	labels := map[string]bool{}
	for _, l := range tbl.Labels() {
		labels[l] = true
	}
	for _, l := range got {
		if !labels[l] {
			t.Errorf("label %q not in table", l)
		}
	}
}

func TestMatcherPredictAllStopsOnError(t *testing.T) {
	tbl := table(t, []string{"x"}, [][]float64{{1, 0}})
	m := NewMatcher(&fixedPredictor{err: fmt.Errorf("boom: %w", domain.ErrNotFitted)}, encoder(t), tbl)
	if _, err := m.PredictAll([][]float64{{1, 0}}); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("err = %v, want ErrNotFitted", err)
	}
}

func TestMatcherRank(t *testing.T) {
	tbl := table(t, []string{"u1", "u2", "u3"}, [][]float64{{0, 1}, {1, 0}, {1, 1}})
	m := NewMatcher(&fixedPredictor{}, encoder(t), tbl)
	got, err := m.Rank([]float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 2 || got[0].Label != "u2" || got[1].Label != "u3" {
		t.Errorf("Rank = %+v, want [u2 u3]", got)
	}
}

func TestPredictUnseenNonFiniteFeature(t *testing.T) {
	tbl := table(t, []string{"u1", "u2"}, [][]float64{{0, 1}, {1, 0}})
	got, err := PredictUnseen([]float64{math.NaN(), 0}, &fixedPredictor{}, encoder(t), tbl)
	if !errors.Is(err, domain.ErrNonFinite) {
		t.Fatalf("PredictUnseen = %q, %v; want ErrNonFinite", got, err)
	}
	if got != "" {
		t.Fatalf("label %q returned alongside an error", got)
	}
}
