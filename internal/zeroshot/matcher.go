// Package zeroshot assigns labels from an open set of classes by comparing a
// feature vector with a table of class-name embeddings.
package zeroshot

import (
	"fmt"
	"log/slog"

	"bczsl/internal/domain"
	"bczsl/internal/embedding"
)

// PredictUnseen returns the table label most similar to feature.
//
// The seen-class classifier is still consulted: its prediction is computed
// and decoded, then discarded. Its errors abort the match. A decode failure of
// the discarded index does not, since the label is never used.
func PredictUnseen(feature domain.FeatureVector, clf domain.SeenPredictor, enc domain.LabelDecoder, table *embedding.Table) (domain.Label, error) {
	idx, err := clf.Predict(feature)
	if err != nil {
		return "", fmt.Errorf("zero-shot: seen-class prediction: %w", err)
	}
	if seen, err := enc.Decode(idx); err != nil {
		slog.Debug("discarded seen-class prediction could not be decoded", "index", idx, "error", err)
	} else {
		slog.Debug("discarding seen-class prediction", "label", seen)
	}

	label, err := embedding.BestMatch(feature, table)
	if err != nil {
		return "", fmt.Errorf("zero-shot: %w", err)
	}
	return label, nil
}

// Matcher bundles the collaborators of PredictUnseen.
type Matcher struct {
	Classifier domain.SeenPredictor
	Encoder    domain.LabelDecoder
	Table      *embedding.Table
}

// NewMatcher returns a Matcher over the given classifier, encoder and table.
func NewMatcher(clf domain.SeenPredictor, enc domain.LabelDecoder, table *embedding.Table) *Matcher {
	return &Matcher{Classifier: clf, Encoder: enc, Table: table}
}

// Predict labels one feature vector.
func (m *Matcher) Predict(feature domain.FeatureVector) (domain.Label, error) {
	return PredictUnseen(feature, m.Classifier, m.Encoder, m.Table)
}

// PredictAll labels every row in order and stops at the first error.
func (m *Matcher) PredictAll(features [][]float64) ([]domain.Label, error) {
	out := make([]domain.Label, len(features))
	for i, f := range features {
		label, err := m.Predict(f)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}

// Rank returns the top-k table labels for feature after the same classifier
// check as Predict.
func (m *Matcher) Rank(feature domain.FeatureVector, k int) ([]domain.ScoredLabel, error) {
	if _, err := m.Classifier.Predict(feature); err != nil {
		return nil, fmt.Errorf("zero-shot: seen-class prediction: %w", err)
	}
	return embedding.Rank(feature, m.Table, k)
}
