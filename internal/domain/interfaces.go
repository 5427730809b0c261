package domain

import "context"

// FeatureVector is a fixed-length ordered sequence of real numbers. Its
// dimensionality is fixed for a pipeline run.
type FeatureVector = []float64

// Label is an opaque class identifier.
type Label = string

// Sample pairs a feature vector with its true label.
type Sample struct {
	Features FeatureVector
	Label    Label
}

// ScoredLabel is a class label with its similarity to a query vector.
type ScoredLabel struct {
	Label Label
	Score float64
}

// Vectorizer maps an input (an image path, a text, a class token) to a
// fixed-length vector. Feature extractors and class embedders both satisfy it.
type Vectorizer interface {
	Vectorize(ctx context.Context, input string) ([]float64, error)
}

// SeenPredictor is the closed-set classifier as seen by the zero-shot matcher.
type SeenPredictor interface {
	Predict(x FeatureVector) (int, error)
}

// LabelDecoder maps classifier indices back to seen labels.
type LabelDecoder interface {
	Decode(index int) (Label, error)
}
