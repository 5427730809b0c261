package classifier

import (
	"fmt"
	"sort"

	"bczsl/internal/domain"
)

// LabelEncoder is a bijection between the seen labels and [0, K). Classes are
// kept in sorted order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// FitEncoder builds an encoder over the distinct values of labels.
func FitEncoder(labels []string) (*LabelEncoder, error) {
	seen := make(map[string]struct{})
	var classes []string
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("label %d is empty: %w", i, domain.ErrMissingData)
		}
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	return NewLabelEncoder(classes)
}

// NewLabelEncoder builds an encoder from an explicit, duplicate-free class list.
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	e := &LabelEncoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range e.classes {
		if _, dup := e.index[c]; dup {
			return nil, fmt.Errorf("label encoder: duplicate class %q", c)
		}
		e.index[c] = i
	}
	return e, nil
}

// Len returns K.
func (e *LabelEncoder) Len() int { return len(e.classes) }

// Classes returns the class labels ordered by index.
func (e *LabelEncoder) Classes() []string { return append([]string(nil), e.classes...) }

// Encode maps a seen label to its index.
func (e *LabelEncoder) Encode(label string) (int, error) {
	i, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("encode %q: %w", label, domain.ErrUnknownLabel)
	}
	return i, nil
}

// Decode maps an index back to its label.
func (e *LabelEncoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(e.classes) {
		return "", fmt.Errorf("decode %d (have %d classes): %w", index, len(e.classes), domain.ErrUnknownLabel)
	}
	return e.classes[index], nil
}

// Transform encodes every label.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, err := e.Encode(l)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

// InverseTransform decodes every index.
func (e *LabelEncoder) InverseTransform(indices []int) ([]string, error) {
	out := make([]string, len(indices))
	for i, idx := range indices {
		l, err := e.Decode(idx)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}
