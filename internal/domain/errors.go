package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingData is returned when feature/label inputs are absent and
	// synthetic mode was not requested.
	ErrMissingData = errors.New("missing data")
	// ErrMissingArtifact is returned when a persisted model or encoder is absent.
	ErrMissingArtifact = errors.New("missing model artifact")
	// ErrInsufficientClasses is returned when fitting sees fewer than 2 distinct labels.
	ErrInsufficientClasses = errors.New("at least 2 distinct classes are required")
	// ErrEmptyTable is returned when matching against an empty embedding table.
	ErrEmptyTable = errors.New("embedding table is empty")
	// ErrShapeMismatch is the sentinel matched by every *ShapeMismatchError.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrUnknownLabel is returned when a label or index is outside the known set.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrNonFinite is returned when a feature or embedding holds NaN or Inf.
	ErrNonFinite = errors.New("non-finite value")
	// ErrNotFitted is returned when predicting with a model that holds no parameters.
	ErrNotFitted = errors.New("model is not fitted")
)

// ShapeMismatchError reports a dimensionality disagreement.
type ShapeMismatchError struct {
	Op   string
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: want dimension %d, got %d", e.Op, e.Want, e.Got)
}

// Is lets errors.Is(err, ErrShapeMismatch) match any ShapeMismatchError.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}
