package classifier

import (
	"errors"
	"reflect"
	"testing"

	"bczsl/internal/domain"
)

func TestFitEncoderSortedBijection(t *testing.T) {
	enc, err := FitEncoder([]string{"malignant", "benign", "malignant", "atypical"})
	if err != nil {
		t.Fatalf("FitEncoder: %v", err)
	}
	want := []string{"atypical", "benign", "malignant"}
	if got := enc.Classes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Classes() = %v, want %v", got, want)
	}
	for i, label := range want {
		idx, err := enc.Encode(label)
		if err != nil || idx != i {
			t.Errorf("Encode(%q) = %d, %v; want %d", label, idx, err, i)
		}
		back, err := enc.Decode(idx)
		if err != nil || back != label {
			t.Errorf("Decode(%d) = %q, %v; want %q", idx, back, err, label)
		}
	}
}

func TestEncoderUnknown(t *testing.T) {
	enc, _ := FitEncoder([]string{"a", "b"})
	if _, err := enc.Encode("c"); !errors.Is(err, domain.ErrUnknownLabel) {
		t.Errorf("Encode(unseen) err = %v, want ErrUnknownLabel", err)
	}
	for _, idx := range []int{-1, 2, 99} {
		if _, err := enc.Decode(idx); !errors.Is(err, domain.ErrUnknownLabel) {
			t.Errorf("Decode(%d) err = %v, want ErrUnknownLabel", idx, err)
		}
	}
}

func TestEncoderTransformRoundTrip(t *testing.T) {
	labels := []string{"b", "a", "c", "a"}
	enc, _ := FitEncoder(labels)
	idx, err := enc.Transform(labels)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if want := []int{1, 0, 2, 0}; !reflect.DeepEqual(idx, want) {
		t.Errorf("Transform = %v, want %v", idx, want)
	}
	back, err := enc.InverseTransform(idx)
	if err != nil || !reflect.DeepEqual(back, labels) {
		t.Errorf("InverseTransform = %v, %v; want %v", back, err, labels)
	}
}

func TestEncoderRejectsEmptyAndDuplicate(t *testing.T) {
	if _, err := FitEncoder([]string{"a", ""}); !errors.Is(err, domain.ErrMissingData) {
		t.Errorf("FitEncoder with empty label err = %v, want ErrMissingData", err)
	}
	if _, err := NewLabelEncoder([]string{"a", "a"}); err == nil {
		t.Error("NewLabelEncoder with duplicates succeeded")
	}
}
