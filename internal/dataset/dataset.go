// Package dataset loads feature matrices and label sequences from disk and
// fabricates deterministic synthetic data for smoke runs.
package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bczsl/internal/domain"
	"bczsl/internal/randsrc"
)

// Set is a feature matrix with one label per row.
type Set struct {
	Features [][]float64
	Labels   []string
}

// Len returns the number of samples; 0 for a nil set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Labels)
}

// Dim returns the feature width, or 0 for an empty set.
func (s *Set) Dim() int {
	if len(s.Features) == 0 {
		return 0
	}
	return len(s.Features[0])
}

// Load reads features and labels. Either file missing yields ErrMissingData.
func Load(featuresPath, labelsPath string) (*Set, error) {
	for _, p := range []string{featuresPath, labelsPath} {
		if p == "" {
			return nil, fmt.Errorf("dataset: path not configured: %w", domain.ErrMissingData)
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dataset: %s: %w", p, domain.ErrMissingData)
		}
	}
	x, err := LoadFeatures(featuresPath)
	if err != nil {
		return nil, err
	}
	y, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("dataset: %d feature rows but %d labels: %w", len(x), len(y), domain.ErrMissingData)
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("dataset: %s is empty: %w", featuresPath, domain.ErrMissingData)
	}
	return &Set{Features: x, Labels: y}, nil
}

// LoadFeatures reads a numeric matrix from .csv (an optional non-numeric
// header row is skipped) or .json (an array of arrays).
func LoadFeatures(path string) ([][]float64, error) {
	var rows [][]float64
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		records, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		for i, rec := range records {
			row := make([]float64, len(rec))
			numeric := true
			for j, cell := range rec {
				v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
				if err != nil {
					numeric = false
					break
				}
				row[j] = v
			}
			if !numeric {
				if i == 0 {
					continue
				}
				return nil, fmt.Errorf("dataset: %s row %d is not numeric", path, i+1)
			}
			rows = append(rows, row)
		}
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("dataset: parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("dataset: unsupported feature file extension %q", ext)
	}
	if err := checkWidth("dataset.LoadFeatures", rows); err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return rows, nil
}

func checkWidth(op string, rows [][]float64) error {
	if len(rows) == 0 {
		return nil
	}
	d := len(rows[0])
	if d == 0 {
		return fmt.Errorf("zero-width rows: %w", domain.ErrMissingData)
	}
	for i, r := range rows {
		if len(r) != d {
			return fmt.Errorf("row %d: %w", i, &domain.ShapeMismatchError{Op: op, Want: d, Got: len(r)})
		}
		for j, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d column %d is %v: %w", i, j, v, domain.ErrNonFinite)
			}
		}
	}
	return nil
}

// LoadLabels reads labels from .json (array of strings), .csv (first column,
// an optional "label" header is skipped) or plain text (one per line).
func LoadLabels(path string) ([]string, error) {
	var labels []string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &labels); err != nil {
			return nil, fmt.Errorf("dataset: parsing %s: %w", path, err)
		}
	case ".csv":
		records, err := readCSV(path)
		if err != nil {
			return nil, err
		}
		for i, rec := range records {
			v := strings.TrimSpace(rec[0])
			if i == 0 && strings.EqualFold(v, "label") {
				continue
			}
			labels = append(labels, v)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				labels = append(labels, line)
			}
		}
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("dataset: %s label %d is empty: %w", path, i, domain.ErrMissingData)
		}
	}
	return labels, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %w", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
	}
	return records, nil
}

// Synthetic draws n standard-normal rows of width d. Labels are assigned in
// equal contiguous blocks, in the order given. The output depends only on
// the state of src.
func Synthetic(src *randsrc.Source, n, d int, labels []string) *Set {
	s := &Set{Features: make([][]float64, n), Labels: make([]string, n)}
	for i := range s.Features {
		row := make([]float64, d)
		for j := range row {
			row[j] = src.NormFloat64()
		}
		s.Features[i] = row
	}
	if len(labels) > 0 {
		block := n / len(labels)
		for i := range s.Labels {
			c := len(labels) - 1
			if block > 0 && i/block < len(labels) {
				c = i / block
			}
			s.Labels[i] = labels[c]
		}
	}
	return s
}

// Subset returns the rows at the given indices.
func (s *Set) Subset(idx []int) *Set {
	out := &Set{Features: make([][]float64, len(idx)), Labels: make([]string, len(idx))}
	for i, j := range idx {
		out.Features[i] = s.Features[j]
		out.Labels[i] = s.Labels[j]
	}
	return out
}

// ExtractMatrix vectorizes every input with v and checks that all vectors
// share one width.
func ExtractMatrix(ctx context.Context, v domain.Vectorizer, inputs []string) ([][]float64, error) {
	rows := make([][]float64, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := v.Vectorize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("dataset: extract %q: %w", in, err)
		}
		rows[i] = vec
	}
	if err := checkWidth("dataset.ExtractMatrix", rows); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return rows, nil
}
