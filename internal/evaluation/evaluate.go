// Package evaluation scores predicted label indices against the truth. It is
// used unchanged for seen-class self-evaluation, held-out evaluation and the
// zero-shot pass.
package evaluation

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrEmptyInput     = errors.New("evaluation: empty input")
	ErrLengthMismatch = errors.New("evaluation: y_true and y_pred differ in length")
)

// ClassScore holds the one-vs-rest scores of a single label.
type ClassScore struct {
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Average is an aggregate over every class.
type Average struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Result is the outcome of Evaluate.
type Result struct {
	// Labels is the sorted union of labels seen in either sequence. It orders
	// both axes of Confusion and the entries of Classes.
	Labels    []int        `json:"labels"`
	Accuracy  float64      `json:"accuracy"`
	Confusion [][]int      `json:"confusion_matrix"`
	Classes   []ClassScore `json:"classes"`
	Macro     Average      `json:"macro_avg"`
	Weighted  Average      `json:"weighted_avg"`
	N         int          `json:"n"`
}

// Evaluate computes accuracy, the confusion matrix (rows true, columns
// predicted) and per-class precision, recall and F1. A zero denominator
// scores 0.
func Evaluate(yTrue, yPred []int) (*Result, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, ErrEmptyInput
	}

	seen := make(map[int]struct{})
	for i := range yTrue {
		seen[yTrue[i]] = struct{}{}
		seen[yPred[i]] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	k := len(labels)
	cm := make([][]int, k)
	for i := range cm {
		cm[i] = make([]int, k)
	}
	correct := 0
	for i := range yTrue {
		cm[pos[yTrue[i]]][pos[yPred[i]]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	n := len(yTrue)
	res := &Result{
		Labels:    labels,
		Accuracy:  float64(correct) / float64(n),
		Confusion: cm,
		Classes:   make([]ClassScore, k),
		N:         n,
	}
	for c := 0; c < k; c++ {
		tp := cm[c][c]
		var rowSum, colSum int
		for j := 0; j < k; j++ {
			rowSum += cm[c][j]
			colSum += cm[j][c]
		}
		p := ratio(tp, colSum)
		r := ratio(tp, rowSum)
		f := 0.0
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		res.Classes[c] = ClassScore{Label: labels[c], Precision: p, Recall: r, F1: f, Support: rowSum}

		res.Macro.Precision += p / float64(k)
		res.Macro.Recall += r / float64(k)
		res.Macro.F1 += f / float64(k)
		w := float64(rowSum) / float64(n)
		res.Weighted.Precision += p * w
		res.Weighted.Recall += r * w
		res.Weighted.F1 += f * w
	}
	res.Macro.Support, res.Weighted.Support = n, n
	return res, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// EvaluateLabels encodes string labels by the sorted union of both sequences
// and evaluates them. It returns the label names in index order.
func EvaluateLabels(yTrue, yPred []string) (*Result, []string, error) {
	if len(yTrue) != len(yPred) {
		return nil, nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	set := make(map[string]struct{})
	for i := range yTrue {
		set[yTrue[i]] = struct{}{}
		set[yPred[i]] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for s := range set {
		names = append(names, s)
	}
	sort.Strings(names)
	idx := make(map[string]int, len(names))
	for i, s := range names {
		idx[s] = i
	}
	t := make([]int, len(yTrue))
	p := make([]int, len(yPred))
	for i := range yTrue {
		t[i], p[i] = idx[yTrue[i]], idx[yPred[i]]
	}
	res, err := Evaluate(t, p)
	if err != nil {
		return nil, nil, err
	}
	return res, names, nil
}

// IsDiagonal reports whether every off-diagonal cell of the confusion matrix
// is zero.
func (r *Result) IsDiagonal() bool {
	for i, row := range r.Confusion {
		for j, v := range row {
			if i != j && v != 0 {
				return false
			}
		}
	}
	return true
}
