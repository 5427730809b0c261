package classifier

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"bczsl/internal/domain"
	"bczsl/internal/randsrc"
)

// clusters returns n points per class centred at +/-offset on every axis.
func clusters(src *randsrc.Source, n, d int, offset float64) ([][]float64, []string) {
	var x [][]float64
	var y []string
	for _, c := range []struct {
		label string
		sign  float64
	}{{"benign", -1}, {"malignant", 1}} {
		for i := 0; i < n; i++ {
			row := make([]float64, d)
			for j := range row {
				row[j] = c.sign*offset + 0.5*src.NormFloat64()
			}
			x = append(x, row)
			y = append(y, c.label)
		}
	}
	return x, y
}

func accuracy(t *testing.T, m *Model, enc *LabelEncoder, x [][]float64, y []string) float64 {
	t.Helper()
	pred, err := m.PredictBatch(x)
	if err != nil {
		t.Fatalf("PredictBatch: %v", err)
	}
	want, err := enc.Transform(y)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	correct := 0
	for i := range pred {
		if pred[i] == want[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(pred))
}

func TestFitSeparable(t *testing.T) {
	src := randsrc.New(7)
	x, y := clusters(src, 40, 5, 3)
	m, enc, err := Fit(x, y, FitOptions{Source: src})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if m.Classes() != 2 || m.Dim() != 5 || enc.Len() != 2 {
		t.Fatalf("shape = (%d, %d, %d), want (2, 5, 2)", m.Classes(), m.Dim(), enc.Len())
	}
	if acc := accuracy(t, m, enc, x, y); acc != 1.0 {
		t.Errorf("training accuracy = %v, want 1", acc)
	}
}

func TestFitThreeClasses(t *testing.T) {
	src := randsrc.New(3)
	centres := map[string][]float64{
		"a": {4, 0},
		"b": {-4, 0},
		"c": {0, 4},
	}
	var x [][]float64
	var y []string
	for _, label := range []string{"a", "b", "c"} {
		for i := 0; i < 30; i++ {
			c := centres[label]
			x = append(x, []float64{c[0] + 0.3*src.NormFloat64(), c[1] + 0.3*src.NormFloat64()})
			y = append(y, label)
		}
	}
	m, enc, err := Fit(x, y, FitOptions{})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if acc := accuracy(t, m, enc, x, y); acc != 1.0 {
		t.Errorf("training accuracy = %v, want 1", acc)
	}
	p, err := m.Probabilities([]float64{4, 0})
	if err != nil {
		t.Fatalf("Probabilities: %v", err)
	}
	var sum float64
	for _, v := range p {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v", sum)
	}
	if p[0] < 0.5 {
		t.Errorf("P(a | centre of a) = %v, want > 0.5", p[0])
	}
}

func TestFitDeterministic(t *testing.T) {
	x, y := clusters(randsrc.New(1), 20, 4, 1)
	m1, _, err := Fit(x, y, FitOptions{Source: randsrc.New(42)})
	if err != nil {
		t.Fatal(err)
	}
	m2, _, err := Fit(x, y, FitOptions{Source: randsrc.New(42)})
	if err != nil {
		t.Fatal(err)
	}
	w1, w2 := m1.Weights(), m2.Weights()
	for c := range w1 {
		for j := range w1[c] {
			if w1[c][j] != w2[c][j] {
				t.Fatalf("weights differ at (%d, %d): %v vs %v", c, j, w1[c][j], w2[c][j])
			}
		}
	}
}

func TestFitErrors(t *testing.T) {
	tests := []struct {
		name string
		x    [][]float64
		y    []string
		want error
	}{
		{"empty", nil, nil, domain.ErrMissingData},
		{"length mismatch", [][]float64{{1}, {2}}, []string{"a"}, domain.ErrMissingData},
		{"single class", [][]float64{{1}, {2}}, []string{"a", "a"}, domain.ErrInsufficientClasses},
		{"ragged rows", [][]float64{{1, 2}, {3}}, []string{"a", "b"}, domain.ErrShapeMismatch},
		{"empty label", [][]float64{{1}, {2}}, []string{"a", ""}, domain.ErrMissingData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Fit(tt.x, tt.y, FitOptions{})
			if !errors.Is(err, tt.want) {
				t.Errorf("Fit err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPredictErrors(t *testing.T) {
	m, err := NewModel([][]float64{{1, 0}, {0, 1}}, []float64{0, 0})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if _, err := m.Predict([]float64{1, 2, 3}); !errors.Is(err, domain.ErrShapeMismatch) {
		t.Errorf("Predict(wrong dim) err = %v, want ErrShapeMismatch", err)
	}
	var unfitted *Model
	if _, err := unfitted.Predict([]float64{1, 2}); !errors.Is(err, domain.ErrNotFitted) {
		t.Errorf("nil model Predict err = %v, want ErrNotFitted", err)
	}
	if got, _ := m.Predict([]float64{0, 5}); got != 1 {
		t.Errorf("Predict([0 5]) = %d, want 1", got)
	}
	if got, _ := m.Predict([]float64{1, 1}); got != 0 {
		t.Errorf("tie Predict([1 1]) = %d, want 0", got)
	}
}

func TestObjectiveGradient(t *testing.T) {
	src := randsrc.New(11)
	x, y := clusters(src, 5, 3, 1)
	enc, _ := FitEncoder(y)
	yi, _ := enc.Transform(y)

	xa := mat.NewDense(len(x), 4, nil)
	for i, row := range x {
		copy(xa.RawRowView(i), row)
		xa.Set(i, 3, 1)
	}
	obj := &objective{xa: xa, y: yi, k: 2, d: 3, c: 0.7}
	params := make([]float64, 2*4)
	for i := range params {
		params[i] = src.NormFloat64()
	}
	grad := make([]float64, len(params))
	obj.grad(grad, params)

	const h = 1e-6
	for i := range params {
		orig := params[i]
		params[i] = orig + h
		up := obj.loss(params)
		params[i] = orig - h
		down := obj.loss(params)
		params[i] = orig
		num := (up - down) / (2 * h)
		if math.Abs(num-grad[i]) > 1e-4*math.Max(1, math.Abs(num)) {
			t.Errorf("grad[%d] = %v, finite difference %v", i, grad[i], num)
		}
	}
}
