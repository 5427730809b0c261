package classifier

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"bczsl/internal/domain"
	"bczsl/internal/randsrc"
)

const (
	DefaultMaxIter = 1000
	DefaultC       = 1.0
)

// FitOptions controls logistic-regression fitting.
type FitOptions struct {
	// MaxIter bounds the L-BFGS major iterations.
	MaxIter int
	// C is the inverse L2 regularisation strength.
	C float64
	// Source seeds the initial weights. Nil starts from zero.
	Source *randsrc.Source
}

func (o *FitOptions) applyDefaults() {
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.C <= 0 {
		o.C = DefaultC
	}
}

// Model is a fitted multinomial logistic-regression classifier. It is
// read-only after Fit and safe for concurrent use.
type Model struct {
	weights *mat.Dense // K x D
	bias    []float64  // K
}

// Fit encodes labels and fits a softmax classifier over them.
func Fit(features [][]float64, labels []string, opts FitOptions) (*Model, *LabelEncoder, error) {
	if len(features) == 0 || len(labels) == 0 {
		return nil, nil, fmt.Errorf("fit: no samples: %w", domain.ErrMissingData)
	}
	if len(features) != len(labels) {
		return nil, nil, fmt.Errorf("fit: %d feature rows for %d labels: %w", len(features), len(labels), domain.ErrMissingData)
	}
	enc, err := FitEncoder(labels)
	if err != nil {
		return nil, nil, fmt.Errorf("fit: %w", err)
	}
	if enc.Len() < 2 {
		return nil, nil, fmt.Errorf("fit: got %d distinct label(s): %w", enc.Len(), domain.ErrInsufficientClasses)
	}
	y, err := enc.Transform(labels)
	if err != nil {
		return nil, nil, fmt.Errorf("fit: %w", err)
	}
	m, err := FitEncoded(features, y, enc.Len(), opts)
	if err != nil {
		return nil, nil, err
	}
	return m, enc, nil
}

// FitEncoded fits on integer targets in [0, k).
func FitEncoded(features [][]float64, y []int, k int, opts FitOptions) (*Model, error) {
	opts.applyDefaults()
	if k < 2 {
		return nil, fmt.Errorf("fit: k=%d: %w", k, domain.ErrInsufficientClasses)
	}
	if len(features) == 0 || len(features) != len(y) {
		return nil, fmt.Errorf("fit: %d feature rows for %d targets: %w", len(features), len(y), domain.ErrMissingData)
	}
	n, d := len(features), len(features[0])
	if d == 0 {
		return nil, fmt.Errorf("fit: zero-width feature rows: %w", domain.ErrMissingData)
	}
	xa := mat.NewDense(n, d+1, nil)
	for i, row := range features {
		if len(row) != d {
			return nil, fmt.Errorf("fit: row %d: %w", i, &domain.ShapeMismatchError{Op: "classifier.Fit", Want: d, Got: len(row)})
		}
		copy(xa.RawRowView(i), row)
		xa.Set(i, d, 1)
	}
	for i, c := range y {
		if c < 0 || c >= k {
			return nil, fmt.Errorf("fit: target %d = %d outside [0, %d): %w", i, c, k, domain.ErrUnknownLabel)
		}
	}

	obj := &objective{xa: xa, y: y, k: k, d: d, c: opts.C}
	init := make([]float64, k*(d+1))
	if opts.Source != nil {
		for i := range init {
			init[i] = opts.Source.NormFloat64() * 1e-3
		}
	}
	problem := optimize.Problem{Func: obj.loss, Grad: obj.grad}
	settings := &optimize.Settings{MajorIterations: opts.MaxIter, GradientThreshold: 1e-6}

	res, err := optimize.Minimize(problem, init, settings, &optimize.LBFGS{})
	if err != nil {
		if res == nil || !allFinite(res.X) {
			return nil, fmt.Errorf("fit: optimizer: %w", err)
		}
		slog.Warn("optimizer stopped early; using last iterate", "error", err)
	}
	if res.Status == optimize.IterationLimit {
		slog.Warn("fit did not converge within max_iter", "max_iter", opts.MaxIter)
	}
	slog.Debug("fit finished",
		"data.samples", n, "data.features", d, "ml.classes", k,
		"optimizer.status", res.Status.String(), "optimizer.iterations", res.Stats.MajorIterations,
		"optimizer.loss", res.F)

	params := mat.NewDense(k, d+1, res.X)
	m := &Model{weights: mat.NewDense(k, d, nil), bias: make([]float64, k)}
	m.weights.Copy(params.Slice(0, k, 0, d))
	for c := 0; c < k; c++ {
		m.bias[c] = params.At(c, d)
	}
	return m, nil
}

// NewModel builds a model from explicit parameters (weights is K rows of D).
func NewModel(weights [][]float64, bias []float64) (*Model, error) {
	k := len(weights)
	if k < 2 {
		return nil, fmt.Errorf("new model: %w", domain.ErrInsufficientClasses)
	}
	if len(bias) != k {
		return nil, &domain.ShapeMismatchError{Op: "classifier.NewModel", Want: k, Got: len(bias)}
	}
	d := len(weights[0])
	if d == 0 {
		return nil, fmt.Errorf("new model: zero-width weights: %w", domain.ErrNotFitted)
	}
	m := &Model{weights: mat.NewDense(k, d, nil), bias: append([]float64(nil), bias...)}
	for c, row := range weights {
		if len(row) != d {
			return nil, &domain.ShapeMismatchError{Op: "classifier.NewModel", Want: d, Got: len(row)}
		}
		m.weights.SetRow(c, row)
	}
	return m, nil
}

// Classes returns K.
func (m *Model) Classes() int {
	if m == nil || m.weights == nil {
		return 0
	}
	r, _ := m.weights.Dims()
	return r
}

// Dim returns D.
func (m *Model) Dim() int {
	if m == nil || m.weights == nil {
		return 0
	}
	_, c := m.weights.Dims()
	return c
}

// Weights returns a copy of the K x D weight rows.
func (m *Model) Weights() [][]float64 {
	out := make([][]float64, m.Classes())
	for c := range out {
		out[c] = mat.Row(nil, c, m.weights)
	}
	return out
}

// Bias returns a copy of the K intercepts.
func (m *Model) Bias() []float64 { return append([]float64(nil), m.bias...) }

func (m *Model) scores(x []float64) ([]float64, error) {
	if m == nil || m.weights == nil {
		return nil, domain.ErrNotFitted
	}
	if d := m.Dim(); len(x) != d {
		return nil, &domain.ShapeMismatchError{Op: "classifier.Predict", Want: d, Got: len(x)}
	}
	out := make([]float64, m.Classes())
	for c := range out {
		out[c] = floats.Dot(m.weights.RawRowView(c), x) + m.bias[c]
	}
	return out, nil
}

// Predict returns the encoded index of the most likely class. Ties go to the
// lowest index.
func (m *Model) Predict(x []float64) (int, error) {
	s, err := m.scores(x)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(s), nil
}

// PredictBatch predicts every row in order.
func (m *Model) PredictBatch(rows [][]float64) ([]int, error) {
	out := make([]int, len(rows))
	for i, row := range rows {
		p, err := m.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Probabilities returns the softmax class distribution for x.
func (m *Model) Probabilities(x []float64) ([]float64, error) {
	s, err := m.scores(x)
	if err != nil {
		return nil, err
	}
	lse := floats.LogSumExp(s)
	for i := range s {
		s[i] = math.Exp(s[i] - lse)
	}
	return s, nil
}

// objective is the L2-penalised multinomial negative log-likelihood. The
// parameter vector is K rows of D weights followed by one intercept.
type objective struct {
	xa *mat.Dense // n x (d+1), last column ones
	y  []int
	k  int
	d  int
	c  float64
}

func (o *objective) loss(x []float64) float64 {
	return o.eval(x, nil)
}

func (o *objective) grad(grad, x []float64) {
	o.eval(x, grad)
}

func (o *objective) eval(x, grad []float64) float64 {
	n, _ := o.xa.Dims()
	params := mat.NewDense(o.k, o.d+1, x)
	var scores mat.Dense
	scores.Mul(o.xa, params.T())

	var resid *mat.Dense
	if grad != nil {
		resid = mat.NewDense(n, o.k, nil)
	}
	var nll float64
	for i := 0; i < n; i++ {
		row := scores.RawRowView(i)
		lse := floats.LogSumExp(row)
		nll += lse - row[o.y[i]]
		if resid != nil {
			r := resid.RawRowView(i)
			for c := range row {
				r[c] = math.Exp(row[c] - lse)
			}
			r[o.y[i]] -= 1
		}
	}
	loss := o.c * nll
	for c := 0; c < o.k; c++ {
		for j := 0; j < o.d; j++ {
			w := params.At(c, j)
			loss += 0.5 * w * w
		}
	}
	if grad != nil {
		g := mat.NewDense(o.k, o.d+1, grad)
		g.Mul(resid.T(), o.xa)
		g.Scale(o.c, g)
		for c := 0; c < o.k; c++ {
			for j := 0; j < o.d; j++ {
				g.Set(c, j, g.At(c, j)+params.At(c, j))
			}
		}
	}
	return loss
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return len(xs) > 0
}
