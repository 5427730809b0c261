package pipeline

import (
	"context"
	"fmt"
	"sort"

	"bczsl/internal/artifact"
	"bczsl/internal/classifier"
	"bczsl/internal/config"
	"bczsl/internal/dataset"
	"bczsl/internal/domain"
	"bczsl/internal/embedding"
	"bczsl/internal/evaluation"
	"bczsl/internal/logging"
	"bczsl/internal/randsrc"
	"bczsl/internal/zeroshot"
)

// Session holds everything needed to classify held-out samples.
type Session struct {
	Model   *classifier.Model
	Encoder *classifier.LabelEncoder
	Set     *dataset.Set
	// Table is nil unless class embeddings were requested and found.
	Table *embedding.Table
}

// Matcher returns the zero-shot matcher over the session's collaborators.
func (s *Session) Matcher() *zeroshot.Matcher {
	return zeroshot.NewMatcher(s.Model, s.Encoder, s.Table)
}

// LoadArtifacts reads the persisted classifier and encoder.
func LoadArtifacts(cfg *config.Config) (*classifier.Model, *classifier.LabelEncoder, error) {
	model, err := classifier.LoadModel(cfg.Train.ModelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run training first)", err)
	}
	enc, err := classifier.LoadEncoder(cfg.Train.EncoderPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run training first)", err)
	}
	if model.Classes() != enc.Len() {
		return nil, nil, fmt.Errorf("model has %d classes but encoder has %d: %w",
			model.Classes(), enc.Len(), domain.ErrShapeMismatch)
	}
	return model, enc, nil
}

// OpenSession loads the artifacts and the held-out samples. With withTable
// set the class-embedding table is loaded from opts.Store or the configured
// store.
func OpenSession(ctx context.Context, cfg *config.Config, opts Options, withTable bool) (*Session, error) {
	model, enc, err := LoadArtifacts(cfg)
	if err != nil {
		return nil, err
	}
	src := randsrc.New(cfg.Seed)
	set, err := loadOrSynthesize(cfg.Inference.FeaturesPath, cfg.Inference.LabelsPath, opts.Synthetic, func() *dataset.Set {
		return dataset.Synthetic(src.Derive(1), SyntheticInferenceSamples, SyntheticFeatures, SyntheticLabels)
	})
	if err != nil {
		return nil, fmt.Errorf("inference data: %w", err)
	}
	if set.Dim() != model.Dim() {
		return nil, fmt.Errorf("inference data: %w",
			&domain.ShapeMismatchError{Op: "pipeline.OpenSession", Want: model.Dim(), Got: set.Dim()})
	}
	s := &Session{Model: model, Encoder: enc, Set: set}
	if withTable {
		store := opts.Store
		if store == nil {
			if store, err = OpenStore(cfg); err != nil {
				return nil, err
			}
		}
		if s.Table, err = store.Load(ctx); err != nil {
			return nil, fmt.Errorf("class embeddings: %w", err)
		}
	}
	return s, nil
}

// RunInference evaluates the persisted classifier on held-out data and, when
// inference.zero_shot is set, scores the zero-shot matcher on the same
// samples. Nothing is written unless every step succeeds.
func RunInference(ctx context.Context, cfg *config.Config, opts Options) (*InferenceMetrics, error) {
	log := logging.Phase("inference")
	s, err := OpenSession(ctx, cfg, opts, cfg.Inference.ZeroShot)
	if err != nil {
		return nil, err
	}
	log.Info("inference data ready", logging.KeySamples, s.Set.Len(), logging.KeyFeatures, s.Set.Dim())

	pred, err := s.Model.PredictBatch(s.Set.Features)
	if err != nil {
		return nil, err
	}
	predLabels, err := s.Encoder.InverseTransform(pred)
	if err != nil {
		return nil, err
	}
	res, _, err := evaluation.EvaluateLabels(s.Set.Labels, predLabels)
	if err != nil {
		return nil, err
	}
	log.Info("held-out evaluation", logging.KeyAccuracy, res.Accuracy)

	m := &InferenceMetrics{
		Seed:              cfg.Seed,
		SyntheticMode:     opts.Synthetic,
		NSamples:          s.Set.Len(),
		NFeatures:         s.Set.Dim(),
		InferenceAccuracy: res.Accuracy,
		ConfusionMatrix:   res.Confusion,
		ModelPath:         cfg.Train.ModelPath,
		EncoderPath:       cfg.Train.EncoderPath,
	}

	if s.Table != nil {
		zs, err := zeroShotPass(s, cfg.Inference.TopK)
		if err != nil {
			return nil, err
		}
		m.ZeroShot = zs
		log.Info("zero-shot evaluation", logging.KeyAccuracy, zs.Accuracy, "classes", zs.NClasses)
	}

	m.RunID = runID("inference", m)
	metricsPath := cfg.Outputs.MetricsPath(cfg.Outputs.InferenceMetricsFile)
	if err := artifact.WriteJSON(metricsPath, m); err != nil {
		return nil, err
	}
	log.Info("inference metrics written", logging.KeyPath, metricsPath, "run_id", m.RunID)
	return m, nil
}

func zeroShotPass(s *Session, topK int) (*ZeroShotMetrics, error) {
	matcher := s.Matcher()
	preds, err := matcher.PredictAll(s.Set.Features)
	if err != nil {
		return nil, err
	}
	if len(s.Set.Features) > 0 {
		if ranked, err := matcher.Rank(s.Set.Features[0], topK); err == nil {
			logging.Phase("inference").Debug("zero-shot ranking of first sample", "ranking", ranked)
		}
	}
	res, _, err := evaluation.EvaluateLabels(s.Set.Labels, preds)
	if err != nil {
		return nil, err
	}
	return &ZeroShotMetrics{Accuracy: res.Accuracy, NClasses: s.Table.Len(), Predictions: preds}, nil
}

// Inspection is the per-sample view used by the explorer.
type Inspection struct {
	Index     int
	TrueLabel string
	Seen      string
	// Probabilities holds the seen classes ordered by descending probability.
	Probabilities []domain.ScoredLabel
	// ZeroShot and Ranking are empty when the session has no table.
	ZeroShot string
	Ranking  []domain.ScoredLabel
}

// Len reports the number of held-out samples.
func (s *Session) Len() int { return s.Set.Len() }

// Inspect classifies sample i and, with a table loaded, ranks the top k
// class embeddings against it.
func (s *Session) Inspect(i, k int) (*Inspection, error) {
	if i < 0 || i >= s.Set.Len() {
		return nil, fmt.Errorf("sample %d out of range [0,%d)", i, s.Set.Len())
	}
	x := s.Set.Features[i]
	out := &Inspection{Index: i, TrueLabel: s.Set.Labels[i]}

	idx, err := s.Model.Predict(x)
	if err != nil {
		return nil, err
	}
	if out.Seen, err = s.Encoder.Decode(idx); err != nil {
		return nil, err
	}
	probs, err := s.Model.Probabilities(x)
	if err != nil {
		return nil, err
	}
	classes := s.Encoder.Classes()
	for j, p := range probs {
		out.Probabilities = append(out.Probabilities, domain.ScoredLabel{Label: classes[j], Score: p})
	}
	sort.SliceStable(out.Probabilities, func(a, b int) bool {
		return out.Probabilities[a].Score > out.Probabilities[b].Score
	})

	if s.Table != nil {
		m := s.Matcher()
		if out.ZeroShot, err = m.Predict(x); err != nil {
			return nil, err
		}
		if out.Ranking, err = m.Rank(x, k); err != nil {
			return nil, err
		}
	}
	return out, nil
}
