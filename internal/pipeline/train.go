package pipeline

import (
	"context"
	"fmt"

	"bczsl/internal/artifact"
	"bczsl/internal/classifier"
	"bczsl/internal/config"
	"bczsl/internal/dataset"
	"bczsl/internal/domain"
	"bczsl/internal/evaluation"
	"bczsl/internal/logging"
	"bczsl/internal/randsrc"
)

// RunTraining fits the seen-class classifier and writes the model, the
// encoder, the classification report, the confusion matrix figure and the
// training metrics.
func RunTraining(ctx context.Context, cfg *config.Config, opts Options) (*TrainMetrics, error) {
	log := logging.Phase("train")
	src := randsrc.New(cfg.Seed)

	set, err := trainingSet(ctx, cfg, opts, src)
	if err != nil {
		return nil, err
	}
	log.Info("training data ready", logging.KeySamples, set.Len(), logging.KeyFeatures, set.Dim())

	fitSet, valSet := set, (*dataset.Set)(nil)
	if vs := cfg.Train.ValidationSplit; vs > 0 {
		trainIdx, valIdx, err := dataset.StratifiedSplit(set.Labels, vs, src)
		if err != nil {
			return nil, err
		}
		fitSet, valSet = set.Subset(trainIdx), set.Subset(valIdx)
		log.Info("held out validation split", "validation.samples", valSet.Len())
	}

	model, enc, err := classifier.Fit(fitSet.Features, fitSet.Labels, classifier.FitOptions{
		MaxIter: cfg.Train.MaxIter,
		C:       cfg.Train.C,
		Source:  src,
	})
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	yTrue, err := enc.Transform(fitSet.Labels)
	if err != nil {
		return nil, err
	}
	yPred, err := model.PredictBatch(fitSet.Features)
	if err != nil {
		return nil, err
	}
	res, err := evaluation.Evaluate(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	log.Info("fit evaluated", logging.KeyAccuracy, res.Accuracy)

	var valAcc *float64
	if valSet != nil && valSet.Len() > 0 {
		valPred, err := model.PredictBatch(valSet.Features)
		if err != nil {
			return nil, err
		}
		names, err := enc.InverseTransform(valPred)
		if err != nil {
			return nil, err
		}
		vr, _, err := evaluation.EvaluateLabels(valSet.Labels, names)
		if err != nil {
			return nil, err
		}
		valAcc = &vr.Accuracy
		log.Info("validation evaluated", logging.KeyAccuracy, vr.Accuracy)
	}

	if err := classifier.SaveModel(cfg.Train.ModelPath, model); err != nil {
		return nil, err
	}
	if err := classifier.SaveEncoder(cfg.Train.EncoderPath, enc); err != nil {
		return nil, err
	}
	reportPath := cfg.Outputs.MetricsPath(cfg.Outputs.ClassificationReportFile)
	if err := artifact.WriteFile(reportPath, []byte(res.Report(enc.Classes()))); err != nil {
		return nil, err
	}
	figPath, err := evaluation.SaveFigure(figureWriter(cfg, opts), figurePath(cfg), res.Confusion, res.ConfusionNames(enc.Classes()))
	if err != nil {
		return nil, err
	}

	m := &TrainMetrics{
		Seed:                cfg.Seed,
		SyntheticMode:       opts.Synthetic,
		NSamples:            fitSet.Len(),
		NValidation:         valSet.Len(),
		NFeatures:           set.Dim(),
		TrainAccuracy:       res.Accuracy,
		ValidationAccuracy:  valAcc,
		ModelPath:           cfg.Train.ModelPath,
		EncoderPath:         cfg.Train.EncoderPath,
		ReportPath:          reportPath,
		ConfusionMatrixPath: figPath,
	}
	m.RunID = runID("train", m)
	metricsPath := cfg.Outputs.MetricsPath(cfg.Outputs.TrainMetricsFile)
	if err := artifact.WriteJSON(metricsPath, m); err != nil {
		return nil, err
	}
	log.Info("training artifacts written", logging.KeyPath, metricsPath, "run_id", m.RunID)
	return m, nil
}

// trainingSet reads the configured training data. With a metadata table the
// features come from the extractor; otherwise from the feature and label
// files, falling back to synthetic data when allowed.
func trainingSet(ctx context.Context, cfg *config.Config, opts Options, src *randsrc.Source) (*dataset.Set, error) {
	if cfg.Train.MetadataPath != "" {
		meta, err := dataset.LoadMetadata(cfg.Train.MetadataPath)
		if err != nil {
			return nil, err
		}
		inputs, err := meta.Column(cfg.Train.InputColumn)
		if err != nil {
			return nil, err
		}
		labels, err := meta.Column(cfg.Train.LabelColumn)
		if err != nil {
			return nil, err
		}
		x, err := dataset.ExtractMatrix(ctx, extractor(cfg, opts), inputs)
		if err != nil {
			return nil, err
		}
		return &dataset.Set{Features: x, Labels: labels}, nil
	}
	return loadOrSynthesize(cfg.Train.FeaturesPath, cfg.Train.LabelsPath, opts.Synthetic, func() *dataset.Set {
		return dataset.Synthetic(src, SyntheticTrainSamples, SyntheticFeatures, SyntheticLabels)
	})
}

// loadOrSynthesize reads the feature and label files when both exist. When
// either is absent it generates data if synthetic is set and fails with
// ErrMissingData otherwise.
func loadOrSynthesize(featuresPath, labelsPath string, synthetic bool, generate func() *dataset.Set) (*dataset.Set, error) {
	if artifact.Exists(featuresPath) && artifact.Exists(labelsPath) {
		return dataset.Load(featuresPath, labelsPath)
	}
	if synthetic {
		return generate(), nil
	}
	return nil, fmt.Errorf("missing arrays %s and/or %s (use --synthetic for a scaffolding run): %w",
		featuresPath, labelsPath, domain.ErrMissingData)
}
