package sentimen

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// TrainingConfig contains configuration for a pipeline run.
type TrainingConfig struct {
	TrainRatio       float64
	Alpha            float64
	UseSMOTE         bool
	Seed             int64
	Vectorizer       VectorizerConfig
	Log              logrus.FieldLogger
	ProgressCallback func(stage string)
}

// DefaultTrainingConfig returns a default training configuration.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		TrainRatio: 0.8,
		Alpha:      DefaultAlpha,
		UseSMOTE:   true,
		Seed:       DefaultSeed,
		Vectorizer: DefaultVectorizerConfig(),
	}
}

// TrainingMetrics contains timings and headline numbers of a run.
type TrainingMetrics struct {
	NormalizeTime time.Duration
	FeatureTime   time.Duration
	TrainingTime  time.Duration
	TotalTime     time.Duration
	TrainSamples  int
	TestSamples   int
	Features      int
	Accuracy      float64
}

// RunResult holds the output of every stage of a run.
type RunResult struct {
	Records   []NormalizedRecord
	Normalize NormalizeReport
	Split     *SplitResult
	Features  *FeatureBundle
	Model     *Model
	Report    *EvaluationReport
	Metrics   TrainingMetrics
}

// Trainer runs the normalize, split, extract, train and evaluate stages in
// order.
type Trainer struct {
	config     TrainingConfig
	normalizer *Normalizer
}

// NewTrainer creates a new trainer with the given configuration.
func NewTrainer(config TrainingConfig, normalizer *Normalizer) *Trainer {
	if config.Log == nil {
		config.Log = discardLogger()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(WithLogger(config.Log))
	}
	return &Trainer{config: config, normalizer: normalizer}
}

// Config returns the trainer's configuration.
func (t *Trainer) Config() TrainingConfig {
	return t.config
}

func (t *Trainer) progress(stage string) {
	t.config.Log.WithField("stage", stage).Info("starting stage")
	if t.config.ProgressCallback != nil {
		t.config.ProgressCallback(stage)
	}
}

// Run trains and evaluates a model on records. Any stage failure aborts
// the run.
func (t *Trainer) Run(ctx context.Context, records []Record) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{}

	t.progress("preprocessing")
	normalized, report, err := t.normalizer.NormalizeAll(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("preprocessing: %w", err)
	}
	res.Records, res.Normalize = normalized, report
	res.Metrics.NormalizeTime = time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.progress("split")
	samples := SamplesFromRecords(normalized)
	splitter := &Splitter{Seed: t.config.Seed}
	res.Split, err = splitter.Split(samples, t.config.TrainRatio)
	if err != nil {
		return nil, fmt.Errorf("splitting: %w", err)
	}
	if err := t.fitAndEvaluate(ctx, res); err != nil {
		return nil, err
	}
	res.Metrics.TotalTime = time.Since(start)
	t.logComplete(res)
	return res, nil
}

// RunSplit trains and evaluates a model on a split made earlier, such as
// one read back from storage. The preprocessing stage is skipped.
func (t *Trainer) RunSplit(ctx context.Context, split *SplitResult) (*RunResult, error) {
	if split == nil || len(split.Train) == 0 || len(split.Test) == 0 {
		return nil, fmt.Errorf("%w: split needs training and testing samples", ErrInsufficientData)
	}
	start := time.Now()
	res := &RunResult{Split: split}
	if err := t.fitAndEvaluate(ctx, res); err != nil {
		return nil, err
	}
	res.Metrics.TotalTime = time.Since(start)
	t.logComplete(res)
	return res, nil
}

// fitAndEvaluate runs the feature, training and evaluation stages over
// res.Split and fills in the rest of res.
func (t *Trainer) fitAndEvaluate(ctx context.Context, res *RunResult) error {
	var err error
	if err := ctx.Err(); err != nil {
		return err
	}
	t.progress("features")
	featureStart := time.Now()
	res.Features, err = ExtractFeatures(res.Split.Train, res.Split.Test, FeatureConfig{
		Vectorizer: t.config.Vectorizer,
		UseSMOTE:   t.config.UseSMOTE,
		Seed:       t.config.Seed,
		Log:        t.config.Log,
	})
	if err != nil {
		return fmt.Errorf("feature extraction: %w", err)
	}
	res.Metrics.FeatureTime = time.Since(featureStart)

	if err := ctx.Err(); err != nil {
		return err
	}
	t.progress("training")
	trainStart := time.Now()
	nb, err := Train(res.Features, t.config.Alpha)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}
	res.Metrics.TrainingTime = time.Since(trainStart)
	res.Model, err = NewModel("naive-bayes", res.Features.Vectorizer, nb)
	if err != nil {
		return err
	}

	t.progress("evaluation")
	res.Report, err = Evaluate(nb, res.Features)
	if err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}

	res.Metrics.TrainSamples = len(res.Split.Train)
	res.Metrics.TestSamples = len(res.Split.Test)
	res.Metrics.Features = len(res.Features.Vectorizer.FeatureNames())
	res.Metrics.Accuracy = res.Report.Accuracy
	return nil
}

func (t *Trainer) logComplete(res *RunResult) {
	t.config.Log.WithFields(logrus.Fields{
		"accuracy": fmt.Sprintf("%.4f", res.Report.Accuracy),
		"train":    res.Metrics.TrainSamples,
		"test":     res.Metrics.TestSamples,
		"features": res.Metrics.Features,
		"elapsed":  res.Metrics.TotalTime,
	}).Info("run complete")
}

// CrossValidationResult contains results from cross-validation.
type CrossValidationResult struct {
	MeanAccuracy float64
	StdAccuracy  float64
	FoldAccuracy []float64
}

// CrossValidate runs stratified k-fold cross-validation over samples that
// are already normalized. Each class is shuffled with the configured seed
// and dealt round-robin into folds.
func (t *Trainer) CrossValidate(ctx context.Context, samples []Sample, k int) (CrossValidationResult, error) {
	var result CrossValidationResult
	if k < 2 {
		return result, fmt.Errorf("%w: need at least 2 folds, got %d", ErrValidation, k)
	}
	if len(samples) < k {
		return result, fmt.Errorf("%w: %d samples for %d folds", ErrInsufficientData, len(samples), k)
	}

	byClass := make(map[Label][]int)
	for i, s := range samples {
		byClass[s.Label] = append(byClass[s.Label], i)
	}
	rng := rand.New(rand.NewSource(t.config.Seed))
	fold := make([]int, len(samples))
	next := 0
	for _, class := range DistributionOf(labelsOf(samples)).Labels() {
		idx := append([]int(nil), byClass[class]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for _, i := range idx {
			fold[i] = next % k
			next++
		}
	}

	for f := 0; f < k; f++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		var train, test []Sample
		for i, s := range samples {
			if fold[i] == f {
				test = append(test, s)
			} else {
				train = append(train, s)
			}
		}
		bundle, err := ExtractFeatures(train, test, FeatureConfig{
			Vectorizer: t.config.Vectorizer,
			UseSMOTE:   t.config.UseSMOTE,
			Seed:       t.config.Seed,
			Log:        t.config.Log,
		})
		if err != nil {
			return result, fmt.Errorf("fold %d: %w", f+1, err)
		}
		nb, err := Train(bundle, t.config.Alpha)
		if err != nil {
			return result, fmt.Errorf("fold %d: %w", f+1, err)
		}
		report, err := Evaluate(nb, bundle)
		if err != nil {
			return result, fmt.Errorf("fold %d: %w", f+1, err)
		}
		result.FoldAccuracy = append(result.FoldAccuracy, report.Accuracy)
	}

	result.MeanAccuracy, result.StdAccuracy = stat.PopMeanStdDev(result.FoldAccuracy, nil)
	return result, nil
}

func labelsOf(samples []Sample) []Label {
	labels := make([]Label, len(samples))
	for i, s := range samples {
		labels[i] = s.Label
	}
	return labels
}
