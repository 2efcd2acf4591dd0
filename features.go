package sentimen

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// FeatureConfig controls feature extraction.
type FeatureConfig struct {
	Vectorizer VectorizerConfig
	UseSMOTE   bool
	Seed       int64
	Log        logrus.FieldLogger
}

// DefaultFeatureConfig returns the default TF-IDF settings with SMOTE
// enabled.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Vectorizer: DefaultVectorizerConfig(),
		UseSMOTE:   true,
		Seed:       DefaultSeed,
	}
}

// A FeatureBundle holds the vectorized training and test sets.
type FeatureBundle struct {
	Vectorizer *TfidfVectorizer

	TrainX *Matrix // Rebalanced when SMOTE is enabled
	TrainY []Label
	TestX  *Matrix
	TestY  []Label

	TestTexts []string

	TrainCountBefore   int
	DistributionBefore Distribution
	DistributionAfter  Distribution
	NeighborCount      int
	SyntheticAdded     int
}

// ExtractFeatures fits a TF-IDF vectorizer on the training texts, transforms
// both sets and optionally rebalances the training rows with SMOTE. The test
// set is never resampled.
func ExtractFeatures(train, test []Sample, cfg FeatureConfig) (*FeatureBundle, error) {
	log := cfg.Log
	if log == nil {
		log = discardLogger()
	}
	if len(train) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("%w: training (%d) and testing (%d) sets must both be non-empty",
			ErrInsufficientData, len(train), len(test))
	}

	trainTexts, trainY := samplesToColumns(train)
	testTexts, testY := samplesToColumns(test)

	vec := NewTfidfVectorizer(cfg.Vectorizer)
	trainX, err := vec.FitTransform(trainTexts)
	if err != nil {
		return nil, fmt.Errorf("fitting tf-idf: %w", err)
	}
	testX, err := vec.Transform(testTexts)
	if err != nil {
		return nil, fmt.Errorf("transforming test set: %w", err)
	}
	log.WithFields(logrus.Fields{"stage": "tfidf", "features": len(vec.FeatureNames())}).Info("tf-idf extraction done")
	logExtractionSamples(log, vec, trainX, trainTexts, 2)

	if cfg.UseSMOTE {
		log.WithFields(logrus.Fields{"stage": "smote", "distribution": DistributionOf(trainY).String()}).Info("class distribution before SMOTE")
	} else {
		log.WithField("stage", "smote").Info("SMOTE disabled")
	}
	rebalanced, err := Rebalance(trainX, trainY, cfg.UseSMOTE, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("rebalancing: %w", err)
	}
	if cfg.UseSMOTE {
		log.WithFields(logrus.Fields{
			"stage":        "smote",
			"k":            rebalanced.NeighborCount,
			"synthetic":    rebalanced.Synthetic,
			"distribution": rebalanced.After.String(),
		}).Info("class distribution after SMOTE")
	}

	return &FeatureBundle{
		Vectorizer:         vec,
		TrainX:             rebalanced.X,
		TrainY:             rebalanced.Y,
		TestX:              testX,
		TestY:              testY,
		TestTexts:          testTexts,
		TrainCountBefore:   len(train),
		DistributionBefore: rebalanced.Before,
		DistributionAfter:  rebalanced.After,
		NeighborCount:      rebalanced.NeighborCount,
		SyntheticAdded:     rebalanced.Synthetic,
	}, nil
}

func samplesToColumns(samples []Sample) ([]string, []Label) {
	texts := make([]string, len(samples))
	labels := make([]Label, len(samples))
	for i, s := range samples {
		texts[i] = s.Text
		labels[i] = s.Label
	}
	return texts, labels
}

func logExtractionSamples(log logrus.FieldLogger, vec *TfidfVectorizer, X *Matrix, texts []string, n int) {
	for i := 0; i < n && i < X.Rows(); i++ {
		entry := log.WithFields(logrus.Fields{"stage": "tfidf", "sample": i + 1})
		entry.Infof("text: %s", texts[i])
		for _, fw := range vec.TopFeatures(X.Row(i), 5) {
			entry.Infof("  %q: %.4f", fw.Term, fw.Weight)
		}
	}
}
