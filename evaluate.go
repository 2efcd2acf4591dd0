package sentimen

import (
	"fmt"
	"math"

	"github.com/bsm/mlmetrics"
	"github.com/google/uuid"
)

// ClassMetrics holds the per-class scores of an evaluation.
type ClassMetrics struct {
	Label     Label   `json:"label" yaml:"label"`
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// AverageMetrics holds averaged scores across classes.
type AverageMetrics struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Support   int     `json:"support" yaml:"support"`
}

// Kinds of trace entries.
const (
	TraceHeader = "header"
	TraceStep   = "step"
	TraceLog    = "log"
)

// A TraceEntry is one line of the human-readable training explanation.
type TraceEntry struct {
	Type string `json:"type" yaml:"type"`
	Text string `json:"text" yaml:"text"`
}

// EvaluationReport is the outcome of scoring a model on the test set.
type EvaluationReport struct {
	RunID           string         `json:"run_id" yaml:"run_id"`
	Accuracy        float64        `json:"accuracy" yaml:"accuracy"`
	Labels          []Label        `json:"labels" yaml:"labels"`
	ConfusionMatrix [][]int        `json:"confusion_matrix" yaml:"confusion_matrix"` // Rows actual, columns predicted
	Classes         []ClassMetrics `json:"classes" yaml:"classes"`
	MacroAvg        AverageMetrics `json:"macro_avg" yaml:"macro_avg"`
	WeightedAvg     AverageMetrics `json:"weighted_avg" yaml:"weighted_avg"`
	Predictions     []Prediction   `json:"predictions" yaml:"predictions"`
	Trace           []TraceEntry   `json:"trace" yaml:"trace"`
}

// Evaluate predicts the test rows of bundle with nb and scores the result.
func Evaluate(nb *NaiveBayes, bundle *FeatureBundle) (*EvaluationReport, error) {
	if !nb.Fitted() {
		return nil, fmt.Errorf("%w: model used before fit", ErrModelState)
	}
	if bundle.TestX.Rows() != len(bundle.TestY) {
		return nil, fmt.Errorf("%w: %d test rows but %d labels", ErrValidation, bundle.TestX.Rows(), len(bundle.TestY))
	}
	if len(bundle.TestY) == 0 {
		return nil, fmt.Errorf("%w: empty test set", ErrInsufficientData)
	}

	predicted, err := nb.Predict(bundle.TestX)
	if err != nil {
		return nil, err
	}
	report, err := Score(bundle.TestY, predicted)
	if err != nil {
		return nil, err
	}
	report.Predictions = make([]Prediction, len(predicted))
	for i := range predicted {
		text := ""
		if i < len(bundle.TestTexts) {
			text = bundle.TestTexts[i]
		}
		report.Predictions[i] = Prediction{Text: text, Actual: bundle.TestY[i], Predicted: predicted[i]}
	}

	var featureNames []string
	if bundle.Vectorizer != nil {
		featureNames = bundle.Vectorizer.FeatureNames()
	}
	report.Trace = TrainingTrace(nb, featureNames)
	return report, nil
}

// Score compares actual and predicted labels, which must be the same
// length. Labels cover the union of both sides in sorted order; any
// undefined ratio scores zero.
func Score(actual, predicted []Label) (*EvaluationReport, error) {
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("%w: %d actual labels but %d predictions", ErrValidation, len(actual), len(predicted))
	}
	seen := make(map[Label]struct{})
	for _, l := range actual {
		seen[l] = struct{}{}
	}
	for _, l := range predicted {
		seen[l] = struct{}{}
	}
	labels := make([]Label, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sortLabels(labels)
	index := make(map[Label]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	metrics := mlmetrics.NewConfusionMatrix()
	for i := range actual {
		a, p := index[actual[i]], index[predicted[i]]
		cm[a][p]++
		metrics.Observe(a, p)
	}

	report := &EvaluationReport{
		RunID:           uuid.NewString(),
		Labels:          labels,
		ConfusionMatrix: cm,
	}
	if len(actual) > 0 {
		report.Accuracy = finite(metrics.Accuracy())
	}

	total := 0
	for i, l := range labels {
		support, predictedAs := 0, 0
		for j := range labels {
			support += cm[i][j]
			predictedAs += cm[j][i]
		}
		cls := ClassMetrics{
			Label:     l,
			Precision: ratio(cm[i][i], predictedAs),
			Recall:    ratio(cm[i][i], support),
			Support:   support,
		}
		if sum := cls.Precision + cls.Recall; sum > 0 {
			cls.F1 = 2 * cls.Precision * cls.Recall / sum
		}
		report.Classes = append(report.Classes, cls)
		total += support

		report.MacroAvg.Precision += cls.Precision
		report.MacroAvg.Recall += cls.Recall
		report.MacroAvg.F1 += cls.F1
		report.WeightedAvg.Precision += cls.Precision * float64(support)
		report.WeightedAvg.Recall += cls.Recall * float64(support)
		report.WeightedAvg.F1 += cls.F1 * float64(support)
	}
	if k := float64(len(labels)); k > 0 {
		report.MacroAvg.Precision /= k
		report.MacroAvg.Recall /= k
		report.MacroAvg.F1 /= k
	}
	if total > 0 {
		report.WeightedAvg.Precision /= float64(total)
		report.WeightedAvg.Recall /= float64(total)
		report.WeightedAvg.F1 /= float64(total)
	}
	report.MacroAvg.Support = total
	report.WeightedAvg.Support = total
	return report, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// finite maps NaN and infinities to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// TrainingTrace explains a fitted model: documents per class, priors, and
// the five most likely features of each class.
func TrainingTrace(nb *NaiveBayes, featureNames []string) []TraceEntry {
	classes := nb.Classes()
	counts := nb.ClassCounts()
	priors := nb.LogPriors()

	trace := []TraceEntry{
		{TraceHeader, "Naive Bayes training details"},
		{TraceStep, "Step 1: documents per class"},
	}
	for c, l := range classes {
		trace = append(trace, TraceEntry{TraceLog, fmt.Sprintf("- class '%s': %d documents", l, int(counts[c]))})
	}
	trace = append(trace, TraceEntry{TraceStep, "Step 2: class prior probabilities"})
	for c, l := range classes {
		trace = append(trace, TraceEntry{TraceLog, fmt.Sprintf("- P(%s) = %.4f", l, math.Exp(priors[c]))})
	}
	if len(featureNames) == 0 {
		return trace
	}

	trace = append(trace, TraceEntry{TraceStep, "Step 3: feature likelihoods"})
	logProb := nb.FeatureLogProb()
	for c, l := range classes {
		trace = append(trace, TraceEntry{TraceLog, fmt.Sprintf("  top 5 features for class '%s':", l)})
		for _, j := range nb.TopFeatures(c, 5) {
			if j >= len(featureNames) {
				continue
			}
			trace = append(trace, TraceEntry{TraceLog,
				fmt.Sprintf("    - P('%s'|%s) ≈ %.6f", featureNames[j], l, math.Exp(logProb.At(c, j)))})
		}
	}
	return trace
}
