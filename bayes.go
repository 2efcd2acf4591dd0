package sentimen

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// DefaultAlpha is the Laplace smoothing parameter.
const DefaultAlpha = 1.0

// NaiveBayes is a multinomial Naive Bayes classifier over non-negative
// feature weights. It is fit exactly once and is read-only afterwards.
type NaiveBayes struct {
	alpha float64

	classes        []Label   // Sorted
	classCounts    []float64 // Training documents per class
	logPriors      []float64
	featureCounts  *mat.Dense // Classes × features, smoothed
	featureLogProb *mat.Dense // Classes × features
	fitted         bool
}

// NewNaiveBayes creates an unfitted classifier.
func NewNaiveBayes(alpha float64) (*NaiveBayes, error) {
	if !(alpha > 0) || math.IsInf(alpha, 0) {
		return nil, fmt.Errorf("%w: alpha %v must be positive", ErrValidation, alpha)
	}
	return &NaiveBayes{alpha: alpha}, nil
}

// Fit estimates class priors and per-class feature likelihoods from X and y.
func (nb *NaiveBayes) Fit(X *Matrix, y []Label) error {
	if nb.fitted {
		return fmt.Errorf("%w: model is already fitted", ErrModelState)
	}
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", ErrValidation, rows, len(y))
	}
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: cannot fit on a %d×%d matrix", ErrInsufficientData, rows, cols)
	}

	dist := DistributionOf(y)
	classes := dist.Labels()
	classIndex := make(map[Label]int, len(classes))
	for c, l := range classes {
		classIndex[l] = c
	}

	counts := mat.NewDense(len(classes), cols, nil)
	for i := 0; i < rows; i++ {
		c := classIndex[y[i]]
		row := X.Row(i)
		for k, j := range row.Indices {
			counts.Set(c, j, counts.At(c, j)+row.Values[k])
		}
	}

	nb.classes = classes
	nb.classCounts = make([]float64, len(classes))
	nb.logPriors = make([]float64, len(classes))
	for c, l := range classes {
		nb.classCounts[c] = float64(dist[l])
		nb.logPriors[c] = math.Log(nb.classCounts[c] / float64(rows))
	}

	counts.Apply(func(_, _ int, v float64) float64 { return v + nb.alpha }, counts)
	logProb := mat.NewDense(len(classes), cols, nil)
	for c := range classes {
		total := mat.Sum(counts.RowView(c))
		for j := 0; j < cols; j++ {
			logProb.Set(c, j, math.Log(counts.At(c, j)/total))
		}
	}
	nb.featureCounts = counts
	nb.featureLogProb = logProb
	nb.fitted = true
	return nil
}

// PredictLogProba returns the unnormalized log posterior of every class
// for every row of X, as a rows × classes matrix.
func (nb *NaiveBayes) PredictLogProba(X *Matrix) (*mat.Dense, error) {
	if !nb.fitted {
		return nil, fmt.Errorf("%w: model used before fit", ErrModelState)
	}
	rows, cols := X.Dims()
	if _, features := nb.featureLogProb.Dims(); cols != features {
		return nil, fmt.Errorf("%w: matrix has %d columns, model has %d features", ErrValidation, cols, features)
	}
	if rows == 0 {
		return &mat.Dense{}, nil
	}

	out := mat.NewDense(rows, len(nb.classes), nil)
	for i := 0; i < rows; i++ {
		row := X.Row(i)
		for c := range nb.classes {
			sum := 0.0
			for k, j := range row.Indices {
				sum += row.Values[k] * nb.featureLogProb.At(c, j)
			}
			out.Set(i, c, sum+nb.logPriors[c])
		}
	}
	return out, nil
}

// Predict returns the most probable class for every row of X. Ties go to
// the class that sorts first.
func (nb *NaiveBayes) Predict(X *Matrix) ([]Label, error) {
	scores, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}
	rows := X.Rows()
	out := make([]Label, rows)
	for i := 0; i < rows; i++ {
		best := 0
		for c := 1; c < len(nb.classes); c++ {
			if scores.At(i, c) > scores.At(i, best) {
				best = c
			}
		}
		out[i] = nb.classes[best]
	}
	return out, nil
}

// Fitted reports whether Fit has succeeded.
func (nb *NaiveBayes) Fitted() bool { return nb.fitted }

// Alpha returns the smoothing parameter.
func (nb *NaiveBayes) Alpha() float64 { return nb.alpha }

// Classes returns the class labels in model order.
func (nb *NaiveBayes) Classes() []Label {
	return append([]Label(nil), nb.classes...)
}

// ClassCounts returns the number of training documents of each class.
func (nb *NaiveBayes) ClassCounts() []float64 {
	return append([]float64(nil), nb.classCounts...)
}

// LogPriors returns log P(c) for each class.
func (nb *NaiveBayes) LogPriors() []float64 {
	return append([]float64(nil), nb.logPriors...)
}

// FeatureLogProb returns log P(feature|class) as a classes × features
// matrix. The result is a copy.
func (nb *NaiveBayes) FeatureLogProb() *mat.Dense {
	if nb.featureLogProb == nil {
		return nil
	}
	return mat.DenseCopyOf(nb.featureLogProb)
}

// FeatureCounts returns the smoothed per-class feature sums. The result is
// a copy.
func (nb *NaiveBayes) FeatureCounts() *mat.Dense {
	if nb.featureCounts == nil {
		return nil
	}
	return mat.DenseCopyOf(nb.featureCounts)
}

// TopFeatures returns the indices of the n features with the highest
// likelihood for class c, highest first; equal values go to the higher
// index.
func (nb *NaiveBayes) TopFeatures(c, n int) []int {
	_, cols := nb.featureLogProb.Dims()
	idx := make([]int, cols)
	for j := range idx {
		idx[j] = j
	}
	sort.Slice(idx, func(a, b int) bool {
		va, vb := nb.featureLogProb.At(c, idx[a]), nb.featureLogProb.At(c, idx[b])
		if va != vb {
			return va > vb
		}
		return idx[a] > idx[b]
	})
	if n < len(idx) {
		idx = idx[:n]
	}
	return idx
}

// Train fits a classifier on the training half of a feature bundle.
func Train(bundle *FeatureBundle, alpha float64) (*NaiveBayes, error) {
	nb, err := NewNaiveBayes(alpha)
	if err != nil {
		return nil, err
	}
	if err := nb.Fit(bundle.TrainX, bundle.TrainY); err != nil {
		return nil, err
	}
	return nb, nil
}

// naiveBayesState is the gob form of a fitted classifier.
type naiveBayesState struct {
	Alpha          float64
	Classes        []Label
	ClassCounts    []float64
	LogPriors      []float64
	FeatureCounts  []byte
	FeatureLogProb []byte
}

// MarshalBinary encodes a fitted classifier.
func (nb *NaiveBayes) MarshalBinary() ([]byte, error) {
	if !nb.fitted {
		return nil, fmt.Errorf("%w: model is not fitted", ErrModelState)
	}
	counts, err := nb.featureCounts.MarshalBinary()
	if err != nil {
		return nil, err
	}
	logProb, err := nb.featureLogProb.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(naiveBayesState{
		Alpha:          nb.alpha,
		Classes:        nb.classes,
		ClassCounts:    nb.classCounts,
		LogPriors:      nb.logPriors,
		FeatureCounts:  counts,
		FeatureLogProb: logProb,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a classifier written by MarshalBinary.
func (nb *NaiveBayes) UnmarshalBinary(data []byte) error {
	var state naiveBayesState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("%w: decoding naive bayes: %w", ErrResourceLoad, err)
	}
	var counts, logProb mat.Dense
	if err := counts.UnmarshalBinary(state.FeatureCounts); err != nil {
		return fmt.Errorf("%w: decoding feature counts: %w", ErrResourceLoad, err)
	}
	if err := logProb.UnmarshalBinary(state.FeatureLogProb); err != nil {
		return fmt.Errorf("%w: decoding feature likelihoods: %w", ErrResourceLoad, err)
	}
	if r, _ := logProb.Dims(); r != len(state.Classes) || len(state.LogPriors) != len(state.Classes) {
		return fmt.Errorf("%w: naive bayes state has inconsistent class count", ErrResourceLoad)
	}
	*nb = NaiveBayes{
		alpha:          state.Alpha,
		classes:        state.Classes,
		classCounts:    state.ClassCounts,
		logPriors:      state.LogPriors,
		featureCounts:  &counts,
		featureLogProb: &logProb,
		fitted:         true,
	}
	return nil
}
