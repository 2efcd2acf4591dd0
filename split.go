package sentimen

import (
	"fmt"
	"math"
	"math/rand"
)

// DefaultSeed seeds every random choice in the pipeline.
const DefaultSeed = 42

// Splitter performs a stratified train/test split.
type Splitter struct {
	Seed int64
}

// NewSplitter returns a Splitter seeded with DefaultSeed.
func NewSplitter() *Splitter {
	return &Splitter{Seed: DefaultSeed}
}

// SplitResult holds both partitions of a split.
type SplitResult struct {
	Train       []Sample
	Test        []Sample
	Assignments []SplitAssignment // One per input sample, in input order
}

// Split partitions samples so that each class keeps its proportion in both
// partitions. For a class of n samples, ceil(n*trainRatio) go to training
// and the rest to testing; a class that would leave either side empty fails
// with ErrInsufficientData. Both partitions keep input order.
func (s *Splitter) Split(samples []Sample, trainRatio float64) (*SplitResult, error) {
	if !(trainRatio > 0 && trainRatio < 1) {
		return nil, fmt.Errorf("%w: train ratio %v must be in (0, 1)", ErrValidation, trainRatio)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples to split", ErrInsufficientData)
	}

	byClass := make(map[Label][]int)
	for i, sample := range samples {
		if sample.Label == Unlabeled {
			return nil, fmt.Errorf("%w: sample %d has no label", ErrValidation, sample.ID)
		}
		byClass[sample.Label] = append(byClass[sample.Label], i)
	}
	classes := make([]Label, 0, len(byClass))
	for l := range byClass {
		classes = append(classes, l)
	}
	sortLabels(classes)

	rng := rand.New(rand.NewSource(s.Seed))
	inTrain := make([]bool, len(samples))
	for _, class := range classes {
		idx := byClass[class]
		n := len(idx)
		nTrain := int(math.Ceil(float64(n)*trainRatio - 1e-9))
		nTest := n - nTrain
		if nTrain == 0 || nTest == 0 {
			return nil, fmt.Errorf("%w: class %q has %d samples, too few to split at ratio %v",
				ErrInsufficientData, class, n, trainRatio)
		}
		shuffled := make([]int, n)
		copy(shuffled, idx)
		rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		for _, i := range shuffled[:nTrain] {
			inTrain[i] = true
		}
	}

	res := &SplitResult{Assignments: make([]SplitAssignment, len(samples))}
	for i, sample := range samples {
		part := Testing
		if inTrain[i] {
			part = Training
			res.Train = append(res.Train, sample)
		} else {
			res.Test = append(res.Test, sample)
		}
		res.Assignments[i] = SplitAssignment{RecordID: sample.ID, Partition: part}
	}
	return res, nil
}

// Split partitions samples with a Splitter seeded with DefaultSeed.
func Split(samples []Sample, trainRatio float64) (*SplitResult, error) {
	return NewSplitter().Split(samples, trainRatio)
}

// Distributions counts the labels of each partition.
func (r *SplitResult) Distributions() (train, test Distribution) {
	train, test = make(Distribution), make(Distribution)
	for _, s := range r.Train {
		train[s.Label]++
	}
	for _, s := range r.Test {
		test[s.Label]++
	}
	return train, test
}
