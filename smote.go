package sentimen

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// NeighborCount returns the number of neighbors SMOTE may use for dist:
// one less than the smallest class, and at least one.
func NeighborCount(dist Distribution) int {
	k := dist.Min() - 1
	if k < 1 {
		k = 1
	}
	return k
}

// SMOTE oversamples minority classes by interpolating between a sample and
// one of its K nearest neighbors of the same class.
type SMOTE struct {
	K    int
	Seed int64
}

// RebalanceResult describes a (possibly skipped) rebalancing.
type RebalanceResult struct {
	X             *Matrix
	Y             []Label
	Before        Distribution
	After         Distribution
	NeighborCount int
	Synthetic     int // Rows added
}

// Resample brings every class up to the size of the largest one. Synthetic
// rows are appended after the originals, minority classes in sorted label
// order.
func (s *SMOTE) Resample(X *Matrix, y []Label) (*Matrix, []Label, error) {
	rows, cols := X.Dims()
	if rows != len(y) {
		return nil, nil, fmt.Errorf("%w: %d rows but %d labels", ErrValidation, rows, len(y))
	}
	if rows == 0 {
		return nil, nil, fmt.Errorf("%w: nothing to resample", ErrInsufficientData)
	}
	if s.K < 1 {
		return nil, nil, fmt.Errorf("%w: neighbor count %d must be positive", ErrValidation, s.K)
	}

	byClass := make(map[Label][]int)
	for i, l := range y {
		byClass[l] = append(byClass[l], i)
	}
	dist := DistributionOf(y)
	majority := dist.Max()

	outX := X.Clone()
	outY := append([]Label(nil), y...)
	rng := rand.New(rand.NewSource(s.Seed))

	for _, class := range dist.Labels() {
		members := byClass[class]
		need := majority - len(members)
		if need == 0 {
			continue
		}
		if len(members) <= s.K {
			return nil, nil, fmt.Errorf("%w: class %q has %d samples, SMOTE needs more than %d",
				ErrInsufficientData, class, len(members), s.K)
		}

		dense := make([][]float64, len(members))
		for i, r := range members {
			dense[i] = X.Row(r).Dense(cols)
		}
		neighbors := nearestNeighbors(dense, s.K)

		for n := 0; n < need; n++ {
			i := rng.Intn(len(members))
			nn := dense[neighbors[i][rng.Intn(s.K)]]
			u := rng.Float64()

			synthetic := make([]float64, cols)
			floats.SubTo(synthetic, nn, dense[i])
			floats.Scale(u, synthetic)
			floats.Add(synthetic, dense[i])
			if err := outX.AppendRow(sparseFromDense(synthetic)); err != nil {
				return nil, nil, err
			}
			outY = append(outY, class)
		}
	}
	return outX, outY, nil
}

// nearestNeighbors returns, for every row, the indices of its k nearest
// other rows by Euclidean distance. Equal distances go to the lower index.
func nearestNeighbors(rows [][]float64, k int) [][]int {
	out := make([][]int, len(rows))
	for i := range rows {
		type candidate struct {
			idx  int
			dist float64
		}
		cands := make([]candidate, 0, len(rows)-1)
		for j := range rows {
			if j == i {
				continue
			}
			cands = append(cands, candidate{idx: j, dist: floats.Distance(rows[i], rows[j], 2)})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].idx < cands[b].idx
		})
		if len(cands) > k {
			cands = cands[:k]
		}
		out[i] = make([]int, len(cands))
		for n, c := range cands {
			out[i][n] = c.idx
		}
	}
	return out
}

// Rebalance applies SMOTE to a training matrix when enabled, using
// NeighborCount neighbors. When disabled X and y are returned unchanged.
// Distributions before and after are always reported.
func Rebalance(X *Matrix, y []Label, enabled bool, seed int64) (*RebalanceResult, error) {
	before := DistributionOf(y)
	res := &RebalanceResult{
		X:             X,
		Y:             y,
		Before:        before,
		After:         before,
		NeighborCount: NeighborCount(before),
	}
	if !enabled {
		return res, nil
	}

	smote := &SMOTE{K: res.NeighborCount, Seed: seed}
	outX, outY, err := smote.Resample(X, y)
	if err != nil {
		return nil, err
	}
	res.X, res.Y = outX, outY
	res.After = DistributionOf(outY)
	res.Synthetic = len(outY) - len(y)
	return res, nil
}
