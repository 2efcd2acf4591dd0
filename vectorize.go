package sentimen

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// A Vectorizer turns documents into feature rows.
type Vectorizer interface {
	FitTransform(docs []string) (*Matrix, error)
	Transform(docs []string) (*Matrix, error)
	FeatureNames() []string
}

// Row normalizations supported by the TF-IDF vectorizer.
const (
	NormL2   = "l2"
	NormL1   = "l1"
	NormNone = "none"
)

// VectorizerConfig controls the TF-IDF vocabulary and weighting.
type VectorizerConfig struct {
	MaxTerms   int    // Vocabulary cap, by document frequency; <= 0 means no cap
	NgramRange [2]int // Inclusive range of n-gram sizes
	Norm       string // NormL2, NormL1 or NormNone
}

// DefaultVectorizerConfig returns unigrams and bigrams, 5000 terms and L2
// row normalization.
func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{
		MaxTerms:   5000,
		NgramRange: [2]int{1, 2},
		Norm:       NormL2,
	}
}

// A VectorSpace is the fitted state of a TF-IDF vectorizer. Exported fields
// are what gets persisted with a model.
type VectorSpace struct {
	Vocabulary map[string]int
	Terms      []string  // Terms[i] has index i; sorted
	IDF        []float64 // Indexed like Terms
	MaxTerms   int
	NgramRange [2]int
	Norm       string
	Documents  int // Number of documents the space was fit on
}

// TfidfVectorizer weights terms by raw count times smoothed inverse
// document frequency.
type TfidfVectorizer struct {
	config    VectorizerConfig
	tokenizer Tokenizer
	space     *VectorSpace
}

// NewTfidfVectorizer creates an unfitted vectorizer.
func NewTfidfVectorizer(config VectorizerConfig) *TfidfVectorizer {
	if config.NgramRange[0] < 1 {
		config.NgramRange[0] = 1
	}
	if config.NgramRange[1] < config.NgramRange[0] {
		config.NgramRange[1] = config.NgramRange[0]
	}
	if config.Norm == "" {
		config.Norm = NormL2
	}
	return &TfidfVectorizer{config: config, tokenizer: NewRegexpTokenizer()}
}

// NewTfidfVectorizerFromSpace restores a fitted vectorizer.
func NewTfidfVectorizerFromSpace(space *VectorSpace) *TfidfVectorizer {
	return &TfidfVectorizer{
		config: VectorizerConfig{
			MaxTerms:   space.MaxTerms,
			NgramRange: space.NgramRange,
			Norm:       space.Norm,
		},
		tokenizer: NewRegexpTokenizer(),
		space:     space,
	}
}

// analyze returns the terms of doc, n-grams included.
func (v *TfidfVectorizer) analyze(doc string) []string {
	return ngrams(v.tokenizer.Tokenize(doc), v.config.NgramRange[0], v.config.NgramRange[1])
}

// Fit learns the vocabulary and IDF weights from docs.
func (v *TfidfVectorizer) Fit(docs []string) error {
	if v.space != nil {
		return fmt.Errorf("%w: vectorizer is already fitted", ErrModelState)
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no documents to fit", ErrInsufficientData)
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range v.analyze(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return fmt.Errorf("%w: documents contain no terms", ErrInsufficientData)
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if v.config.MaxTerms > 0 && len(terms) > v.config.MaxTerms {
		sort.Slice(terms, func(i, j int) bool {
			if df[terms[i]] != df[terms[j]] {
				return df[terms[i]] > df[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.config.MaxTerms]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	space := &VectorSpace{
		Vocabulary: make(map[string]int, len(terms)),
		Terms:      terms,
		IDF:        make([]float64, len(terms)),
		MaxTerms:   v.config.MaxTerms,
		NgramRange: v.config.NgramRange,
		Norm:       v.config.Norm,
		Documents:  len(docs),
	}
	for i, term := range terms {
		space.Vocabulary[term] = i
		space.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	v.space = space
	return nil
}

// FitTransform fits the vectorizer on docs and returns their rows.
func (v *TfidfVectorizer) FitTransform(docs []string) (*Matrix, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs)
}

// Transform maps docs into the fitted space. Terms outside the vocabulary
// are dropped; a document with no known term yields an empty row.
func (v *TfidfVectorizer) Transform(docs []string) (*Matrix, error) {
	if v.space == nil {
		return nil, fmt.Errorf("%w: vectorizer used before fit", ErrModelState)
	}
	m := NewMatrix(len(v.space.Terms))
	for _, doc := range docs {
		if err := m.AppendRow(v.vectorize(doc)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (v *TfidfVectorizer) vectorize(doc string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range v.analyze(doc) {
		if idx, ok := v.space.Vocabulary[term]; ok {
			counts[idx]++
		}
	}
	row := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		row.Indices = append(row.Indices, idx)
	}
	sort.Ints(row.Indices)
	for _, idx := range row.Indices {
		row.Values = append(row.Values, counts[idx]*v.space.IDF[idx])
	}
	normalizeRow(row.Values, v.space.Norm)
	return row
}

func normalizeRow(values []float64, norm string) {
	if len(values) == 0 {
		return
	}
	var l float64
	switch norm {
	case NormL2:
		l = floats.Norm(values, 2)
	case NormL1:
		l = floats.Norm(values, 1)
	default:
		return
	}
	if l > 0 {
		floats.Scale(1/l, values)
	}
}

// FeatureNames returns the vocabulary in index order, or nil before fit.
func (v *TfidfVectorizer) FeatureNames() []string {
	if v.space == nil {
		return nil
	}
	return append([]string(nil), v.space.Terms...)
}

// Space returns the fitted vector space, or nil before fit.
func (v *TfidfVectorizer) Space() *VectorSpace {
	return v.space
}

// MarshalBinary encodes the fitted space with gob.
func (v *TfidfVectorizer) MarshalBinary() ([]byte, error) {
	if v.space == nil {
		return nil, fmt.Errorf("%w: vectorizer is not fitted", ErrModelState)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v.space); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores a space written by MarshalBinary.
func (v *TfidfVectorizer) UnmarshalBinary(data []byte) error {
	var space VectorSpace
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&space); err != nil {
		return fmt.Errorf("%w: decoding vector space: %w", ErrResourceLoad, err)
	}
	*v = *NewTfidfVectorizerFromSpace(&space)
	return nil
}

// A FeatureWeight pairs a vocabulary term with its weight in one row.
type FeatureWeight struct {
	Index  int
	Term   string
	Weight float64
}

// TopFeatures returns the n heaviest terms of row, heaviest first; ties go
// to the lower index.
func (v *TfidfVectorizer) TopFeatures(row SparseVector, n int) []FeatureWeight {
	out := make([]FeatureWeight, 0, row.NNZ())
	for k, idx := range row.Indices {
		term := ""
		if v.space != nil {
			term = v.space.Terms[idx]
		}
		out = append(out, FeatureWeight{Index: idx, Term: term, Weight: row.Values[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
