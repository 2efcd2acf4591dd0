package sentimen

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-9

func TestMatrix(t *testing.T) {
	m, err := NewMatrixFromRows(4, []SparseVector{
		{Indices: []int{0, 3}, Values: []float64{1, 2}},
		{},
		{Indices: []int{2}, Values: []float64{5}},
	})
	if err != nil {
		t.Fatalf("NewMatrixFromRows: %v", err)
	}

	if r, c := m.Dims(); r != 3 || c != 4 {
		t.Fatalf("expected 3x4, got %dx%d", r, c)
	}
	if m.At(0, 3) != 2 || m.At(0, 1) != 0 || m.At(2, 2) != 5 {
		t.Error("unexpected element values")
	}
	if got := m.T().At(3, 0); got != 2 {
		t.Errorf("transpose: expected 2, got %v", got)
	}

	dense := m.ToDense()
	if !mat.Equal(dense, m) {
		t.Error("dense copy differs from sparse matrix")
	}

	clone := m.Clone()
	clone.Row(0).Values[0] = 99
	if m.At(0, 0) != 1 {
		t.Error("clone shares storage with the original")
	}

	tests := []struct {
		name string
		row  SparseVector
	}{
		{"out of range", SparseVector{Indices: []int{4}, Values: []float64{1}}},
		{"negative", SparseVector{Indices: []int{-1}, Values: []float64{1}}},
		{"not ascending", SparseVector{Indices: []int{2, 1}, Values: []float64{1, 1}}},
		{"length mismatch", SparseVector{Indices: []int{1}}},
	}
	for _, tt := range tests {
		if err := m.AppendRow(tt.row); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tt.name, err)
		}
	}
}

func TestMatrixAtPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected a panic for an out-of-range index")
		}
	}()
	NewMatrix(2).At(0, 0)
}

func TestTfidfFit(t *testing.T) {
	docs := []string{"bagus sekali", "bagus", "jelek sekali"}
	vec := NewTfidfVectorizer(VectorizerConfig{NgramRange: [2]int{1, 1}, Norm: NormNone})
	X, err := vec.FitTransform(docs)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}

	expectedTerms := "bagus,jelek,sekali"
	if got := strings.Join(vec.FeatureNames(), ","); got != expectedTerms {
		t.Fatalf("expected terms %s, got %s", expectedTerms, got)
	}

	// idf = ln((1+n)/(1+df)) + 1 with n = 3
	idfBagus := math.Log(4.0/3.0) + 1
	idfJelek := math.Log(4.0/2.0) + 1
	space := vec.Space()
	if math.Abs(space.IDF[0]-idfBagus) > tolerance || math.Abs(space.IDF[1]-idfJelek) > tolerance {
		t.Errorf("unexpected idf %v", space.IDF)
	}
	if space.Documents != 3 {
		t.Errorf("expected 3 documents, got %d", space.Documents)
	}
	if got := X.At(1, 0); math.Abs(got-idfBagus) > tolerance {
		t.Errorf("expected unnormalized weight %v, got %v", idfBagus, got)
	}
	if X.At(1, 1) != 0 {
		t.Error("absent term should weigh zero")
	}
}

func TestTfidfNormalization(t *testing.T) {
	docs := []string{"bagus bagus sekali", "jelek"}
	tests := []struct {
		norm     string
		expected float64
		p        float64
	}{
		{NormL2, 1, 2},
		{NormL1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.norm, func(t *testing.T) {
			vec := NewTfidfVectorizer(VectorizerConfig{NgramRange: [2]int{1, 2}, Norm: tt.norm})
			X, err := vec.FitTransform(docs)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < X.Rows(); i++ {
				if got := floats.Norm(X.Row(i).Values, tt.p); math.Abs(got-tt.expected) > tolerance {
					t.Errorf("row %d: expected norm %v, got %v", i, tt.expected, got)
				}
			}
		})
	}
}

func TestTfidfNgramsAndCap(t *testing.T) {
	docs := []string{"tidak bagus", "tidak jelek", "sangat bagus"}
	vec := NewTfidfVectorizer(VectorizerConfig{NgramRange: [2]int{1, 2}})
	if err := vec.Fit(docs); err != nil {
		t.Fatal(err)
	}
	names := vec.FeatureNames()
	if len(names) != 7 {
		t.Errorf("expected 4 unigrams and 3 bigrams, got %v", names)
	}
	if _, ok := vec.Space().Vocabulary["tidak bagus"]; !ok {
		t.Error("expected bigram 'tidak bagus' in vocabulary")
	}

	capped := NewTfidfVectorizer(VectorizerConfig{MaxTerms: 2, NgramRange: [2]int{1, 1}})
	if err := capped.Fit(docs); err != nil {
		t.Fatal(err)
	}
	// bagus and tidak have df 2; the rest have df 1
	if got := strings.Join(capped.FeatureNames(), ","); got != "bagus,tidak" {
		t.Errorf("expected the most frequent terms, got %s", got)
	}
}

func TestTfidfTransformUnknownTerms(t *testing.T) {
	vec := NewTfidfVectorizer(DefaultVectorizerConfig())
	if _, err := vec.FitTransform([]string{"bagus", "jelek"}); err != nil {
		t.Fatal(err)
	}
	X, err := vec.Transform([]string{"kata baru semua", ""})
	if err != nil {
		t.Fatal(err)
	}
	if X.Rows() != 2 || X.Row(0).NNZ() != 0 || X.Row(1).NNZ() != 0 {
		t.Error("unknown terms should yield empty rows")
	}
}

func TestTfidfErrors(t *testing.T) {
	vec := NewTfidfVectorizer(DefaultVectorizerConfig())
	if _, err := vec.Transform([]string{"bagus"}); !errors.Is(err, ErrModelState) {
		t.Errorf("transform before fit: expected ErrModelState, got %v", err)
	}
	if _, err := vec.MarshalBinary(); !errors.Is(err, ErrModelState) {
		t.Errorf("marshal before fit: expected ErrModelState, got %v", err)
	}
	if err := vec.Fit(nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("fit on nothing: expected ErrInsufficientData, got %v", err)
	}
	if err := vec.Fit([]string{"a", "! ?"}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("fit without terms: expected ErrInsufficientData, got %v", err)
	}
	if err := vec.Fit([]string{"bagus"}); err != nil {
		t.Fatal(err)
	}
	if err := vec.Fit([]string{"jelek"}); !errors.Is(err, ErrModelState) {
		t.Errorf("second fit: expected ErrModelState, got %v", err)
	}
}

func TestTfidfBinaryRoundTrip(t *testing.T) {
	docs := []string{"pemerintah hebat", "kebijakan buruk sekali", "hebat sekali"}
	vec := NewTfidfVectorizer(DefaultVectorizerConfig())
	want, err := vec.FitTransform(docs)
	if err != nil {
		t.Fatal(err)
	}
	data, err := vec.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var restored TfidfVectorizer
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	got, err := restored.Transform(docs)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(got, want, tolerance) {
		t.Error("restored vectorizer produces different rows")
	}

	if err := restored.UnmarshalBinary([]byte("bukan gob")); !errors.Is(err, ErrResourceLoad) {
		t.Errorf("expected ErrResourceLoad for garbage, got %v", err)
	}
}

func TestTopFeatures(t *testing.T) {
	vec := NewTfidfVectorizer(VectorizerConfig{NgramRange: [2]int{1, 1}, Norm: NormNone})
	if err := vec.Fit([]string{"a1 b1 c1"}); err != nil {
		t.Fatal(err)
	}
	row := SparseVector{Indices: []int{0, 1, 2}, Values: []float64{0.5, 0.9, 0.5}}
	top := vec.TopFeatures(row, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 features, got %d", len(top))
	}
	if top[0].Term != "b1" || top[1].Term != "a1" {
		t.Errorf("expected b1 then a1, got %v", top)
	}
}
