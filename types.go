package sentimen

import (
	"fmt"
	"sort"
	"strings"
)

// Label represents a sentiment class assigned by an expert or a model.
type Label string

const (
	Positive  Label = "positif"
	Negative  Label = "negatif"
	Neutral   Label = "netral"
	Unlabeled Label = "" // Not yet labeled by an expert
)

// ParseLabel maps a raw label cell to a Label. Blank input is Unlabeled;
// English names are accepted as aliases.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Unlabeled, nil
	case "positif", "positive":
		return Positive, nil
	case "negatif", "negative":
		return Negative, nil
	case "netral", "neutral":
		return Neutral, nil
	}
	return Unlabeled, fmt.Errorf("%w: unknown label %q", ErrValidation, s)
}

// A Record represents one ingested text and its expert label.
type Record struct {
	ID    int    // Position in the source corpus
	Text  string // Raw text as ingested
	Label Label  // Expert label, may be Unlabeled
}

// A NormalizedRecord holds the output of every normalization stage for a
// Record.
type NormalizedRecord struct {
	Record

	CaseFolded string
	Cleansed   string

	Tokens           []string // After tokenizing
	NormalizedTokens []string // After slang normalization
	FilteredTokens   []string // After stopword removal
	StemmedTokens    []string // After stemming

	Tokenized  string
	Normalized string
	Filtered   string
	Stemmed    string // Input to the splitter and feature extractor
}

// A Sample is a labeled, normalized text ready to be split and vectorized.
type Sample struct {
	ID    int
	Text  string
	Label Label
}

// Partition names the subset a sample was assigned to.
type Partition string

const (
	Training Partition = "training"
	Testing  Partition = "testing"
)

// SplitAssignment records which partition a record landed in.
type SplitAssignment struct {
	RecordID  int
	Partition Partition
}

// Prediction pairs a test text with its actual and predicted labels.
type Prediction struct {
	Text      string `json:"text" yaml:"text"`
	Actual    Label  `json:"actual" yaml:"actual"`
	Predicted Label  `json:"predicted" yaml:"predicted"`
}

// Distribution counts samples per label.
type Distribution map[Label]int

// DistributionOf counts the labels in y.
func DistributionOf(y []Label) Distribution {
	d := make(Distribution)
	for _, l := range y {
		d[l]++
	}
	return d
}

// Labels returns the labels of d in sorted order.
func (d Distribution) Labels() []Label {
	labels := make([]Label, 0, len(d))
	for l := range d {
		labels = append(labels, l)
	}
	sortLabels(labels)
	return labels
}

// Total returns the number of samples counted in d.
func (d Distribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Min returns the smallest class count, or 0 if d is empty.
func (d Distribution) Min() int {
	first := true
	min := 0
	for _, n := range d {
		if first || n < min {
			min = n
			first = false
		}
	}
	return min
}

// Max returns the largest class count, or 0 if d is empty.
func (d Distribution) Max() int {
	max := 0
	for _, n := range d {
		if n > max {
			max = n
		}
	}
	return max
}

// String formats d in sorted label order.
func (d Distribution) String() string {
	parts := make([]string, 0, len(d))
	for _, l := range d.Labels() {
		parts = append(parts, fmt.Sprintf("%s:%d", l, d[l]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func sortLabels(labels []Label) {
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
}

func joinTokens(tokens []string) string {
	return strings.Join(tokens, " ")
}
