package sentimen

import (
	"fmt"
	"strings"
	"sync"

	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"
)

// Labeler assigns a sentiment label to raw text by summing the weights of
// the lexicon phrases it contains. It is read-only and safe for concurrent
// use.
type Labeler struct {
	lexicon *Lexicon

	segmenterOnce sync.Once
	segmenter     *sentences.DefaultSentenceTokenizer
	segmenterErr  error
}

// NewLabeler creates a Labeler over lexicon.
func NewLabeler(lexicon *Lexicon) *Labeler {
	return &Labeler{lexicon: lexicon}
}

// NewBundledLabeler creates a Labeler over the bundled positive and negative
// lexicons.
func NewBundledLabeler() (*Labeler, error) {
	lex, err := LoadBundledLexicon(nil)
	if err != nil {
		return nil, err
	}
	return NewLabeler(lex), nil
}

// A PhraseMatch records how often a lexicon phrase occurred.
type PhraseMatch struct {
	Phrase string  `json:"phrase" yaml:"phrase"`
	Count  int     `json:"count" yaml:"count"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// LexiconResult is the outcome of labeling one text.
type LexiconResult struct {
	Label   Label         `json:"label" yaml:"label"`
	Score   float64       `json:"score" yaml:"score"`
	Matches []PhraseMatch `json:"matches,omitempty" yaml:"matches,omitempty"`
}

// Label scores text. Phrases are tried longest first; each phrase counts
// its non-overlapping occurrences in the lower-cased text, independently of
// the other phrases, so "tidak hebat" also counts towards "hebat".
func (lb *Labeler) Label(text string) LexiconResult {
	lowered := strings.ToLower(text)
	var res LexiconResult
	for _, phrase := range lb.lexicon.phrases {
		count := strings.Count(lowered, phrase)
		if count == 0 {
			continue
		}
		weight := lb.lexicon.weights[phrase]
		res.Score += weight * float64(count)
		res.Matches = append(res.Matches, PhraseMatch{Phrase: phrase, Count: count, Weight: weight})
	}
	res.Label = labelForScore(res.Score)
	return res
}

func labelForScore(score float64) Label {
	switch {
	case score > 0:
		return Positive
	case score < 0:
		return Negative
	}
	return Neutral
}

// LabelAll labels every text in order.
func (lb *Labeler) LabelAll(texts []string) []LexiconResult {
	out := make([]LexiconResult, len(texts))
	for i, text := range texts {
		out[i] = lb.Label(text)
	}
	return out
}

// SentenceResult is the label of one sentence of a longer text.
type SentenceResult struct {
	Sentence string `json:"sentence" yaml:"sentence"`
	LexiconResult
}

// LabelSentences splits text into sentences and labels each one. The label
// of the whole text is still Label(text).
func (lb *Labeler) LabelSentences(text string) ([]SentenceResult, error) {
	lb.segmenterOnce.Do(func() {
		lb.segmenter, lb.segmenterErr = english.NewSentenceTokenizer(nil)
	})
	if lb.segmenterErr != nil {
		return nil, fmt.Errorf("%w: sentence tokenizer: %w", ErrResourceLoad, lb.segmenterErr)
	}

	var out []SentenceResult
	for _, s := range lb.segmenter.Tokenize(text) {
		sentence := strings.TrimSpace(s.Text)
		if sentence == "" {
			continue
		}
		out = append(out, SentenceResult{Sentence: sentence, LexiconResult: lb.Label(sentence)})
	}
	return out, nil
}

// Lexicon returns the lexicon the labeler scores with.
func (lb *Labeler) Lexicon() *Lexicon {
	return lb.lexicon
}
