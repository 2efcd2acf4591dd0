package sentimen

import (
	"regexp"
	"strings"
)

// Tokenizer splits normalized text into tokens.
type Tokenizer interface {
	Tokenize(string) []string
}

// whitespaceTokenizer splits on runs of white space.
type whitespaceTokenizer struct{}

// NewWhitespaceTokenizer returns the tokenizer used by the normalizer:
// blank input yields an empty slice.
func NewWhitespaceTokenizer() Tokenizer {
	return whitespaceTokenizer{}
}

func (whitespaceTokenizer) Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return strings.Fields(text)
}

// regexpTokenizer extracts every match of a pattern.
type regexpTokenizer struct {
	pattern   *regexp.Regexp
	lowercase bool
}

// TokenizerOptFunc configures a regexp tokenizer.
type TokenizerOptFunc func(*regexpTokenizer)

// UsingPattern sets the token pattern.
func UsingPattern(re *regexp.Regexp) TokenizerOptFunc {
	return func(t *regexpTokenizer) {
		t.pattern = re
	}
}

// UsingLowercase enables or disables lower-casing before matching.
func UsingLowercase(lower bool) TokenizerOptFunc {
	return func(t *regexpTokenizer) {
		t.lowercase = lower
	}
}

// termPattern keeps tokens of two or more word characters.
var termPattern = regexp.MustCompile(`\b\w\w+\b`)

// NewRegexpTokenizer returns the tokenizer used by the TF-IDF analyzer.
// By default it lower-cases and keeps tokens of at least two word
// characters.
func NewRegexpTokenizer(opts ...TokenizerOptFunc) Tokenizer {
	tok := &regexpTokenizer{
		pattern:   termPattern,
		lowercase: true,
	}
	for _, applyOpt := range opts {
		applyOpt(tok)
	}
	return tok
}

func (t *regexpTokenizer) Tokenize(text string) []string {
	if t.lowercase {
		text = strings.ToLower(text)
	}
	return t.pattern.FindAllString(text, -1)
}

// ngrams returns the contiguous n-grams of tokens for every n in
// [minN, maxN], shorter grams first, each gram joined by a single space.
func ngrams(tokens []string, minN, maxN int) []string {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	var out []string
	for n := minN; n <= maxN; n++ {
		if n == 1 {
			out = append(out, tokens...)
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
