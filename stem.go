package sentimen

import (
	"fmt"
	"sync"

	sastrawi "github.com/RadhiFadlillah/go-sastrawi"
	"github.com/kljensen/snowball"
)

// A Stemmer reduces a token to its root form.
type Stemmer interface {
	Stem(token string) string
}

// StemmerFunc adapts an ordinary function to the Stemmer interface.
type StemmerFunc func(string) string

// Stem calls f(token).
func (f StemmerFunc) Stem(token string) string {
	return f(token)
}

// IdentityStemmer returns every token unchanged.
var IdentityStemmer Stemmer = StemmerFunc(func(token string) string { return token })

// sastrawiStemmer is the interface satisfied by the go-sastrawi stemmer.
type sastrawiStemmer interface {
	Stem(string) string
}

// SastrawiStemmer stems Indonesian words with the Sastrawi algorithm and
// its bundled root-word dictionary.
type SastrawiStemmer struct {
	stemmer sastrawiStemmer
}

// NewSastrawiStemmer builds a Sastrawi stemmer with the default dictionary.
func NewSastrawiStemmer() *SastrawiStemmer {
	return &SastrawiStemmer{stemmer: sastrawi.NewStemmer(sastrawi.DefaultDictionary())}
}

// Stem returns the root of token. Empty input stays empty.
func (s *SastrawiStemmer) Stem(token string) string {
	if token == "" {
		return ""
	}
	return s.stemmer.Stem(token)
}

// SnowballStemmer stems with one of the Snowball algorithms.
type SnowballStemmer struct {
	language string
}

// NewSnowballStemmer returns a Snowball stemmer for language, which must be
// one of the languages supported by the snowball package.
func NewSnowballStemmer(language string) (*SnowballStemmer, error) {
	if _, err := snowball.Stem("test", language, false); err != nil {
		return nil, fmt.Errorf("%w: snowball: %w", ErrValidation, err)
	}
	return &SnowballStemmer{language: language}, nil
}

// Stem returns the stem of token; on failure the token is returned as-is.
func (s *SnowballStemmer) Stem(token string) string {
	stemmed, err := snowball.Stem(token, s.language, true)
	if err != nil {
		return token
	}
	return stemmed
}

// CachedStemmer memoizes another Stemmer. It is safe for concurrent use.
type CachedStemmer struct {
	next  Stemmer
	cache sync.Map
}

// NewCachedStemmer wraps next with a cache.
func NewCachedStemmer(next Stemmer) *CachedStemmer {
	return &CachedStemmer{next: next}
}

func (c *CachedStemmer) Stem(token string) string {
	if v, ok := c.cache.Load(token); ok {
		return v.(string)
	}
	stemmed := c.next.Stem(token)
	c.cache.Store(token, stemmed)
	return stemmed
}

// StemmerByName resolves a stemmer name as used in configuration:
// "sastrawi", "none", or a Snowball language such as "english".
func StemmerByName(name string) (Stemmer, error) {
	switch name {
	case "", "sastrawi":
		return NewCachedStemmer(NewSastrawiStemmer()), nil
	case "none", "identity":
		return IdentityStemmer, nil
	}
	sb, err := NewSnowballStemmer(name)
	if err != nil {
		return nil, err
	}
	return NewCachedStemmer(sb), nil
}
