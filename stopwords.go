package sentimen

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/bbalet/stopwords"
)

// StopwordSet decides whether a token is a stopword. Membership is exact;
// no stemming-aware matching is done.
type StopwordSet interface {
	Contains(token string) bool
}

// WordSet is a StopwordSet backed by an explicit word list.
type WordSet map[string]struct{}

// NewWordSet builds a WordSet from words.
func NewWordSet(words ...string) WordSet {
	set := make(WordSet, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// ReadWordSet reads one word per line. Blank lines and lines starting with
// '#' are ignored.
func ReadWordSet(r io.Reader) (WordSet, error) {
	set := make(WordSet)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading stopwords: %w", ErrResourceLoad, err)
	}
	return set, nil
}

// LoadWordSet reads the named word list from fsys.
func LoadWordSet(fsys fs.FS, name string) (WordSet, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: stopword list %s: %w", ErrResourceLoad, name, err)
	}
	defer f.Close()
	return ReadWordSet(f)
}

// Contains reports whether token is in the set.
func (s WordSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Words returns the members of the set in sorted order.
func (s WordSet) Words() []string {
	words := make([]string, 0, len(s))
	for w := range s {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// LanguageStopwords is a StopwordSet backed by the bbalet/stopwords lists,
// addressed by ISO 639-1 language code.
type LanguageStopwords struct {
	langCode string
}

// NewLanguageStopwords returns the stopword list for langCode.
func NewLanguageStopwords(langCode string) *LanguageStopwords {
	return &LanguageStopwords{langCode: langCode}
}

// Contains reports whether the library filters token out as a stopword.
// The library doesn't export its lists, so membership is tested by
// cleaning the single token.
func (ls *LanguageStopwords) Contains(token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	cleaned := stopwords.CleanString(token, ls.langCode, false)
	return strings.TrimSpace(cleaned) == ""
}

// Language returns the ISO 639-1 code of the list.
func (ls *LanguageStopwords) Language() string {
	return ls.langCode
}

// StopwordsFor adds the library lists of langCodes to base. Blank codes
// are skipped; with no codes base is returned unchanged.
func StopwordsFor(base StopwordSet, langCodes ...string) StopwordSet {
	sets := []StopwordSet{base}
	for _, code := range langCodes {
		if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
			sets = append(sets, NewLanguageStopwords(code))
		}
	}
	if len(sets) == 1 {
		return base
	}
	return UnionStopwords(sets...)
}

// unionStopwords matches a token found in any of its sets.
type unionStopwords []StopwordSet

// UnionStopwords combines several sets into one.
func UnionStopwords(sets ...StopwordSet) StopwordSet {
	return unionStopwords(sets)
}

func (u unionStopwords) Contains(token string) bool {
	for _, s := range u {
		if s != nil && s.Contains(token) {
			return true
		}
	}
	return false
}
