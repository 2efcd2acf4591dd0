package sentimen

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// Lexicon maps sentiment phrases to their net weight. It is immutable once
// built and safe for concurrent use.
type Lexicon struct {
	weights map[string]float64
	phrases []string // longest first
}

// LexiconFormat describes a weighted lexicon file: one `phrase<delim>weight`
// entry per line, split on the last delimiter.
type LexiconFormat struct {
	Delimiter string
	Comments  []string // Line prefixes that are skipped
}

// DefaultLexiconFormat is the `kata,bobot` format of the bundled lexicons.
var DefaultLexiconFormat = LexiconFormat{
	Delimiter: ",",
	Comments:  []string{"#", "-"},
}

// NewLexicon builds a Lexicon from a phrase→weight map. Keys are lower-cased;
// keys that collide after lower-casing have their weights summed.
func NewLexicon(weights map[string]float64) *Lexicon {
	merged := make(map[string]float64, len(weights))
	for phrase, w := range weights {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		merged[phrase] += w
	}
	return newLexicon(merged)
}

func newLexicon(weights map[string]float64) *Lexicon {
	phrases := make([]string, 0, len(weights))
	for phrase := range weights {
		phrases = append(phrases, phrase)
	}
	sort.Slice(phrases, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(phrases[i]), utf8.RuneCountInString(phrases[j])
		if li != lj {
			return li > lj
		}
		return phrases[i] < phrases[j]
	})
	return &Lexicon{weights: weights, phrases: phrases}
}

// LoadLexicon reads and merges the named lexicon files from fsys. Every file
// is mandatory: a missing file fails with ErrResourceLoad.
func LoadLexicon(fsys fs.FS, format LexiconFormat, log logrus.FieldLogger, names ...string) (*Lexicon, error) {
	if log == nil {
		log = discardLogger()
	}
	weights := make(map[string]float64)
	for _, name := range names {
		f, err := fsys.Open(name)
		if err != nil {
			return nil, fmt.Errorf("%w: lexicon file %s: %w", ErrResourceLoad, name, err)
		}
		err = parseLexicon(f, name, format, weights, log)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{"files": len(names), "phrases": len(weights)}).Info("lexicon loaded")
	return newLexicon(weights), nil
}

// LoadLexiconFiles is LoadLexicon for paths on the local disk.
func LoadLexiconFiles(format LexiconFormat, log logrus.FieldLogger, paths ...string) (*Lexicon, error) {
	if log == nil {
		log = discardLogger()
	}
	weights := make(map[string]float64)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: lexicon file %s: %w", ErrResourceLoad, path, err)
		}
		err = parseLexicon(f, filepath.Base(path), format, weights, log)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return newLexicon(weights), nil
}

// ParseLexicon reads a single lexicon from r.
func ParseLexicon(r io.Reader, format LexiconFormat, log logrus.FieldLogger) (*Lexicon, error) {
	if log == nil {
		log = discardLogger()
	}
	weights := make(map[string]float64)
	if err := parseLexicon(r, "<reader>", format, weights, log); err != nil {
		return nil, err
	}
	return newLexicon(weights), nil
}

// parseLexicon accumulates the entries of r into weights. Malformed lines
// are logged and skipped.
func parseLexicon(r io.Reader, name string, format LexiconFormat, weights map[string]float64, log logrus.FieldLogger) error {
	delim := format.Delimiter
	if delim == "" {
		delim = DefaultLexiconFormat.Delimiter
	}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || hasAnyPrefix(line, format.Comments) {
			continue
		}

		entry := log.WithFields(logrus.Fields{"file": name, "line": lineNum})
		idx := strings.LastIndex(line, delim)
		if idx < 0 {
			entry.Warnf("no delimiter %q in %q", delim, line)
			continue
		}

		phrase := strings.ToLower(strings.TrimSpace(line[:idx]))
		raw := strings.TrimSpace(line[idx+len(delim):])
		weight, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			entry.Warnf("invalid weight %q in %q", raw, line)
			continue
		}
		if phrase == "" {
			entry.Warnf("empty phrase in %q", line)
			continue
		}

		weights[phrase] += weight
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading lexicon %s: %w", ErrResourceLoad, name, err)
	}
	return nil
}

// Weight returns the net weight of phrase.
func (l *Lexicon) Weight(phrase string) (float64, bool) {
	w, ok := l.weights[phrase]
	return w, ok
}

// Phrases returns all phrases, longest first.
func (l *Lexicon) Phrases() []string {
	out := make([]string, len(l.phrases))
	copy(out, l.phrases)
	return out
}

// Len returns the number of distinct phrases.
func (l *Lexicon) Len() int {
	return len(l.phrases)
}

// SlangDictionary maps informal tokens to their formal form.
type SlangDictionary struct {
	mapping map[string]string
}

// NewSlangDictionary wraps an existing slang→formal mapping.
func NewSlangDictionary(mapping map[string]string) *SlangDictionary {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return &SlangDictionary{mapping: m}
}

// LoadSlangDictionary reads a tab-separated `slang<TAB>formal` file from
// fsys. A missing file is not fatal: an empty dictionary (identity
// normalization) is returned together with an error wrapping
// ErrResourceLoad so the caller can surface the warning.
func LoadSlangDictionary(fsys fs.FS, name string, log logrus.FieldLogger) (*SlangDictionary, error) {
	if log == nil {
		log = discardLogger()
	}
	f, err := fsys.Open(name)
	if err != nil {
		log.WithField("file", name).Warn("slang dictionary not found, normalization is skipped")
		return NewSlangDictionary(nil), fmt.Errorf("%w: slang dictionary %s: %w", ErrResourceLoad, name, err)
	}
	defer f.Close()

	dict, err := ParseSlangDictionary(f, name, log)
	if err != nil {
		return NewSlangDictionary(nil), err
	}
	log.WithFields(logrus.Fields{"file": name, "entries": dict.Len()}).Info("slang dictionary loaded")
	return dict, nil
}

// LoadSlangDictionaryFile is LoadSlangDictionary for a path on the local disk.
func LoadSlangDictionaryFile(path string, log logrus.FieldLogger) (*SlangDictionary, error) {
	return LoadSlangDictionary(os.DirFS(filepath.Dir(path)), filepath.Base(path), log)
}

// ParseSlangDictionary reads `slang<TAB>formal` lines, splitting on the first
// tab. Lines without a tab are skipped with a warning.
func ParseSlangDictionary(r io.Reader, name string, log logrus.FieldLogger) (*SlangDictionary, error) {
	if log == nil {
		log = discardLogger()
	}
	mapping := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		slang, formal, found := strings.Cut(line, "\t")
		if !found {
			log.WithFields(logrus.Fields{"file": name, "line": lineNum}).Warnf("no tab in %q", line)
			continue
		}
		mapping[slang] = formal
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading slang dictionary %s: %w", ErrResourceLoad, name, err)
	}
	return &SlangDictionary{mapping: mapping}, nil
}

// Lookup returns the formal form of token, or token itself when unmapped.
func (d *SlangDictionary) Lookup(token string) string {
	if d == nil {
		return token
	}
	if formal, ok := d.mapping[token]; ok {
		return formal
	}
	return token
}

// Len returns the number of entries.
func (d *SlangDictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.mapping)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// isNotExist reports whether err came from a missing resource file.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
