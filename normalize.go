package sentimen

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// A NormalizerOpt represents a setting that changes the normalization
// process.
//
// For example, it might disable stemming:
//
//	n := sentimen.NewNormalizer(sentimen.UsingStemmer(sentimen.IdentityStemmer))
type NormalizerOpt func(n *Normalizer)

// UsingSlang sets the slang dictionary.
func UsingSlang(dict *SlangDictionary) NormalizerOpt {
	return func(n *Normalizer) {
		n.slang = dict
	}
}

// UsingStopwords sets the stopword list.
func UsingStopwords(set StopwordSet) NormalizerOpt {
	return func(n *Normalizer) {
		n.stopwords = set
	}
}

// UsingStemmer sets the stemmer.
func UsingStemmer(stemmer Stemmer) NormalizerOpt {
	return func(n *Normalizer) {
		n.stemmer = stemmer
	}
}

// UsingTokenizer specifies the Tokenizer to use.
func UsingTokenizer(tok Tokenizer) NormalizerOpt {
	return func(n *Normalizer) {
		n.tokenizer = tok
	}
}

// WithLogger sets the logger that receives stage samples and warnings.
func WithLogger(log logrus.FieldLogger) NormalizerOpt {
	return func(n *Normalizer) {
		n.log = log
	}
}

// WithWorkers bounds the number of records normalized concurrently.
func WithWorkers(workers int) NormalizerOpt {
	return func(n *Normalizer) {
		n.workers = workers
	}
}

// A Normalizer turns raw text into stemmed tokens: case folding, cleansing,
// tokenizing, slang normalization, stopword removal, then stemming.
//
// A Normalizer is safe for concurrent use provided its stemmer is.
type Normalizer struct {
	slang     *SlangDictionary
	stopwords StopwordSet
	stemmer   Stemmer
	tokenizer Tokenizer
	log       logrus.FieldLogger
	workers   int
}

// NewNormalizer creates a Normalizer. Without options no slang or stopwords
// are applied and the Sastrawi stemmer is used.
func NewNormalizer(opts ...NormalizerOpt) *Normalizer {
	n := &Normalizer{
		stopwords: NewWordSet(),
		tokenizer: NewWhitespaceTokenizer(),
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, applyOpt := range opts {
		applyOpt(n)
	}
	if n.stemmer == nil {
		n.stemmer = NewCachedStemmer(NewSastrawiStemmer())
	}
	if n.stopwords == nil {
		n.stopwords = NewWordSet()
	}
	if n.log == nil {
		n.log = discardLogger()
	}
	if n.workers < 1 {
		n.workers = 1
	}
	return n
}

// NewNormalizerFromResources creates a Normalizer using the slang dictionary
// and stopword list of res.
func NewNormalizerFromResources(res *Resources, opts ...NormalizerOpt) *Normalizer {
	base := []NormalizerOpt{UsingSlang(res.Slang), UsingStopwords(res.Stopwords)}
	return NewNormalizer(append(base, opts...)...)
}

var (
	urlPattern     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
	hashtagPattern = regexp.MustCompile(`#\w+`)
	symbolPattern  = regexp.MustCompile(`[^\w\s]`)
	digitPattern   = regexp.MustCompile(`\d+`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// CaseFold lower-cases text.
func CaseFold(text string) string {
	return cases.Lower(language.Und).String(text)
}

// Cleanse strips everything that is not plain words from text: non-ASCII
// characters, URLs, mentions, hashtags, punctuation and digits. Runs of
// white space collapse to one space.
func Cleanse(text string) string {
	ascii, _, err := transform.String(runes.Remove(runes.Predicate(isNonASCII)), text)
	if err != nil {
		ascii = strings.Map(func(r rune) rune {
			if isNonASCII(r) {
				return -1
			}
			return r
		}, text)
	}
	ascii = urlPattern.ReplaceAllString(ascii, "")
	ascii = mentionPattern.ReplaceAllString(ascii, "")
	ascii = hashtagPattern.ReplaceAllString(ascii, "")
	ascii = symbolPattern.ReplaceAllString(ascii, " ")
	ascii = digitPattern.ReplaceAllString(ascii, "")
	ascii = spacePattern.ReplaceAllString(ascii, " ")
	return strings.TrimSpace(ascii)
}

func isNonASCII(r rune) bool {
	return r > unicode.MaxASCII
}

// Normalize runs every stage over the text of rec.
func (n *Normalizer) Normalize(rec Record) NormalizedRecord {
	out := NormalizedRecord{Record: rec}
	out.CaseFolded = CaseFold(rec.Text)
	out.Cleansed = Cleanse(out.CaseFolded)
	out.Tokens = n.tokenizer.Tokenize(out.Cleansed)

	out.NormalizedTokens = make([]string, len(out.Tokens))
	for i, tok := range out.Tokens {
		out.NormalizedTokens[i] = n.slang.Lookup(tok)
	}

	out.FilteredTokens = make([]string, 0, len(out.NormalizedTokens))
	for _, tok := range out.NormalizedTokens {
		if !n.stopwords.Contains(tok) {
			out.FilteredTokens = append(out.FilteredTokens, tok)
		}
	}

	out.StemmedTokens = make([]string, len(out.FilteredTokens))
	for i, tok := range out.FilteredTokens {
		out.StemmedTokens[i] = n.stemmer.Stem(tok)
	}

	out.Tokenized = joinTokens(out.Tokens)
	out.Normalized = joinTokens(out.NormalizedTokens)
	out.Filtered = joinTokens(out.FilteredTokens)
	out.Stemmed = joinTokens(out.StemmedTokens)
	return out
}

// NormalizeText is Normalize for a bare string, returning the stemmed form.
func (n *Normalizer) NormalizeText(text string) string {
	return n.Normalize(Record{Text: text}).Stemmed
}

// A DuplicateGroup lists the original texts that stem to the same string.
type DuplicateGroup struct {
	Stemmed string
	Texts   []string
}

// NormalizeReport summarizes a NormalizeAll run.
type NormalizeReport struct {
	Original             int // Records received
	Blank                int // Records dropped for blank text
	RawDuplicatesRemoved int // Records dropped as exact raw-text duplicates
	StemDuplicates       []DuplicateGroup
	// StemDuplicatesRemoved is always zero: stem collisions are reported,
	// the records are kept.
	StemDuplicatesRemoved int
	Final                 int
}

// NormalizeAll drops blank records and exact raw-text duplicates (the first
// occurrence is kept), then normalizes the remainder concurrently. The
// output preserves input order. Records whose stemmed text collides are
// reported and logged but kept.
func (n *Normalizer) NormalizeAll(ctx context.Context, records []Record) ([]NormalizedRecord, NormalizeReport, error) {
	report := NormalizeReport{Original: len(records)}

	seen := make(map[string]struct{}, len(records))
	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Text) == "" {
			report.Blank++
			continue
		}
		if _, dup := seen[rec.Text]; dup {
			report.RawDuplicatesRemoved++
			continue
		}
		seen[rec.Text] = struct{}{}
		kept = append(kept, rec)
	}
	n.log.WithFields(logrus.Fields{
		"stage":      "dedup",
		"original":   report.Original,
		"blank":      report.Blank,
		"duplicates": report.RawDuplicatesRemoved,
		"count":      len(kept),
	}).Info("raw text deduplicated")

	if len(kept) == 0 {
		return nil, report, fmt.Errorf("%w: no valid records left after cleaning", ErrInsufficientData)
	}

	out := make([]NormalizedRecord, len(kept))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)
	for i := range kept {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = n.Normalize(kept[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, err
	}
	n.logStages(out[0])

	report.StemDuplicates = StemDuplicates(out)
	n.logDuplicates(report.StemDuplicates)
	report.Final = len(out)
	return out, report, nil
}

// StemDuplicates groups records whose stemmed text is identical. Groups are
// ordered by stemmed text; texts keep record order.
func StemDuplicates(records []NormalizedRecord) []DuplicateGroup {
	byStem := make(map[string][]string)
	for _, rec := range records {
		byStem[rec.Stemmed] = append(byStem[rec.Stemmed], rec.Text)
	}
	var groups []DuplicateGroup
	for stemmed, texts := range byStem {
		if len(texts) > 1 {
			groups = append(groups, DuplicateGroup{Stemmed: stemmed, Texts: texts})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Stemmed < groups[j].Stemmed })
	return groups
}

func (n *Normalizer) logStages(sample NormalizedRecord) {
	stages := []struct {
		name  string
		value string
	}{
		{"case_folding", sample.CaseFolded},
		{"cleansing", sample.Cleansed},
		{"tokenizing", fmt.Sprint(sample.Tokens)},
		{"normalization", fmt.Sprint(sample.NormalizedTokens)},
		{"stopword_removal", fmt.Sprint(sample.FilteredTokens)},
		{"stemming", fmt.Sprint(sample.StemmedTokens)},
	}
	for i, s := range stages {
		n.log.WithFields(logrus.Fields{"stage": s.name, "step": i + 1}).Info("sample: " + s.value)
	}
}

func (n *Normalizer) logDuplicates(groups []DuplicateGroup) {
	if len(groups) == 0 {
		n.log.WithField("stage", "stem_dedup").Info("no duplicates after stemming")
		return
	}
	extra := 0
	for _, g := range groups {
		extra += len(g.Texts) - 1
	}
	n.log.WithFields(logrus.Fields{"stage": "stem_dedup", "count": extra}).Warn("duplicate rows after stemming, kept")
	for _, g := range groups {
		entry := n.log.WithFields(logrus.Fields{"stage": "stem_dedup", "stemmed": g.Stemmed})
		for i, text := range g.Texts {
			entry.Infof("%d. %s", i+1, text)
		}
	}
}

// SamplesFromRecords keeps the labeled records and converts them to
// Samples. A record whose stemmed text is empty is kept; it becomes an
// all-zero feature row and its prediction falls to the class prior.
func SamplesFromRecords(records []NormalizedRecord) []Sample {
	samples := make([]Sample, 0, len(records))
	for _, rec := range records {
		if rec.Label == Unlabeled {
			continue
		}
		samples = append(samples, Sample{ID: rec.ID, Text: rec.Stemmed, Label: rec.Label})
	}
	return samples
}
