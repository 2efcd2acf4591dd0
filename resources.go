package sentimen

import (
	"embed"
	"io"
	"io/fs"

	"github.com/sirupsen/logrus"
)

//go:embed kamus/*.txt
var bundled embed.FS

// Names of the dictionary files, both bundled and on disk.
const (
	SlangFile    = "normalisasi.txt"
	StopwordFile = "stopwords.txt"
	PositiveFile = "kata_positif.txt"
	NegativeFile = "kata_negatif.txt"
)

// BundledResources returns the dictionaries shipped with the package.
func BundledResources() fs.FS {
	sub, err := fs.Sub(bundled, "kamus")
	if err != nil {
		panic(err)
	}
	return sub
}

// Resources holds the dictionaries used by the normalizer. Optional
// resources that failed to load are replaced by empty ones and reported in
// Warnings.
type Resources struct {
	Slang     *SlangDictionary
	Stopwords WordSet
	Warnings  []string
}

// LoadResources reads the slang dictionary and stopword list from fsys.
// It never fails: a missing dictionary degrades the matching stage to
// identity and adds a warning.
func LoadResources(fsys fs.FS, log logrus.FieldLogger) *Resources {
	if log == nil {
		log = discardLogger()
	}
	res := &Resources{}

	slang, err := LoadSlangDictionary(fsys, SlangFile, log)
	if err != nil {
		res.Warnings = append(res.Warnings, describeLoadFailure(SlangFile, err))
	}
	res.Slang = slang

	stops, err := LoadWordSet(fsys, StopwordFile)
	if err != nil {
		log.WithField("file", StopwordFile).Warn("stopword list unavailable, stopword removal is skipped")
		res.Warnings = append(res.Warnings, describeLoadFailure(StopwordFile, err))
		stops = NewWordSet()
	}
	res.Stopwords = stops

	return res
}

// LoadBundledLexicon loads the positive and negative lexicons shipped with
// the package.
func LoadBundledLexicon(log logrus.FieldLogger) (*Lexicon, error) {
	return LoadLexicon(BundledResources(), DefaultLexiconFormat, log, PositiveFile, NegativeFile)
}

func describeLoadFailure(name string, err error) string {
	if isNotExist(err) {
		return name + " not found"
	}
	return err.Error()
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
