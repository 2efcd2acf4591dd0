package sentimen

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestParseLexicon(t *testing.T) {
	input := strings.Join([]string{
		"# kata,bobot",
		"- header line",
		"Bagus,3",
		"  hebat , 4 ",
		"bagus,1",
		"ya, bagus,2",
		"no delimiter",
		"rusak,abc",
		" ,5",
		"",
		"buruk,-3",
	}, "\n")

	lex, err := ParseLexicon(strings.NewReader(input), DefaultLexiconFormat, nil)
	if err != nil {
		t.Fatalf("ParseLexicon: %v", err)
	}

	tests := []struct {
		phrase string
		weight float64
		found  bool
		desc   string
	}{
		{"bagus", 4, true, "repeated entries are summed and lower-cased"},
		{"hebat", 4, true, "whitespace is trimmed"},
		{"ya, bagus", 2, true, "split on the last delimiter"},
		{"buruk", -3, true, "negative weight"},
		{"no delimiter", 0, false, "line without delimiter is skipped"},
		{"rusak", 0, false, "unparsable weight is skipped"},
		{"", 0, false, "empty phrase is skipped"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			w, ok := lex.Weight(tt.phrase)
			if ok != tt.found || w != tt.weight {
				t.Errorf("Weight(%q) = (%v, %v), expected (%v, %v)", tt.phrase, w, ok, tt.weight, tt.found)
			}
		})
	}
	if lex.Len() != 4 {
		t.Errorf("expected 4 phrases, got %d: %v", lex.Len(), lex.Phrases())
	}
}

func TestLexiconPhraseOrder(t *testing.T) {
	lex := NewLexicon(map[string]float64{
		"hebat":       2,
		"tidak hebat": -1,
		"baik":        1,
		"Bagus":       3,
		"bagus":       1,
	})
	expected := []string{"tidak hebat", "bagus", "hebat", "baik"}
	if got := lex.Phrases(); strings.Join(got, "|") != strings.Join(expected, "|") {
		t.Errorf("Phrases() = %v, expected %v", got, expected)
	}
	if w, _ := lex.Weight("bagus"); w != 4 {
		t.Errorf("colliding keys should be summed, got %v", w)
	}
}

func TestLoadLexicon(t *testing.T) {
	fsys := fstest.MapFS{
		"pos.txt": {Data: []byte("bagus,3\nhebat,4\n")},
		"neg.txt": {Data: []byte("buruk,-3\nbagus,-1\n")},
	}

	lex, err := LoadLexicon(fsys, DefaultLexiconFormat, nil, "pos.txt", "neg.txt")
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	if w, _ := lex.Weight("bagus"); w != 2 {
		t.Errorf("expected merged weight 2, got %v", w)
	}

	_, err = LoadLexicon(fsys, DefaultLexiconFormat, nil, "pos.txt", "missing.txt")
	if !errors.Is(err, ErrResourceLoad) {
		t.Errorf("expected ErrResourceLoad for missing file, got %v", err)
	}
}

func TestLoadLexiconFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.tsv")
	if err := os.WriteFile(path, []byte("sangat bagus\t5\njelek\t-2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadLexiconFiles(LexiconFormat{Delimiter: "\t"}, nil, path)
	if err != nil {
		t.Fatalf("LoadLexiconFiles: %v", err)
	}
	if w, ok := lex.Weight("sangat bagus"); !ok || w != 5 {
		t.Errorf("Weight(sangat bagus) = (%v, %v)", w, ok)
	}

	if _, err := LoadLexiconFiles(DefaultLexiconFormat, nil, filepath.Join(dir, "nope.txt")); !errors.Is(err, ErrResourceLoad) {
		t.Errorf("expected ErrResourceLoad, got %v", err)
	}
}

func TestBundledLexicon(t *testing.T) {
	lex, err := LoadBundledLexicon(nil)
	if err != nil {
		t.Fatalf("LoadBundledLexicon: %v", err)
	}
	tests := []struct {
		phrase   string
		positive bool
	}{
		{"hebat", true},
		{"bagus", true},
		{"buruk", false},
		{"korupsi", false},
	}
	for _, tt := range tests {
		w, ok := lex.Weight(tt.phrase)
		if !ok {
			t.Errorf("expected %q in bundled lexicon", tt.phrase)
			continue
		}
		if (w > 0) != tt.positive {
			t.Errorf("Weight(%q) = %v, expected positive=%v", tt.phrase, w, tt.positive)
		}
	}
}

func TestParseSlangDictionary(t *testing.T) {
	input := "gk\ttidak\nbgt\tbanget\nno tab here\nyg\tyang\textra\n\n"
	dict, err := ParseSlangDictionary(strings.NewReader(input), "test", nil)
	if err != nil {
		t.Fatalf("ParseSlangDictionary: %v", err)
	}

	tests := []struct {
		token    string
		expected string
	}{
		{"gk", "tidak"},
		{"bgt", "banget"},
		{"yg", "yang\textra"}, // split on the first tab only
		{"hebat", "hebat"},
		{"no tab here", "no tab here"},
	}
	for _, tt := range tests {
		if got := dict.Lookup(tt.token); got != tt.expected {
			t.Errorf("Lookup(%q) = %q, expected %q", tt.token, got, tt.expected)
		}
	}
	if dict.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", dict.Len())
	}
}

func TestLoadSlangDictionaryMissing(t *testing.T) {
	dict, err := LoadSlangDictionary(fstest.MapFS{}, SlangFile, nil)
	if !errors.Is(err, ErrResourceLoad) {
		t.Fatalf("expected ErrResourceLoad, got %v", err)
	}
	if !isNotExist(err) {
		t.Errorf("expected a not-exist error in the chain, got %v", err)
	}
	if dict == nil || dict.Len() != 0 {
		t.Fatalf("expected an empty dictionary, got %v", dict)
	}
	if got := dict.Lookup("gk"); got != "gk" {
		t.Errorf("missing dictionary should be identity, got %q", got)
	}

	var nilDict *SlangDictionary
	if nilDict.Lookup("bgt") != "bgt" || nilDict.Len() != 0 {
		t.Error("nil dictionary should be identity")
	}
}

func TestLoadResources(t *testing.T) {
	res := LoadResources(BundledResources(), nil)
	if len(res.Warnings) != 0 {
		t.Errorf("bundled resources should load cleanly, got %v", res.Warnings)
	}
	if res.Slang.Lookup("gk") != "tidak" {
		t.Errorf("expected bundled slang gk -> tidak, got %q", res.Slang.Lookup("gk"))
	}

	res = LoadResources(fstest.MapFS{}, nil)
	if len(res.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", res.Warnings)
	}
	if res.Slang == nil || res.Stopwords == nil {
		t.Fatal("missing resources should degrade to empty ones")
	}
	if !strings.Contains(res.Warnings[0], SlangFile) {
		t.Errorf("warning should name %s, got %q", SlangFile, res.Warnings[0])
	}
}
