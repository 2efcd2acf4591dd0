package sentimen

import (
	"strings"
	"testing"
)

func TestWordSet(t *testing.T) {
	set := NewWordSet("yang", " dan ", "", "di")

	tests := []struct {
		word   string
		isStop bool
	}{
		{"yang", true},
		{"dan", true},
		{"di", true},
		{"", false},
		{"Yang", false}, // membership is exact
		{"kebijakan", false},
	}
	for _, tc := range tests {
		if got := set.Contains(tc.word); got != tc.isStop {
			t.Errorf("Contains(%q) = %v, expected %v", tc.word, got, tc.isStop)
		}
	}

	words := set.Words()
	expected := []string{"dan", "di", "yang"}
	if strings.Join(words, ",") != strings.Join(expected, ",") {
		t.Errorf("Words() = %v, expected %v", words, expected)
	}
}

func TestReadWordSet(t *testing.T) {
	input := "# daftar stopword\nyang\n\n  dan  \n#komentar\nini\n"
	set, err := ReadWordSet(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadWordSet: %v", err)
	}
	if len(set) != 3 {
		t.Errorf("expected 3 words, got %d: %v", len(set), set.Words())
	}
	for _, w := range []string{"yang", "dan", "ini"} {
		if !set.Contains(w) {
			t.Errorf("expected %q in set", w)
		}
	}
	if set.Contains("#komentar") {
		t.Error("comment line should be skipped")
	}
}

func TestBundledStopwords(t *testing.T) {
	set, err := LoadWordSet(BundledResources(), StopwordFile)
	if err != nil {
		t.Fatalf("LoadWordSet: %v", err)
	}
	for _, w := range []string{"yang", "dan", "ini", "saya", "tidak"} {
		if !set.Contains(w) {
			t.Errorf("expected bundled stopword %q", w)
		}
	}
	if set.Contains("korupsi") {
		t.Error("content word should not be a stopword")
	}
}

func TestStopWordsLibraryIntegration(t *testing.T) {
	testCases := []struct {
		language string
		word     string
		isStop   bool
	}{
		{"en", "the", true},
		{"en", "programming", false},
		{"en", "and", true},
		{"id", "", false},
	}

	for _, tc := range testCases {
		set := NewLanguageStopwords(tc.language)
		if got := set.Contains(tc.word); got != tc.isStop {
			t.Errorf("Language %s: expected '%s' stop word status to be %v, got %v",
				tc.language, tc.word, tc.isStop, got)
		}
		if set.Language() != tc.language {
			t.Errorf("Language() = %q, expected %q", set.Language(), tc.language)
		}
	}
}

func TestUnionStopwords(t *testing.T) {
	set := UnionStopwords(NewWordSet("yang"), nil, NewLanguageStopwords("en"))
	tests := []struct {
		word   string
		isStop bool
	}{
		{"yang", true},
		{"the", true},
		{"hebat", false},
	}
	for _, tc := range tests {
		if got := set.Contains(tc.word); got != tc.isStop {
			t.Errorf("Contains(%q) = %v, expected %v", tc.word, got, tc.isStop)
		}
	}
}

func TestStopwordsFor(t *testing.T) {
	base := NewWordSet("yang")
	if got := StopwordsFor(base, " ", ""); got.Contains("the") {
		t.Error("blank codes should add no lists")
	}

	n := NewNormalizer(
		UsingStemmer(IdentityStemmer),
		UsingStopwords(StopwordsFor(base, "EN")),
	)
	tests := []struct {
		input    string
		expected string
	}{
		{"The program yang bagus", "program bagus"},
		{"kebijakan ini and the rakyat", "kebijakan ini rakyat"},
	}
	for _, tc := range tests {
		if got := n.NormalizeText(tc.input); got != tc.expected {
			t.Errorf("NormalizeText(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}
