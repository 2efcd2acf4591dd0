package sentimen

import (
	"math"
	"testing"
)

func TestLabel(t *testing.T) {
	labeler := NewLabeler(NewLexicon(map[string]float64{
		"hebat":       2,
		"tidak hebat": -1,
		"bagus":       3,
		"buruk":       -3,
		"korupsi":     -5,
	}))

	tests := []struct {
		text     string
		score    float64
		label    Label
		desc     string
	}{
		{"Pemerintah HEBAT", 2, Positive, "case is ignored"},
		{"saya tidak hebat", 1, Positive, "overlapping phrases both count"},
		{"hebat hebat hebat", 6, Positive, "repeated phrase counts each time"},
		{"bagus tapi buruk", 0, Neutral, "weights cancel out"},
		{"korupsi makin buruk", -8, Negative, "negative phrases add up"},
		{"tidak ada kata", 0, Neutral, "no match is neutral"},
		{"", 0, Neutral, "empty text"},
		{"bagusnya luar biasa", 3, Positive, "substring match"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			res := labeler.Label(tt.text)
			if math.Abs(res.Score-tt.score) > tolerance {
				t.Errorf("Label(%q): expected score %v, got %v", tt.text, tt.score, res.Score)
			}
			if res.Label != tt.label {
				t.Errorf("Label(%q): expected %s, got %s", tt.text, tt.label, res.Label)
			}
		})
	}
}

func TestLabelMatches(t *testing.T) {
	labeler := NewLabeler(NewLexicon(map[string]float64{"hebat": 2, "tidak hebat": -1}))
	res := labeler.Label("tidak hebat, sungguh hebat")
	if len(res.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %v", res.Matches)
	}
	// Longest phrase first
	if res.Matches[0] != (PhraseMatch{Phrase: "tidak hebat", Count: 1, Weight: -1}) {
		t.Errorf("unexpected first match %+v", res.Matches[0])
	}
	if res.Matches[1] != (PhraseMatch{Phrase: "hebat", Count: 2, Weight: 2}) {
		t.Errorf("unexpected second match %+v", res.Matches[1])
	}
	if res.Score != 3 {
		t.Errorf("expected score 3, got %v", res.Score)
	}
}

func TestLabelAll(t *testing.T) {
	labeler, err := NewBundledLabeler()
	if err != nil {
		t.Fatalf("NewBundledLabeler: %v", err)
	}
	texts := []string{"Kinerja menteri sangat bagus", "Kasus korupsi lagi", "Hari ini hujan"}
	expected := []Label{Positive, Negative, Neutral}

	results := labeler.LabelAll(texts)
	if len(results) != len(texts) {
		t.Fatalf("expected %d results, got %d", len(texts), len(results))
	}
	for i, res := range results {
		if res.Label != expected[i] {
			t.Errorf("%q: expected %s, got %s (score %v)", texts[i], expected[i], res.Label, res.Score)
		}
	}
	if labeler.Lexicon().Len() == 0 {
		t.Error("bundled lexicon is empty")
	}
}

func TestLabelSentences(t *testing.T) {
	labeler := NewLabeler(NewLexicon(map[string]float64{"bagus": 3, "buruk": -3}))
	text := "Kebijakan ini bagus. Tapi pelaksanaannya buruk sekali."

	parts, err := labeler.LabelSentences(text)
	if err != nil {
		t.Fatalf("LabelSentences: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %+v", len(parts), parts)
	}
	if parts[0].Label != Positive {
		t.Errorf("first sentence should be positive, got %s", parts[0].Label)
	}
	if parts[1].Label != Negative {
		t.Errorf("second sentence should be negative, got %s", parts[1].Label)
	}
	if whole := labeler.Label(text); whole.Label != Neutral {
		t.Errorf("whole text should be neutral, got %s", whole.Label)
	}
}

func BenchmarkLabel(b *testing.B) {
	texts := []string{
		"Kebijakan pemerintah sangat bagus dan mendukung rakyat.",
		"Kasus korupsi ini buruk sekali, gagal total.",
		"Hari ini rapat di gedung DPR.",
		"Saya tidak setuju, tapi hasilnya lumayan baik.",
	}
	labeler, err := NewBundledLabeler()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = labeler.Label(texts[i%len(texts)])
	}
}

func BenchmarkNormalize(b *testing.B) {
	res := LoadResources(BundledResources(), nil)
	n := NewNormalizerFromResources(res)
	texts := []string{
		"Gk setuju bgt sama kebijakan ini @menteri https://t.co/abc",
		"Pemerintah HEBAT!! #mantap",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = n.NormalizeText(texts[i%len(texts)])
	}
}
