package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tsawler/sentimen"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDatasetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []sentimen.Record{
		{ID: 2, Text: "Kebijakan bagus", Label: sentimen.Positive},
		{ID: 0, Text: "Korupsi lagi", Label: sentimen.Negative},
		{ID: 1, Text: "Belum dilabeli", Label: sentimen.Unlabeled},
	}
	if err := s.SaveDataset(ctx, records); err != nil {
		t.Fatalf("SaveDataset: %v", err)
	}
	got, err := s.Dataset(ctx)
	if err != nil {
		t.Fatalf("Dataset: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []sentimen.Record{records[1], records[2], records[0]} {
		if got[i] != want {
			t.Errorf("record %d: expected %+v, got %+v", i, want, got[i])
		}
	}

	// Saving again replaces the table.
	if err := s.SaveDataset(ctx, records[:1]); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Dataset(ctx); len(got) != 1 {
		t.Errorf("expected the dataset to be replaced, got %d records", len(got))
	}
}

func TestPreprocessed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	records := []sentimen.NormalizedRecord{
		{Record: sentimen.Record{ID: 0, Text: "Bagus!", Label: sentimen.Positive}, CaseFolded: "bagus!", Cleansed: "bagus", Tokenized: "bagus", Normalized: "bagus", Filtered: "bagus", Stemmed: "bagus"},
		{Record: sentimen.Record{ID: 1, Text: "yang", Label: sentimen.Negative}, CaseFolded: "yang", Cleansed: "yang", Tokenized: "yang", Normalized: "yang"},
		{Record: sentimen.Record{ID: 2, Text: "jelek", Label: sentimen.Unlabeled}, Stemmed: "jelek"},
	}
	if err := s.SavePreprocessing(ctx, records); err != nil {
		t.Fatalf("SavePreprocessing: %v", err)
	}
	samples, err := s.Preprocessed(ctx)
	if err != nil {
		t.Fatalf("Preprocessed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected the two labeled samples, got %v", samples)
	}
	if samples[0] != (sentimen.Sample{ID: 0, Text: "bagus", Label: sentimen.Positive}) {
		t.Errorf("unexpected sample %+v", samples[0])
	}
	if samples[1] != (sentimen.Sample{ID: 1, Text: "", Label: sentimen.Negative}) {
		t.Errorf("expected the stopword-only record to be kept, got %+v", samples[1])
	}
}

func TestSplitRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	split := &sentimen.SplitResult{
		Train: []sentimen.Sample{
			{ID: 3, Text: "bagus", Label: sentimen.Positive},
			{ID: 1, Text: "jelek", Label: sentimen.Negative},
		},
		Test: []sentimen.Sample{{ID: 2, Text: "hebat", Label: sentimen.Positive}},
	}
	if err := s.SaveSplit(ctx, split); err != nil {
		t.Fatalf("SaveSplit: %v", err)
	}
	train, test, err := s.Split(ctx)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(train) != 2 || len(test) != 1 {
		t.Fatalf("expected 2/1 samples, got %d/%d", len(train), len(test))
	}
	if train[0].ID != 1 || train[1].ID != 3 {
		t.Errorf("expected training samples ordered by id, got %v", train)
	}
	if test[0] != split.Test[0] {
		t.Errorf("expected %+v, got %+v", split.Test[0], test[0])
	}
}

func TestResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	preds := []sentimen.Prediction{
		{Text: "bagus", Actual: sentimen.Positive, Predicted: sentimen.Positive},
		{Text: "jelek", Actual: sentimen.Negative, Predicted: sentimen.Positive},
	}
	runID, err := s.SaveResults(ctx, "", preds)
	if err != nil {
		t.Fatalf("SaveResults: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a generated run id")
	}
	got, err := s.Results(ctx, runID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(got) != 2 || got[0] != preds[0] || got[1] != preds[1] {
		t.Errorf("expected %+v, got %+v", preds, got)
	}

	if _, err := s.SaveResults(ctx, "run-2", preds[:1]); err != nil {
		t.Fatal(err)
	}
	if old, _ := s.Results(ctx, runID); len(old) != 0 {
		t.Errorf("older run should be replaced, got %d rows", len(old))
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sentimen.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := s.SaveDataset(ctx, []sentimen.Record{{ID: 0, Text: "bagus", Label: sentimen.Positive}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Dataset(ctx)
	if err != nil || len(got) != 1 {
		t.Errorf("expected the dataset to persist, got %v (%v)", got, err)
	}
}

func TestStagedPipeline(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var records []sentimen.Record
	for i, text := range []string{"bagus hebat", "bagus sekali", "hebat mantap", "bagus mantap", "hebat sekali"} {
		records = append(records, sentimen.Record{ID: i, Text: text, Label: sentimen.Positive})
	}
	for i, text := range []string{"buruk jelek", "jelek sekali", "buruk parah", "jelek parah", "buruk sekali"} {
		records = append(records, sentimen.Record{ID: 5 + i, Text: text, Label: sentimen.Negative})
	}
	n := sentimen.NewNormalizer(sentimen.UsingStemmer(sentimen.IdentityStemmer))
	normalized, _, err := n.NormalizeAll(ctx, records)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SavePreprocessing(ctx, normalized); err != nil {
		t.Fatal(err)
	}

	samples, err := s.Preprocessed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	splitter := &sentimen.Splitter{Seed: sentimen.DefaultSeed}
	split, err := splitter.Split(samples, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSplit(ctx, split); err != nil {
		t.Fatal(err)
	}

	train, test, err := s.Split(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cfg := sentimen.DefaultTrainingConfig()
	cfg.UseSMOTE = false
	res, err := sentimen.NewTrainer(cfg, n).RunSplit(ctx, &sentimen.SplitResult{Train: train, Test: test})
	if err != nil {
		t.Fatalf("RunSplit: %v", err)
	}
	if res.Metrics.TrainSamples != 8 || res.Metrics.TestSamples != 2 {
		t.Errorf("expected 8/2 samples, got %d/%d", res.Metrics.TrainSamples, res.Metrics.TestSamples)
	}

	runID, err := s.SaveResults(ctx, res.Report.RunID, res.Report.Predictions)
	if err != nil {
		t.Fatal(err)
	}
	stored, err := s.Results(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Errorf("expected 2 stored predictions, got %d", len(stored))
	}
}
