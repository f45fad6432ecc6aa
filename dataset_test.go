package sentiment

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRecords(t *testing.T) {
	path := writeCSV(t, "comment_text,label\nyeh movie अच्छी hai,positive\nbura experience,negative\n")

	records, err := LoadRecords(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("%d records, want 2", len(records))
	}
	if records[0].Text != "yeh movie अच्छी hai" || records[0].Label != "positive" {
		t.Errorf("first record = %+v", records[0])
	}
}

func TestLoadRecordsMissingFields(t *testing.T) {
	tests := []struct {
		content string
		desc    string
	}{
		{"comment_text,label\n,positive\n", "Empty text"},
		{"comment_text,label\nsome text,\n", "Empty label"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if _, err := LoadRecords(writeCSV(t, tt.content)); err == nil {
				t.Error("malformed record loaded without error")
			}
		})
	}
}

func TestLabelEncoder(t *testing.T) {
	records := []Record{
		{Text: "a", Label: "positive"},
		{Text: "b", Label: "negative"},
		{Text: "c", Label: "neutral"},
		{Text: "d", Label: "positive"},
	}
	enc := NewLabelEncoder(records)

	if enc.NumClasses() != 3 {
		t.Fatalf("%d classes, want 3", enc.NumClasses())
	}
	// Ids follow sorted class-name order, so encoding is stable across
	// runs regardless of record order.
	wantClasses := []string{"negative", "neutral", "positive"}
	for i, want := range wantClasses {
		if enc.Classes()[i] != want {
			t.Errorf("class %d = %q, want %q", i, enc.Classes()[i], want)
		}
	}

	id, err := enc.Encode("neutral")
	if err != nil || id != 1 {
		t.Errorf("Encode(neutral) = (%d, %v), want (1, nil)", id, err)
	}
	if _, err := enc.Encode("mystery"); err == nil {
		t.Error("unknown label encoded without error")
	}
}

func TestLabelEncoderSaveLoad(t *testing.T) {
	enc := NewLabelEncoder([]Record{{Label: "pos"}, {Label: "neg"}})
	path := filepath.Join(t.TempDir(), "labels.gob")
	if err := enc.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadLabelEncoder(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, class := range enc.Classes() {
		if loaded.Classes()[i] != class {
			t.Fatalf("loaded classes %v, want %v", loaded.Classes(), enc.Classes())
		}
	}
}

func TestPrepareSamples(t *testing.T) {
	records := []Record{
		{Text: "  yeh film अच्छी hai!!!  ", Label: "positive"},
		{Text: "boring", Label: "negative"},
	}
	tok := NewWordTokenizer([]string{"yeh film अच्छी hai boring"}, 6)
	labels := NewLabelEncoder(records)
	analyzer := NewLanguageSwitchAnalyzer()

	samples, err := PrepareSamples(records, tok, labels, analyzer)
	if err != nil {
		t.Fatal(err)
	}

	// "yeh film अच्छी hai!" switches Latin->native->Latin.
	if samples[0].Switches != 2 {
		t.Errorf("switch count = %v, want 2", samples[0].Switches)
	}
	if samples[1].Switches != 0 {
		t.Errorf("single-token switch count = %v, want 0", samples[1].Switches)
	}
	if samples[0].Label == samples[1].Label {
		t.Error("distinct labels encoded identically")
	}
	if len(samples[0].IDs) != 6 || len(samples[0].Mask) != 6 {
		t.Errorf("sample not padded to fixed length: %d ids", len(samples[0].IDs))
	}
}

func TestSplit(t *testing.T) {
	samples := make([]Sample, 20)
	for i := range samples {
		samples[i] = Sample{Label: i}
	}

	train, val, test := Split(samples, 0.8, 0.1, 3)
	if len(train) != 16 || len(val) != 2 || len(test) != 2 {
		t.Fatalf("split sizes %d/%d/%d, want 16/2/2", len(train), len(val), len(test))
	}

	// Same seed reproduces the same partition.
	train2, _, _ := Split(samples, 0.8, 0.1, 3)
	for i := range train {
		if train[i].Label != train2[i].Label {
			t.Fatal("split is nondeterministic for a fixed seed")
		}
	}

	seen := make(map[int]bool)
	for _, s := range append(append(append([]Sample{}, train...), val...), test...) {
		seen[s.Label] = true
	}
	if len(seen) != 20 {
		t.Errorf("partitions cover %d distinct samples, want 20", len(seen))
	}
}

func TestBatches(t *testing.T) {
	samples := make([]Sample, 7)
	batches := Batches(samples, 3)
	if len(batches) != 3 {
		t.Fatalf("%d batches, want 3", len(batches))
	}
	if len(batches[0]) != 3 || len(batches[1]) != 3 || len(batches[2]) != 1 {
		t.Errorf("batch sizes %d/%d/%d, want 3/3/1", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}
