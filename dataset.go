package sentiment

import (
	"encoding/gob"
	"math/rand"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// Record is one row of a labeled comment CSV.
type Record struct {
	Text  string `csv:"comment_text"`
	Label string `csv:"label"`
}

// LoadRecords reads a CSV dataset and validates that every row carries
// both required fields. A malformed row is a hard failure: it is better
// to stop at load time than to train on silently dropped data.
func LoadRecords(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening dataset")
	}
	defer file.Close()

	var records []Record
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, errors.Wrap(err, "parsing dataset CSV")
	}
	for i, r := range records {
		if r.Text == "" {
			return nil, errors.Errorf("row %d: missing comment_text", i+1)
		}
		if r.Label == "" {
			return nil, errors.Errorf("row %d: missing label", i+1)
		}
	}
	return records, nil
}

// LabelEncoder maps class names to integer ids over a fixed, sorted
// vocabulary fitted once on the training labels.
type LabelEncoder struct {
	classes []string
	ids     map[string]int
}

// NewLabelEncoder fits the encoder on the observed labels.
func NewLabelEncoder(records []Record) *LabelEncoder {
	seen := make(map[string]bool)
	for _, r := range records {
		seen[r.Label] = true
	}
	classes := make([]string, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Strings(classes)

	ids := make(map[string]int, len(classes))
	for id, label := range classes {
		ids[label] = id
	}
	return &LabelEncoder{classes: classes, ids: ids}
}

// Classes returns the fitted class names in id order.
func (e *LabelEncoder) Classes() []string { return e.classes }

// NumClasses returns the size of the label vocabulary.
func (e *LabelEncoder) NumClasses() int { return len(e.classes) }

// Encode returns the id for a class name, failing on labels the encoder
// was not fitted on.
func (e *LabelEncoder) Encode(label string) (int, error) {
	id, ok := e.ids[label]
	if !ok {
		return 0, errors.Errorf("unknown label %q", label)
	}
	return id, nil
}

// Save persists the fitted label vocabulary.
func (e *LabelEncoder) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating label encoder file")
	}
	defer file.Close()
	return errors.Wrap(gob.NewEncoder(file).Encode(e.classes), "encoding label encoder")
}

// LoadLabelEncoder restores a label encoder saved with Save.
func LoadLabelEncoder(path string) (*LabelEncoder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening label encoder file")
	}
	defer file.Close()

	var classes []string
	if err := gob.NewDecoder(file).Decode(&classes); err != nil {
		return nil, errors.Wrap(err, "decoding label encoder")
	}
	ids := make(map[string]int, len(classes))
	for id, label := range classes {
		ids[label] = id
	}
	return &LabelEncoder{classes: classes, ids: ids}, nil
}

// PrepareSamples runs the full preprocessing chain over raw records:
// normalization, code-switch counting on the cleaned text, label
// encoding, and tokenization into fixed-length sequences.
func PrepareSamples(records []Record, tok *WordTokenizer, labels *LabelEncoder, analyzer *LanguageSwitchAnalyzer) ([]Sample, error) {
	samples := make([]Sample, len(records))
	for i, r := range records {
		text := Normalize(r.Text)
		label, err := labels.Encode(r.Label)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
		ids, mask := tok.Encode(text)
		samples[i] = Sample{
			IDs:      ids,
			Mask:     mask,
			Label:    label,
			Switches: float64(analyzer.CountSwitches(text)),
		}
	}
	return samples, nil
}

// Split partitions samples into train/validation/test subsets after a
// seeded shuffle. Fractions apply to train and validation; the
// remainder becomes the test set.
func Split(samples []Sample, trainFrac, valFrac float64, seed int64) (train, val, test []Sample) {
	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nTrain := int(float64(len(shuffled)) * trainFrac)
	nVal := int(float64(len(shuffled)) * valFrac)
	return shuffled[:nTrain], shuffled[nTrain : nTrain+nVal], shuffled[nTrain+nVal:]
}

// Batches cuts samples into consecutive batches of at most size
// elements, preserving order.
func Batches(samples []Sample, size int) [][]Sample {
	if size < 1 {
		size = 1
	}
	batches := make([][]Sample, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := start + size
		if end > len(samples) {
			end = len(samples)
		}
		batches = append(batches, samples[start:end])
	}
	return batches
}
