package sentiment

import (
	"encoding/gob"
	"os"
	"sort"
	"strings"

	"github.com/bbalet/stopwords"
	"github.com/pkg/errors"
)

// Reserved token ids. Every encoded sequence starts with BOS, which
// guarantees the at-least-one-valid-token precondition the attention
// masking relies on.
const (
	padID = 0
	unkID = 1
	bosID = 2

	numReservedTokens = 3
)

// WordTokenizer maps whitespace-separated lowercased words to ids over
// a vocabulary fitted on the training corpus, then truncates and
// right-pads to a fixed length.
type WordTokenizer struct {
	maxLen int
	vocab  map[string]int
	words  []string
}

// TokenizerOpt customizes vocabulary fitting.
type TokenizerOpt func(*fitOptions)

type fitOptions struct {
	maxVocab     int
	stopwordLang string
	minCount     int
}

// UsingMaxVocab caps the fitted vocabulary at n words beyond the
// reserved tokens, keeping the most frequent ones.
func UsingMaxVocab(n int) TokenizerOpt {
	return func(o *fitOptions) { o.maxVocab = n }
}

// UsingStopwordFilter drops stop words of the given ISO 639-1 language
// code during fitting. Stop words still encode at inference time; they
// map to UNK like any other out-of-vocabulary word.
func UsingStopwordFilter(langCode string) TokenizerOpt {
	return func(o *fitOptions) { o.stopwordLang = langCode }
}

// UsingMinCount drops words seen fewer than n times during fitting.
func UsingMinCount(n int) TokenizerOpt {
	return func(o *fitOptions) { o.minCount = n }
}

// NewWordTokenizer fits a tokenizer on the given corpus.
func NewWordTokenizer(corpus []string, maxLen int, opts ...TokenizerOpt) *WordTokenizer {
	options := fitOptions{minCount: 1}
	for _, opt := range opts {
		opt(&options)
	}

	counts := make(map[string]int)
	for _, text := range corpus {
		for _, word := range strings.Fields(strings.ToLower(text)) {
			if options.stopwordLang != "" && isStopword(word, options.stopwordLang) {
				continue
			}
			counts[word]++
		}
	}

	words := make([]string, 0, len(counts))
	for word, n := range counts {
		if n >= options.minCount {
			words = append(words, word)
		}
	}
	// Frequency order, ties alphabetical, so fitting is deterministic.
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if options.maxVocab > 0 && len(words) > options.maxVocab {
		words = words[:options.maxVocab]
	}

	t := &WordTokenizer{
		maxLen: maxLen,
		vocab:  make(map[string]int, len(words)+numReservedTokens),
		words:  append([]string{"[PAD]", "[UNK]", "[BOS]"}, words...),
	}
	for id, word := range t.words {
		t.vocab[word] = id
	}
	return t
}

func isStopword(word, langCode string) bool {
	cleaned := strings.TrimSpace(stopwords.CleanString(word, langCode, false))
	return cleaned == "" || cleaned != word
}

// VocabSize returns the vocabulary size including reserved tokens.
func (t *WordTokenizer) VocabSize() int { return len(t.words) }

// MaxLength returns the fixed sequence length.
func (t *WordTokenizer) MaxLength() int { return t.maxLen }

type tokenizerState struct {
	MaxLen int
	Words  []string
}

// Save persists the fitted vocabulary so inference runs encode text
// exactly as training did.
func (t *WordTokenizer) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating tokenizer file")
	}
	defer file.Close()
	return errors.Wrap(gob.NewEncoder(file).Encode(tokenizerState{MaxLen: t.maxLen, Words: t.words}),
		"encoding tokenizer")
}

// LoadWordTokenizer restores a tokenizer saved with Save.
func LoadWordTokenizer(path string) (*WordTokenizer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening tokenizer file")
	}
	defer file.Close()

	var state tokenizerState
	if err := gob.NewDecoder(file).Decode(&state); err != nil {
		return nil, errors.Wrap(err, "decoding tokenizer")
	}
	t := &WordTokenizer{
		maxLen: state.MaxLen,
		vocab:  make(map[string]int, len(state.Words)),
		words:  state.Words,
	}
	for id, word := range t.words {
		t.vocab[word] = id
	}
	return t, nil
}

// Encode converts text into a fixed-length id sequence and its validity
// mask: mask[i] is 1 exactly where position i holds real content (BOS
// and words), 0 on padding. Words beyond maxLen-1 are truncated.
func (t *WordTokenizer) Encode(text string) ([]int, []float64) {
	ids := make([]int, t.maxLen)
	mask := make([]float64, t.maxLen)

	ids[0] = bosID
	mask[0] = 1

	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= t.maxLen {
			break
		}
		id, ok := t.vocab[word]
		if !ok {
			id = unkID
		}
		ids[pos] = id
		mask[pos] = 1
		pos++
	}
	return ids, mask
}
