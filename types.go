package sentiment

import (
	"fmt"
)

// ScriptTag identifies which of the two languages a token belongs to.
// Code-mixed text alternates between a romanized language (TagLatin) and
// a language written in its native script (TagNative).
type ScriptTag string

const (
	TagLatin  ScriptTag = "lang-a"
	TagNative ScriptTag = "lang-b"
)

// ModelConfig describes the shape of a GraphEnhancedModel. Every
// component that consumes the hidden dimension reads it from here, so a
// width mismatch between encoder, graph layers, and fusion is caught at
// construction time.
type ModelConfig struct {
	VocabSize  int   // tokenizer vocabulary size, including special tokens
	NumClasses int   // sentiment label count
	MaxLength  int   // fixed token-sequence length
	Hidden     int   // embedding / graph / fusion width H
	AttnDim    int   // attention projection width
	Seed       int64 // parameter initialization seed
}

// DefaultModelConfig returns a configuration suitable for small
// code-mixed corpora.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		NumClasses: 3,
		MaxLength:  48,
		Hidden:     64,
		AttnDim:    32,
		Seed:       42,
	}
}

// Validate reports the first structural problem with the configuration.
func (c ModelConfig) Validate() error {
	switch {
	case c.VocabSize <= numReservedTokens:
		return fmt.Errorf("vocab size must exceed the %d reserved tokens, got %d", numReservedTokens, c.VocabSize)
	case c.NumClasses < 2:
		return fmt.Errorf("need at least 2 classes, got %d", c.NumClasses)
	case c.MaxLength < 1:
		return fmt.Errorf("max length must be positive, got %d", c.MaxLength)
	case c.Hidden < 1:
		return fmt.Errorf("hidden size must be positive, got %d", c.Hidden)
	case c.AttnDim < 1:
		return fmt.Errorf("attention size must be positive, got %d", c.AttnDim)
	}
	return nil
}

// Sample is one encoded training example: a fixed-length token sequence
// with its validity mask, the encoded sentiment label, and the
// code-switch count regression target.
type Sample struct {
	IDs      []int
	Mask     []float64
	Label    int
	Switches float64
}
