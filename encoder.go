package sentiment

import (
	"math"
	"math/rand"
)

// SequenceEncoder maps a batch of token-id sequences to one hidden
// vector per token position, flattened to a [batch*seqLen, H] matrix.
// Implementations must route their parameters through Params so the
// orchestrator fine-tunes the encoder jointly with the rest of the
// model, and must run through the supplied tape so gradients reach them.
type SequenceEncoder interface {
	Encode(t *Tape, ids []int, seqLen int) *Mat
	Hidden() int
	Params() map[string]*Mat
}

// EmbeddingEncoder is the bundled contextual encoder: a learned token
// embedding summed with a learned position embedding and passed through
// a tanh projection. Loading pretrained weights is a checkpoint restore
// over its named parameters.
type EmbeddingEncoder struct {
	hidden int
	maxLen int

	tok  *Mat // [vocab, H]
	pos  *Mat // [maxLen, H]
	proj *Mat // [H, H]
	bias *Mat // [1, H]
}

// NewEmbeddingEncoder initializes the encoder's parameters from the
// given source.
func NewEmbeddingEncoder(vocabSize, maxLen, hidden int, rng *rand.Rand) *EmbeddingEncoder {
	scale := 1.0 / math.Sqrt(float64(hidden))
	return &EmbeddingEncoder{
		hidden: hidden,
		maxLen: maxLen,
		tok:    NewRandMat(vocabSize, hidden, rng, 0.02),
		pos:    NewRandMat(maxLen, hidden, rng, 0.02),
		proj:   NewRandMat(hidden, hidden, rng, scale),
		bias:   NewMat(1, hidden),
	}
}

// Hidden returns the encoder's output width.
func (e *EmbeddingEncoder) Hidden() int { return e.hidden }

// Params exposes the learned parameters keyed by name.
func (e *EmbeddingEncoder) Params() map[string]*Mat {
	return map[string]*Mat{
		"encoder.tok":  e.tok,
		"encoder.pos":  e.pos,
		"encoder.proj": e.proj,
		"encoder.bias": e.bias,
	}
}

// Encode embeds the flattened id batch. ids holds batch*seqLen entries
// in block order, matching the chain-graph node numbering.
func (e *EmbeddingEncoder) Encode(t *Tape, ids []int, seqLen int) *Mat {
	assert(seqLen <= e.maxLen, "sequence length %d exceeds encoder maximum %d", seqLen, e.maxLen)
	assert(len(ids)%seqLen == 0, "id count %d not divisible by seqLen %d", len(ids), seqLen)

	posIDs := make([]int, len(ids))
	for i := range posIDs {
		posIDs[i] = i % seqLen
	}

	x := t.Add(t.GatherRows(e.tok, ids), t.GatherRows(e.pos, posIDs))
	return t.Tanh(t.AddRows(t.MatMul(x, e.proj), e.bias))
}
