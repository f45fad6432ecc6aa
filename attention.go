package sentiment

import (
	"math"
	"math/rand"
)

// DualAttentionFusion learns two independent mask-aware attention
// distributions over the same token positions: one scoring the encoder
// output, one scoring the graph output. Both branches project into the
// same attention space and score against a single shared context
// vector, which keeps the two distributions comparable in one latent
// space. The two pooled context vectors are concatenated and projected
// back to H.
type DualAttentionFusion struct {
	hidden  int
	attnDim int

	encProj  *Mat // [H, A]
	encBias  *Mat // [1, A]
	gcnProj  *Mat // [H, A]
	gcnBias  *Mat // [1, A]
	context  *Mat // [A, 1]
	fuseProj *Mat // [2H, H]
	fuseBias *Mat // [1, H]
}

// NewDualAttentionFusion initializes the fusion parameters.
func NewDualAttentionFusion(hidden, attnDim int, rng *rand.Rand) *DualAttentionFusion {
	hScale := 1.0 / math.Sqrt(float64(hidden))
	aScale := 1.0 / math.Sqrt(float64(attnDim))
	return &DualAttentionFusion{
		hidden:   hidden,
		attnDim:  attnDim,
		encProj:  NewRandMat(hidden, attnDim, rng, hScale),
		encBias:  NewMat(1, attnDim),
		gcnProj:  NewRandMat(hidden, attnDim, rng, hScale),
		gcnBias:  NewMat(1, attnDim),
		context:  NewRandMat(attnDim, 1, rng, aScale),
		fuseProj: NewRandMat(2*hidden, hidden, rng, hScale),
		fuseBias: NewMat(1, hidden),
	}
}

// Hidden returns the fused output width.
func (f *DualAttentionFusion) Hidden() int { return f.hidden }

// Params exposes the learned parameters keyed by name.
func (f *DualAttentionFusion) Params() map[string]*Mat {
	return map[string]*Mat{
		"fusion.enc.proj":  f.encProj,
		"fusion.enc.bias":  f.encBias,
		"fusion.gcn.proj":  f.gcnProj,
		"fusion.gcn.bias":  f.gcnBias,
		"fusion.context":   f.context,
		"fusion.fuse.proj": f.fuseProj,
		"fusion.fuse.bias": f.fuseBias,
	}
}

// attend scores one representation against the shared context vector
// and pools it into one vector per sequence. Masked positions carry
// exactly zero weight.
func (f *DualAttentionFusion) attend(t *Tape, x, proj, bias *Mat, mask []float64, seqLen int) *Mat {
	u := t.Tanh(t.AddRows(t.MatMul(x, proj), bias))
	scores := t.MatMul(u, f.context)
	weights := t.MaskedSoftmaxSeq(scores, mask, seqLen)
	return t.WeightedSumSeq(x, weights, seqLen)
}

// Forward fuses the encoder output and the graph output, both flattened
// [batch*seqLen, H] matrices over identical positions, into one
// [batch, H] matrix. The mask marks valid positions with 1; every
// sequence must contain at least one valid position (the tokenizer's
// leading BOS token guarantees this for encoded samples).
func (f *DualAttentionFusion) Forward(t *Tape, enc, gcn *Mat, mask []float64, seqLen int) *Mat {
	assert(enc.Cols == f.hidden, "fusion expects encoder width %d, got %d", f.hidden, enc.Cols)
	assert(gcn.Cols == f.hidden, "fusion expects graph width %d, got %d", f.hidden, gcn.Cols)
	assert(enc.Rows == gcn.Rows, "encoder and graph outputs cover different positions: %d vs %d", enc.Rows, gcn.Rows)

	encCtx := f.attend(t, enc, f.encProj, f.encBias, mask, seqLen)
	gcnCtx := f.attend(t, gcn, f.gcnProj, f.gcnBias, mask, seqLen)
	joined := t.ConcatCols(encCtx, gcnCtx)
	return t.Tanh(t.AddRows(t.MatMul(joined, f.fuseProj), f.fuseBias))
}
