package sentiment

import (
	"fmt"
	"math"
	"math/rand"
)

// GraphEnhancedModel composes the sequence encoder, the chain-graph
// convolution stack, the dual-attention fusion, and the two task heads
// into a single multi-task network: a sentiment classifier and an
// auxiliary code-switch-count regressor sharing one fused
// representation.
type GraphEnhancedModel struct {
	cfg ModelConfig

	encoder SequenceEncoder
	gcn     *GraphConvStack
	fusion  *DualAttentionFusion

	clsWeight *Mat // [H, C]
	clsBias   *Mat // [1, C]
	regWeight *Mat // [H, 1]
	regBias   *Mat // [1, 1]
}

// ModelOpt customizes model construction.
type ModelOpt func(*GraphEnhancedModel)

// WithEncoder swaps the bundled embedding encoder for a custom one. The
// replacement must produce the configured hidden width; construction
// fails otherwise.
func WithEncoder(e SequenceEncoder) ModelOpt {
	return func(m *GraphEnhancedModel) {
		m.encoder = e
	}
}

// NewGraphEnhancedModel builds and initializes the full network from a
// validated configuration. All components are checked for a consistent
// hidden width before any training can start.
func NewGraphEnhancedModel(cfg ModelConfig, opts ...ModelOpt) (*GraphEnhancedModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	m := &GraphEnhancedModel{
		cfg:       cfg,
		gcn:       NewGraphConvStack(cfg.Hidden, rng),
		fusion:    NewDualAttentionFusion(cfg.Hidden, cfg.AttnDim, rng),
		clsWeight: NewRandMat(cfg.Hidden, cfg.NumClasses, rng, 1.0/math.Sqrt(float64(cfg.Hidden))),
		clsBias:   NewMat(1, cfg.NumClasses),
		regWeight: NewRandMat(cfg.Hidden, 1, rng, 1.0/math.Sqrt(float64(cfg.Hidden))),
		regBias:   NewMat(1, 1),
	}
	m.encoder = NewEmbeddingEncoder(cfg.VocabSize, cfg.MaxLength, cfg.Hidden, rng)

	for _, opt := range opts {
		opt(m)
	}

	if got := m.encoder.Hidden(); got != cfg.Hidden {
		return nil, fmt.Errorf("encoder hidden width %d does not match configured width %d", got, cfg.Hidden)
	}
	return m, nil
}

// Config returns the configuration the model was built with.
func (m *GraphEnhancedModel) Config() ModelConfig { return m.cfg }

// Params collects every learned parameter across components, keyed by a
// stable name. Checkpointing and the optimizer both operate on this
// view, so saved state round-trips by name.
func (m *GraphEnhancedModel) Params() map[string]*Mat {
	params := map[string]*Mat{
		"head.cls.weight": m.clsWeight,
		"head.cls.bias":   m.clsBias,
		"head.reg.weight": m.regWeight,
		"head.reg.bias":   m.regBias,
	}
	for name, p := range m.encoder.Params() {
		params[name] = p
	}
	for name, p := range m.gcn.Params() {
		params[name] = p
	}
	for name, p := range m.fusion.Params() {
		params[name] = p
	}
	return params
}

// ZeroGrads clears accumulated gradients on every parameter.
func (m *GraphEnhancedModel) ZeroGrads() {
	for _, p := range m.Params() {
		p.ZeroGrad()
	}
}

// Forward runs the full pipeline over an encoded batch and returns
// unnormalized class scores [batch, C] and the auxiliary switch-count
// prediction [batch, 1]. The same tape drives both training passes
// (tracking enabled) and evaluation passes (tracking disabled).
func (m *GraphEnhancedModel) Forward(t *Tape, batch []Sample) (*Mat, *Mat, error) {
	if len(batch) == 0 {
		return nil, nil, fmt.Errorf("empty batch")
	}

	seqLen := m.cfg.MaxLength
	ids := make([]int, 0, len(batch)*seqLen)
	mask := make([]float64, 0, len(batch)*seqLen)
	for _, s := range batch {
		if len(s.IDs) != seqLen || len(s.Mask) != seqLen {
			return nil, nil, fmt.Errorf("sample length %d does not match configured max length %d", len(s.IDs), seqLen)
		}
		ids = append(ids, s.IDs...)
		mask = append(mask, s.Mask...)
	}

	edges, err := BuildChainGraph(len(batch), seqLen)
	if err != nil {
		return nil, nil, err
	}
	neighbors := NeighborIndex(edges, len(batch)*seqLen)

	enc := m.encoder.Encode(t, ids, seqLen)
	gcn := m.gcn.Forward(t, enc, neighbors)
	fused := m.fusion.Forward(t, enc, gcn, mask, seqLen)

	logits := t.AddRows(t.MatMul(fused, m.clsWeight), m.clsBias)
	aux := t.AddRows(t.MatMul(fused, m.regWeight), m.regBias)
	return logits, aux, nil
}

// Predict classifies a batch without tracking gradients and returns the
// argmax class per sample.
func (m *GraphEnhancedModel) Predict(batch []Sample) ([]int, error) {
	logits, _, err := m.Forward(NewTape(false), batch)
	if err != nil {
		return nil, err
	}
	preds := make([]int, logits.Rows)
	for i := range preds {
		preds[i] = argmax(logits.Row(i))
	}
	return preds, nil
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}
