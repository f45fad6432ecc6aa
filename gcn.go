package sentiment

import (
	"math"
	"math/rand"
)

// graphConvLayer updates each node by averaging it with its chain
// neighbors, applying a learned linear transform, and a ReLU.
type graphConvLayer struct {
	weight *Mat // [H, H]
	bias   *Mat // [1, H]
}

func newGraphConvLayer(hidden int, rng *rand.Rand) *graphConvLayer {
	return &graphConvLayer{
		weight: NewRandMat(hidden, hidden, rng, 1.0/math.Sqrt(float64(hidden))),
		bias:   NewMat(1, hidden),
	}
}

func (l *graphConvLayer) forward(t *Tape, x *Mat, neighbors [][]int) *Mat {
	return t.ReLU(t.AddRows(t.MatMul(t.NeighborMean(x, neighbors), l.weight), l.bias))
}

// GraphConvStack propagates token representations along the chain graph
// through two stacked convolution layers. Input and output share the
// flattened [batch*seqLen, H] shape, so the stack composes with the
// encoder without reshaping.
type GraphConvStack struct {
	hidden int
	layers [2]*graphConvLayer
}

// NewGraphConvStack builds the two-layer stack for width hidden.
func NewGraphConvStack(hidden int, rng *rand.Rand) *GraphConvStack {
	return &GraphConvStack{
		hidden: hidden,
		layers: [2]*graphConvLayer{
			newGraphConvLayer(hidden, rng),
			newGraphConvLayer(hidden, rng),
		},
	}
}

// Hidden returns the stack's feature width.
func (s *GraphConvStack) Hidden() int { return s.hidden }

// Params exposes the learned parameters keyed by name.
func (s *GraphConvStack) Params() map[string]*Mat {
	return map[string]*Mat{
		"gcn.0.weight": s.layers[0].weight,
		"gcn.0.bias":   s.layers[0].bias,
		"gcn.1.weight": s.layers[1].weight,
		"gcn.1.bias":   s.layers[1].bias,
	}
}

// Forward runs both layers over the node matrix using the supplied
// neighbor index. A single-token sequence has no neighbors anywhere in
// its block, which reduces each aggregation to the node itself.
func (s *GraphConvStack) Forward(t *Tape, x *Mat, neighbors [][]int) *Mat {
	assert(x.Cols == s.hidden, "graph conv expects width %d, got %d", s.hidden, x.Cols)
	h := s.layers[0].forward(t, x, neighbors)
	return s.layers[1].forward(t, h, neighbors)
}
