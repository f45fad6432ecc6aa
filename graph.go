package sentiment

import (
	"fmt"
)

// Edge is a directed edge between two node indices in a batched token
// graph.
type Edge struct {
	Src int
	Dst int
}

// BuildChainGraph connects the tokens of each sequence in a batch into a
// bidirectional chain. Nodes are numbered block-diagonally: sequence b
// owns nodes [b*seqLen, (b+1)*seqLen), and node b*seqLen+i connects to
// b*seqLen+i+1 in both directions. No edge crosses sequences, so the
// result is a disjoint union of undirected paths with exactly
// 2*(seqLen-1)*batchSize directed edges.
//
// Edge order is deterministic (block order, increasing position, forward
// edge before backward edge) so graph-convolution results are
// reproducible for identical weights.
func BuildChainGraph(batchSize, seqLen int) ([]Edge, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if seqLen < 1 {
		return nil, fmt.Errorf("sequence length must be positive, got %d", seqLen)
	}

	edges := make([]Edge, 0, 2*(seqLen-1)*batchSize)
	for b := 0; b < batchSize; b++ {
		base := b * seqLen
		for i := 0; i < seqLen-1; i++ {
			edges = append(edges,
				Edge{Src: base + i, Dst: base + i + 1},
				Edge{Src: base + i + 1, Dst: base + i},
			)
		}
	}
	return edges, nil
}

// NeighborIndex converts an edge list into per-node incoming-neighbor
// lists for n nodes. Nodes with no edges get an empty list; the
// convolution layers treat those as self-only aggregation.
func NeighborIndex(edges []Edge, n int) [][]int {
	neighbors := make([][]int, n)
	for _, e := range edges {
		neighbors[e.Dst] = append(neighbors[e.Dst], e.Src)
	}
	return neighbors
}
