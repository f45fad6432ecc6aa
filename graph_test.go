package sentiment

import (
	"reflect"
	"testing"
)

func TestBuildChainGraphSmall(t *testing.T) {
	edges, err := BuildChainGraph(2, 3)
	if err != nil {
		t.Fatalf("BuildChainGraph(2, 3): %v", err)
	}

	expected := []Edge{
		{0, 1}, {1, 0}, {1, 2}, {2, 1},
		{3, 4}, {4, 3}, {4, 5}, {5, 4},
	}
	if !reflect.DeepEqual(edges, expected) {
		t.Errorf("edges = %v, want %v", edges, expected)
	}
}

func TestBuildChainGraphInvariants(t *testing.T) {
	tests := []struct {
		batch, seqLen int
	}{
		{1, 1}, {1, 2}, {3, 5}, {4, 8}, {2, 16},
	}

	for _, tt := range tests {
		edges, err := BuildChainGraph(tt.batch, tt.seqLen)
		if err != nil {
			t.Fatalf("BuildChainGraph(%d, %d): %v", tt.batch, tt.seqLen, err)
		}

		if want := 2 * (tt.seqLen - 1) * tt.batch; len(edges) != want {
			t.Errorf("(%d,%d): %d edges, want %d", tt.batch, tt.seqLen, len(edges), want)
		}
		for _, e := range edges {
			if e.Src/tt.seqLen != e.Dst/tt.seqLen {
				t.Errorf("(%d,%d): edge %v crosses sequence blocks", tt.batch, tt.seqLen, e)
			}
			if diff := e.Src - e.Dst; diff != 1 && diff != -1 {
				t.Errorf("(%d,%d): edge %v is not between adjacent positions", tt.batch, tt.seqLen, e)
			}
		}
	}
}

func TestBuildChainGraphSingleNode(t *testing.T) {
	edges, err := BuildChainGraph(3, 1)
	if err != nil {
		t.Fatalf("seqLen=1 must be valid: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("seqLen=1 yielded %d edges, want 0", len(edges))
	}
}

func TestBuildChainGraphErrors(t *testing.T) {
	tests := []struct {
		batch, seqLen int
		desc          string
	}{
		{0, 5, "Zero batch"},
		{-1, 5, "Negative batch"},
		{2, 0, "Zero sequence length"},
		{2, -3, "Negative sequence length"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if _, err := BuildChainGraph(tt.batch, tt.seqLen); err == nil {
				t.Errorf("BuildChainGraph(%d, %d) succeeded, want error", tt.batch, tt.seqLen)
			}
		})
	}
}

func TestNeighborIndex(t *testing.T) {
	edges, err := BuildChainGraph(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	neighbors := NeighborIndex(edges, 4)

	expected := [][]int{{1}, {0, 2}, {1, 3}, {2}}
	if !reflect.DeepEqual(neighbors, expected) {
		t.Errorf("neighbors = %v, want %v", neighbors, expected)
	}
}
