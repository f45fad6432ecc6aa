package sentiment

import (
	"math"
	"math/rand"
	"testing"
)

// numericGrad estimates dLoss/dParam by central differences.
func numericGrad(param *Mat, idx int, loss func() float64) float64 {
	const eps = 1e-6
	orig := param.W[idx]
	param.W[idx] = orig + eps
	up := loss()
	param.W[idx] = orig - eps
	down := loss()
	param.W[idx] = orig
	return (up - down) / (2 * eps)
}

func TestMatMulGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := NewRandMat(3, 4, rng, 1)
	b := NewRandMat(4, 2, rng, 1)

	// Loss is the sum of all outputs, so dOut is all ones.
	loss := func() float64 {
		out := NewTape(false).MatMul(a, b)
		sum := 0.0
		for _, v := range out.W {
			sum += v
		}
		return sum
	}

	tape := NewTape(true)
	out := tape.MatMul(a, b)
	for i := range out.Dw {
		out.Dw[i] = 1
	}
	tape.Backward()

	for _, p := range []*Mat{a, b} {
		for i := range p.W {
			want := numericGrad(p, i, loss)
			if math.Abs(p.Dw[i]-want) > 1e-5 {
				t.Fatalf("grad[%d] = %g, numeric %g", i, p.Dw[i], want)
			}
		}
	}
}

func TestCompositeGradient(t *testing.T) {
	// tanh(x*W + b) pooled by masked attention weights, end to end.
	rng := rand.New(rand.NewSource(11))
	const seqLen = 3

	x := NewRandMat(2*seqLen, 4, rng, 1)
	w := NewRandMat(4, 4, rng, 0.5)
	bias := NewRandMat(1, 4, rng, 0.1)
	ctx := NewRandMat(4, 1, rng, 0.5)
	mask := []float64{1, 1, 0, 1, 0, 0}

	forward := func(tape *Tape) *Mat {
		h := tape.Tanh(tape.AddRows(tape.MatMul(x, w), bias))
		scores := tape.MatMul(h, ctx)
		weights := tape.MaskedSoftmaxSeq(scores, mask, seqLen)
		return tape.WeightedSumSeq(h, weights, seqLen)
	}
	loss := func() float64 {
		out := forward(NewTape(false))
		sum := 0.0
		for _, v := range out.W {
			sum += v
		}
		return sum
	}

	tape := NewTape(true)
	out := forward(tape)
	for i := range out.Dw {
		out.Dw[i] = 1
	}
	tape.Backward()

	params := map[string]*Mat{"x": x, "w": w, "bias": bias, "ctx": ctx}
	for name, p := range params {
		for i := range p.W {
			want := numericGrad(p, i, loss)
			if math.Abs(p.Dw[i]-want) > 1e-4 {
				t.Fatalf("%s grad[%d] = %g, numeric %g", name, i, p.Dw[i], want)
			}
		}
	}
}

func TestNeighborMeanGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	x := NewRandMat(4, 3, rng, 1)
	edges, err := BuildChainGraph(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	neighbors := NeighborIndex(edges, 4)

	loss := func() float64 {
		out := NewTape(false).NeighborMean(x, neighbors)
		sum := 0.0
		for _, v := range out.W {
			sum += v
		}
		return sum
	}

	tape := NewTape(true)
	out := tape.NeighborMean(x, neighbors)
	for i := range out.Dw {
		out.Dw[i] = 1
	}
	tape.Backward()

	for i := range x.W {
		want := numericGrad(x, i, loss)
		if math.Abs(x.Dw[i]-want) > 1e-6 {
			t.Fatalf("grad[%d] = %g, numeric %g", i, x.Dw[i], want)
		}
	}
}

func TestNeighborMeanIsolatedNode(t *testing.T) {
	// A node with no neighbors aggregates over itself only.
	x := NewMat(2, 2)
	copy(x.W, []float64{1, 2, 3, 4})

	out := NewTape(false).NeighborMean(x, [][]int{nil, nil})
	for i := range x.W {
		if out.W[i] != x.W[i] {
			t.Fatalf("isolated node changed: out=%v, in=%v", out.W, x.W)
		}
	}
}

func TestMaskedSoftmaxSeq(t *testing.T) {
	scores := NewMat(6, 1)
	copy(scores.W, []float64{2, -1, 100, 0.5, 0.5, 0.5})
	mask := []float64{1, 1, 0, 1, 1, 1}

	out := NewTape(false).MaskedSoftmaxSeq(scores, mask, 3)

	if out.W[2] != 0 {
		t.Errorf("masked position weight = %g, want exactly 0", out.W[2])
	}
	for seq := 0; seq < 2; seq++ {
		sum := 0.0
		for i := seq * 3; i < (seq+1)*3; i++ {
			if math.IsNaN(out.W[i]) || math.IsInf(out.W[i], 0) {
				t.Fatalf("non-finite weight at %d: %g", i, out.W[i])
			}
			sum += out.W[i]
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("sequence %d weights sum to %g, want 1", seq, sum)
		}
	}
}

func TestMaskedSoftmaxSeqLargeScores(t *testing.T) {
	// Max-subtraction keeps extreme logits finite.
	scores := NewMat(3, 1)
	copy(scores.W, []float64{1e4, -1e4, 500})
	mask := []float64{1, 1, 1}

	out := NewTape(false).MaskedSoftmaxSeq(scores, mask, 3)
	for i, v := range out.W {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite weight at %d: %g", i, v)
		}
	}
	if math.Abs(out.W[0]-1) > 1e-9 {
		t.Errorf("dominant logit weight = %g, want ~1", out.W[0])
	}
}

func TestMaskedSoftmaxSeqAllMaskedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("all-masked sequence did not panic")
		}
	}()
	scores := NewMat(2, 1)
	NewTape(false).MaskedSoftmaxSeq(scores, []float64{0, 0}, 2)
}

func TestGatherRowsAccumulatesDuplicates(t *testing.T) {
	table := NewMat(3, 2)
	tape := NewTape(true)
	out := tape.GatherRows(table, []int{1, 1, 2})
	for i := range out.Dw {
		out.Dw[i] = 1
	}
	tape.Backward()

	if table.Dw[2] != 2 || table.Dw[3] != 2 {
		t.Errorf("duplicate id gradient = %v, want accumulation of both rows", table.RowGrad(1))
	}
	if table.Dw[4] != 1 || table.Dw[5] != 1 {
		t.Errorf("single id gradient = %v, want 1s", table.RowGrad(2))
	}
	if table.Dw[0] != 0 || table.Dw[1] != 0 {
		t.Errorf("untouched row gradient = %v, want 0s", table.RowGrad(0))
	}
}

func TestEvalTapeDoesNotRecord(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := NewRandMat(2, 2, rng, 1)
	b := NewRandMat(2, 2, rng, 1)

	tape := NewTape(false)
	out := tape.MatMul(a, b)
	for i := range out.Dw {
		out.Dw[i] = 1
	}
	tape.Backward()

	for i, g := range a.Dw {
		if g != 0 {
			t.Fatalf("eval pass leaked gradient into a.Dw[%d] = %g", i, g)
		}
	}
}
