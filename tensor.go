package sentiment

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Mat is a dense row-major matrix carrying both values and accumulated
// gradients, so it can serve as a learned parameter or an intermediate
// activation on the tape.
type Mat struct {
	Rows int
	Cols int
	W    []float64
	Dw   []float64
}

// NewMat returns a zero matrix of the given shape.
func NewMat(rows, cols int) *Mat {
	assert(rows >= 0 && cols >= 0, "matrix dimensions must be non-negative")
	return &Mat{
		Rows: rows,
		Cols: cols,
		W:    make([]float64, rows*cols),
		Dw:   make([]float64, rows*cols),
	}
}

// NewRandMat returns a matrix with entries drawn from N(0, std^2) using
// the supplied source, keeping initialization reproducible per seed.
func NewRandMat(rows, cols int, rng *rand.Rand, std float64) *Mat {
	m := NewMat(rows, cols)
	for i := range m.W {
		m.W[i] = rng.NormFloat64() * std
	}
	return m
}

// Row returns the value slice backing row i.
func (m *Mat) Row(i int) []float64 {
	return m.W[i*m.Cols : (i+1)*m.Cols]
}

// RowGrad returns the gradient slice backing row i.
func (m *Mat) RowGrad(i int) []float64 {
	return m.Dw[i*m.Cols : (i+1)*m.Cols]
}

// ZeroGrad clears the accumulated gradient.
func (m *Mat) ZeroGrad() {
	for i := range m.Dw {
		m.Dw[i] = 0
	}
}

// Clone copies values only; the clone starts with zero gradient.
func (m *Mat) Clone() *Mat {
	out := NewMat(m.Rows, m.Cols)
	copy(out.W, m.W)
	return out
}

func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Tape records the forward computation as a sequence of backward
// closures. Gradient tracking is an explicit per-call toggle: training
// passes run on a Tape built with NewTape(true), validation and test
// passes on NewTape(false).
type Tape struct {
	tracking bool
	steps    []func()
}

// NewTape returns a computation tape. When tracking is false every op
// skips recording, making eval passes allocation-light and guaranteeing
// they cannot mutate parameters through Backward.
func NewTape(tracking bool) *Tape {
	return &Tape{tracking: tracking}
}

// Tracking reports whether this tape records gradients.
func (t *Tape) Tracking() bool { return t.tracking }

func (t *Tape) record(f func()) {
	if t.tracking {
		t.steps = append(t.steps, f)
	}
}

// Backward replays the recorded closures in reverse order, accumulating
// gradients into every matrix that participated in the forward pass.
func (t *Tape) Backward() {
	for i := len(t.steps) - 1; i >= 0; i-- {
		t.steps[i]()
	}
}

// MatMul returns a*b for a [m,k] and b [k,n].
func (t *Tape) MatMul(a, b *Mat) *Mat {
	assert(a.Cols == b.Rows, "matmul shape mismatch: %dx%d * %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	out := NewMat(a.Rows, b.Cols)
	for i := 0; i < a.Rows; i++ {
		arow := a.Row(i)
		orow := out.Row(i)
		for l, av := range arow {
			if av == 0 {
				continue
			}
			floats.AddScaled(orow, av, b.Row(l))
		}
	}
	t.record(func() {
		for i := 0; i < a.Rows; i++ {
			arow := a.Row(i)
			agrad := a.RowGrad(i)
			ograd := out.RowGrad(i)
			for l := 0; l < a.Cols; l++ {
				agrad[l] += floats.Dot(b.Row(l), ograd)
				floats.AddScaled(b.RowGrad(l), arow[l], ograd)
			}
		}
	})
	return out
}

// Add returns the elementwise sum of two same-shaped matrices.
func (t *Tape) Add(a, b *Mat) *Mat {
	assert(a.Rows == b.Rows && a.Cols == b.Cols, "add shape mismatch: %dx%d + %dx%d", a.Rows, a.Cols, b.Rows, b.Cols)
	out := NewMat(a.Rows, a.Cols)
	floats.AddTo(out.W, a.W, b.W)
	t.record(func() {
		floats.Add(a.Dw, out.Dw)
		floats.Add(b.Dw, out.Dw)
	})
	return out
}

// AddRows broadcasts a 1-row bias across every row of m.
func (t *Tape) AddRows(m, bias *Mat) *Mat {
	assert(bias.Rows == 1 && bias.Cols == m.Cols, "bias must be 1x%d, got %dx%d", m.Cols, bias.Rows, bias.Cols)
	out := NewMat(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		floats.AddTo(out.Row(i), m.Row(i), bias.W)
	}
	t.record(func() {
		floats.Add(m.Dw, out.Dw)
		for i := 0; i < m.Rows; i++ {
			floats.Add(bias.Dw, out.RowGrad(i))
		}
	})
	return out
}

// Tanh applies the bounded nonlinearity elementwise.
func (t *Tape) Tanh(m *Mat) *Mat {
	out := NewMat(m.Rows, m.Cols)
	for i, v := range m.W {
		out.W[i] = math.Tanh(v)
	}
	t.record(func() {
		for i, y := range out.W {
			m.Dw[i] += (1 - y*y) * out.Dw[i]
		}
	})
	return out
}

// ReLU applies max(0, x) elementwise.
func (t *Tape) ReLU(m *Mat) *Mat {
	out := NewMat(m.Rows, m.Cols)
	for i, v := range m.W {
		if v > 0 {
			out.W[i] = v
		}
	}
	t.record(func() {
		for i, v := range m.W {
			if v > 0 {
				m.Dw[i] += out.Dw[i]
			}
		}
	})
	return out
}

// ConcatCols joins two matrices with equal row counts side by side.
func (t *Tape) ConcatCols(a, b *Mat) *Mat {
	assert(a.Rows == b.Rows, "concat row mismatch: %d vs %d", a.Rows, b.Rows)
	out := NewMat(a.Rows, a.Cols+b.Cols)
	for i := 0; i < a.Rows; i++ {
		copy(out.Row(i)[:a.Cols], a.Row(i))
		copy(out.Row(i)[a.Cols:], b.Row(i))
	}
	t.record(func() {
		for i := 0; i < a.Rows; i++ {
			floats.Add(a.RowGrad(i), out.RowGrad(i)[:a.Cols])
			floats.Add(b.RowGrad(i), out.RowGrad(i)[a.Cols:])
		}
	})
	return out
}

// GatherRows looks rows of table up by id, one output row per id.
// Gradients scatter-add back into the table, which is how embedding
// matrices receive updates.
func (t *Tape) GatherRows(table *Mat, ids []int) *Mat {
	out := NewMat(len(ids), table.Cols)
	for i, id := range ids {
		assert(id >= 0 && id < table.Rows, "gather index %d out of range [0,%d)", id, table.Rows)
		copy(out.Row(i), table.Row(id))
	}
	t.record(func() {
		for i, id := range ids {
			floats.Add(table.RowGrad(id), out.RowGrad(i))
		}
	})
	return out
}

// NeighborMean aggregates each node with its direct neighbors: row v of
// the output is the mean of x[v] and x[u] for every u in neighbors[v].
// A node with no neighbors passes through unchanged.
func (t *Tape) NeighborMean(x *Mat, neighbors [][]int) *Mat {
	assert(len(neighbors) == x.Rows, "neighbor index covers %d nodes, matrix has %d rows", len(neighbors), x.Rows)
	out := NewMat(x.Rows, x.Cols)
	for v := 0; v < x.Rows; v++ {
		coef := 1.0 / float64(1+len(neighbors[v]))
		orow := out.Row(v)
		floats.AddScaled(orow, coef, x.Row(v))
		for _, u := range neighbors[v] {
			floats.AddScaled(orow, coef, x.Row(u))
		}
	}
	t.record(func() {
		for v := 0; v < x.Rows; v++ {
			coef := 1.0 / float64(1+len(neighbors[v]))
			ograd := out.RowGrad(v)
			floats.AddScaled(x.RowGrad(v), coef, ograd)
			for _, u := range neighbors[v] {
				floats.AddScaled(x.RowGrad(u), coef, ograd)
			}
		}
	})
	return out
}

// MaskedSoftmaxSeq normalizes a flattened column of per-position scores
// into one probability distribution per sequence of seqLen positions.
// Masked positions receive exactly zero weight regardless of their raw
// score, implemented by excluding them from the normalization entirely
// (the - infinity masking of the usual formulation, without producing
// non-finite intermediates).
//
// A sequence with no valid positions has no defined distribution; that
// is a caller precondition violation and panics.
func (t *Tape) MaskedSoftmaxSeq(scores *Mat, mask []float64, seqLen int) *Mat {
	assert(scores.Cols == 1, "scores must be a column, got %dx%d", scores.Rows, scores.Cols)
	assert(len(mask) == scores.Rows, "mask length %d != score count %d", len(mask), scores.Rows)
	assert(scores.Rows%seqLen == 0, "score count %d not divisible by seqLen %d", scores.Rows, seqLen)

	out := NewMat(scores.Rows, 1)
	for base := 0; base < scores.Rows; base += seqLen {
		maxVal := math.Inf(-1)
		for i := base; i < base+seqLen; i++ {
			if mask[i] != 0 && scores.W[i] > maxVal {
				maxVal = scores.W[i]
			}
		}
		assert(!math.IsInf(maxVal, -1), "sequence starting at node %d has no valid tokens", base)

		sum := 0.0
		for i := base; i < base+seqLen; i++ {
			if mask[i] != 0 {
				out.W[i] = math.Exp(scores.W[i] - maxVal)
				sum += out.W[i]
			}
		}
		for i := base; i < base+seqLen; i++ {
			out.W[i] /= sum
		}
	}
	t.record(func() {
		for base := 0; base < scores.Rows; base += seqLen {
			dot := 0.0
			for i := base; i < base+seqLen; i++ {
				dot += out.Dw[i] * out.W[i]
			}
			for i := base; i < base+seqLen; i++ {
				if mask[i] != 0 {
					scores.Dw[i] += out.W[i] * (out.Dw[i] - dot)
				}
			}
		}
	})
	return out
}

// WeightedSumSeq pools a flattened [batch*seqLen, H] matrix into one
// H-vector per sequence using the per-position weights w.
func (t *Tape) WeightedSumSeq(x, w *Mat, seqLen int) *Mat {
	assert(w.Cols == 1 && w.Rows == x.Rows, "weights must be %dx1, got %dx%d", x.Rows, w.Rows, w.Cols)
	assert(x.Rows%seqLen == 0, "row count %d not divisible by seqLen %d", x.Rows, seqLen)

	batch := x.Rows / seqLen
	out := NewMat(batch, x.Cols)
	for b := 0; b < batch; b++ {
		orow := out.Row(b)
		for i := b * seqLen; i < (b+1)*seqLen; i++ {
			if w.W[i] != 0 {
				floats.AddScaled(orow, w.W[i], x.Row(i))
			}
		}
	}
	t.record(func() {
		for b := 0; b < batch; b++ {
			ograd := out.RowGrad(b)
			for i := b * seqLen; i < (b+1)*seqLen; i++ {
				floats.AddScaled(x.RowGrad(i), w.W[i], ograd)
				w.Dw[i] += floats.Dot(x.Row(i), ograd)
			}
		}
	})
	return out
}
