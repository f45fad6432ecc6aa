package sentiment

import (
	"math"
	"sort"
)

// AdamSolver implements the Adam update rule with optional global-norm
// gradient clipping. Moment estimates are keyed by parameter name so
// the solver survives parameter-map rebuilds. No learning-rate
// scheduling: the rate is fixed for the whole run.
type AdamSolver struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	ClipNorm     float64 // 0 disables clipping

	step int
	m    map[string][]float64
	v    map[string][]float64
}

// NewAdamSolver returns a solver with the usual Adam defaults.
func NewAdamSolver(learningRate float64) *AdamSolver {
	return &AdamSolver{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		ClipNorm:     5.0,
		m:            make(map[string][]float64),
		v:            make(map[string][]float64),
	}
}

// Step applies one optimizer update to every parameter, consuming the
// gradients accumulated by the last backward pass and then clearing
// them. Iteration is in sorted name order so updates are reproducible.
func (s *AdamSolver) Step(params map[string]*Mat) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	if s.ClipNorm > 0 {
		normSq := 0.0
		for _, name := range names {
			for _, g := range params[name].Dw {
				normSq += g * g
			}
		}
		if norm := math.Sqrt(normSq); norm > s.ClipNorm {
			scale := s.ClipNorm / (norm + 1e-7)
			for _, name := range names {
				p := params[name]
				for i := range p.Dw {
					p.Dw[i] *= scale
				}
			}
		}
	}

	s.step++
	correction1 := 1 - math.Pow(s.Beta1, float64(s.step))
	correction2 := 1 - math.Pow(s.Beta2, float64(s.step))

	for _, name := range names {
		p := params[name]
		if s.m[name] == nil {
			s.m[name] = make([]float64, len(p.W))
			s.v[name] = make([]float64, len(p.W))
		}
		mBuf, vBuf := s.m[name], s.v[name]
		for i, g := range p.Dw {
			mBuf[i] = s.Beta1*mBuf[i] + (1-s.Beta1)*g
			vBuf[i] = s.Beta2*vBuf[i] + (1-s.Beta2)*g*g
			mHat := mBuf[i] / correction1
			vHat := vBuf[i] / correction2
			p.W[i] -= s.LearningRate * mHat / (math.Sqrt(vHat) + s.Epsilon)
			p.Dw[i] = 0
		}
	}
}
