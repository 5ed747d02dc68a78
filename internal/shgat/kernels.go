// Package shgat implements the n-SuperHyperGraph Attention engine: the
// hierarchy computation, multi-level incidence structure, message-passing
// forward pass, K-head scoring head, and hand-rolled backprop trainer that
// together rank capabilities against an intent embedding.
package shgat

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const (
	leakySlope = 0.2
	eluAlpha   = 1.0
	bceEps     = 1e-7
)

// dot delegates to gonum for the plain (non-gradient-tracked) vector dot
// product used when scoring raw attention logits and Q·K; every gradient
// that flows through a dot product is hand-derived in trainer.go.
func dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

// matVec computes W*x for a row-major matrix W of shape rows x cols.
func matVec(w [][]float64, x []float64) []float64 {
	out := make([]float64, len(w))
	for i, row := range w {
		out[i] = dot(row, x)
	}
	return out
}

// concat returns the concatenation of vectors in order.
func concat(vs ...[]float64) []float64 {
	n := 0
	for _, v := range vs {
		n += len(v)
	}
	out := make([]float64, 0, n)
	for _, v := range vs {
		out = append(out, v...)
	}
	return out
}

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func addVecInPlace(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func scaleVec(a []float64, s float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * s
	}
	return out
}

// outer computes the outer product a*bT as a row-major len(a) x len(b) matrix.
func outer(a, b []float64) [][]float64 {
	out := make([][]float64, len(a))
	for i := range a {
		row := make([]float64, len(b))
		for j := range b {
			row[j] = a[i] * b[j]
		}
		out[i] = row
	}
	return out
}

func zerosMat(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func addMatInPlace(dst, src [][]float64) {
	for i := range dst {
		for j := range dst[i] {
			dst[i][j] += src[i][j]
		}
	}
}

// softmax computes a numerically stable softmax over s, subtracting the max.
func softmax(s []float64) []float64 {
	if len(s) == 0 {
		return nil
	}
	max := s[0]
	for _, v := range s[1:] {
		if v > max {
			max = v
		}
	}
	exp := make([]float64, len(s))
	sum := 0.0
	for i, v := range s {
		e := math.Exp(v - max)
		exp[i] = e
		sum += e
	}
	for i := range exp {
		exp[i] /= sum
	}
	return exp
}

func leakyReLU(x float64) float64 {
	if x >= 0 {
		return x
	}
	return leakySlope * x
}

// leakyReLUDeriv returns the derivative of LeakyReLU at pre-activation x.
func leakyReLUDeriv(x float64) float64 {
	if x >= 0 {
		return 1.0
	}
	return leakySlope
}

func elu(x float64) float64 {
	if x >= 0 {
		return x
	}
	return eluAlpha * (math.Exp(x) - 1)
}

// eluDerivFromOutput returns d(ELU)/dx given the already-computed output y =
// ELU(x): for x>=0, y=x so the derivative is 1; for x<0, y=alpha*(e^x-1) so
// e^x = y/alpha + 1 and the derivative alpha*e^x equals y+alpha.
func eluDerivFromOutput(y float64) float64 {
	if y >= 0 {
		return 1.0
	}
	return y + eluAlpha
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// bce computes the binary cross-entropy loss for a single example.
func bce(p, y float64) float64 {
	pc := clampProb(p)
	return -(y*math.Log(pc) + (1-y)*math.Log(1-pc))
}

// bceGradP returns dL/dp for the BCE loss, guarded against p near 0/1.
func bceGradP(p, y float64) float64 {
	pc := clampProb(p)
	return -(y/pc - (1-y)/(1-pc))
}

func clampProb(p float64) float64 {
	if p < bceEps {
		return bceEps
	}
	if p > 1-bceEps {
		return 1 - bceEps
	}
	return p
}

// xavierUniform fills a rows x cols matrix with samples uniform in
// ±sqrt(6/(fanIn+fanOut)).
func xavierUniform(rng *rand.Rand, rows, cols int) [][]float64 {
	bound := math.Sqrt(6.0 / float64(rows+cols))
	m := make([][]float64, rows)
	for i := range m {
		row := make([]float64, cols)
		for j := range row {
			row[j] = (rng.Float64()*2 - 1) * bound
		}
		m[i] = row
	}
	return m
}

// scaledXavierUniform is xavierUniform scaled by a constant factor; used for
// W_q/W_k so that initial Q.K dot products are not near zero (spec 4.3: load
// bearing, without it scores cluster at 0.5 and gradients vanish).
func scaledXavierUniform(rng *rand.Rand, rows, cols int, scale float64) [][]float64 {
	m := xavierUniform(rng, rows, cols)
	for i := range m {
		for j := range m[i] {
			m[i][j] *= scale
		}
	}
	return m
}

// smallSymmetricUniform fills a length-n vector uniform in ±bound, used for
// attention vectors a_upward/a_downward.
func smallSymmetricUniform(rng *rand.Rand, n int, bound float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = (rng.Float64()*2 - 1) * bound
	}
	return v
}

func isFiniteVec(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func isFiniteMat(m [][]float64) bool {
	for _, row := range m {
		if !isFiniteVec(row) {
			return false
		}
	}
	return true
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func cloneMat(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = cloneVec(row)
	}
	return out
}
