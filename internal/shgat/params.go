package shgat

import "math/rand"

// headLevels enumerates the allowed even head counts (spec 4.3).
var headLevels = []int{4, 6, 8, 12, 16}

// GetAdaptiveHeads chooses an even num_heads in {4,6,8,12,16} based on graph
// size, biasing deeper hierarchies upward by one or two steps (spec 4.3).
// Deterministic: no randomness involved.
func GetAdaptiveHeads(numTools, numCaps, maxLevel int) int {
	size := numTools + numCaps
	idx := 0
	switch {
	case size < 50:
		idx = 0
	case size < 200:
		idx = 1
	case size < 1000:
		idx = 2
	case size < 5000:
		idx = 3
	default:
		idx = 4
	}
	switch {
	case maxLevel >= 4:
		idx += 2
	case maxLevel >= 2:
		idx += 1
	}
	if idx >= len(headLevels) {
		idx = len(headLevels) - 1
	}
	return headLevels[idx]
}

// LevelParams holds the per-level, per-head attention parameters (spec 3):
// projection matrices W_child/W_parent of shape head_dim x input_dim, and
// attention vectors a_upward/a_downward of length 2*head_dim.
type LevelParams struct {
	WChild    [][][]float64 // [head][headDim][inputDim]
	WParent   [][][]float64 // [head][headDim][inputDim]
	AUpward   [][]float64   // [head][2*headDim]
	ADownward [][]float64   // [head][2*headDim]
	InputDim  int
}

// initLevelParams Xavier-initializes W_child/W_parent and draws a_upward /
// a_downward from a small symmetric uniform distribution (spec 4.3).
func initLevelParams(rng *rand.Rand, numHeads, headDim, inputDim int) *LevelParams {
	lp := &LevelParams{
		WChild:    make([][][]float64, numHeads),
		WParent:   make([][][]float64, numHeads),
		AUpward:   make([][]float64, numHeads),
		ADownward: make([][]float64, numHeads),
		InputDim:  inputDim,
	}
	for h := 0; h < numHeads; h++ {
		lp.WChild[h] = xavierUniform(rng, headDim, inputDim)
		lp.WParent[h] = xavierUniform(rng, headDim, inputDim)
		lp.AUpward[h] = smallSymmetricUniform(rng, 2*headDim, 0.1)
		lp.ADownward[h] = smallSymmetricUniform(rng, 2*headDim, 0.1)
	}
	return lp
}

func (lp *LevelParams) clone() *LevelParams {
	out := &LevelParams{InputDim: lp.InputDim}
	for _, m := range lp.WChild {
		out.WChild = append(out.WChild, cloneMat(m))
	}
	for _, m := range lp.WParent {
		out.WParent = append(out.WParent, cloneMat(m))
	}
	for _, v := range lp.AUpward {
		out.AUpward = append(out.AUpward, cloneVec(v))
	}
	for _, v := range lp.ADownward {
		out.ADownward = append(out.ADownward, cloneVec(v))
	}
	return out
}

// Parameters is the full set of learnable tensors: per-level attention
// parameters, the K-head scoring parameters, and the intent projection
// (spec 3, 4.6's dimension policy).
type Parameters struct {
	EmbeddingDim int
	HiddenDim    int
	NumHeads     int
	HeadDim      int

	WIntent [][]float64 // hidden_dim x embedding_dim

	WQ [][][]float64 // [head][hiddenDim][hiddenDim]
	WK [][][]float64 // [head][hiddenDim][hiddenDim]

	Levels map[int]*LevelParams // level -> params, present iff the level is non-empty
}

// scoreScale is a load-bearing multiplier applied to the Xavier init of
// W_q/W_k (spec 4.3): without it Q.K dot products start near zero, fused
// scores cluster at 0.5, and gradients vanish.
const scoreScale = 10.0

func newParameters(rng *rand.Rand, embeddingDim, numHeads, headDim int) *Parameters {
	hiddenDim := numHeads * headDim
	p := &Parameters{
		EmbeddingDim: embeddingDim,
		HiddenDim:    hiddenDim,
		NumHeads:     numHeads,
		HeadDim:      headDim,
		WIntent:      xavierUniform(rng, hiddenDim, embeddingDim),
		WQ:           make([][][]float64, numHeads),
		WK:           make([][][]float64, numHeads),
		Levels:       make(map[int]*LevelParams),
	}
	for h := 0; h < numHeads; h++ {
		p.WQ[h] = scaledXavierUniform(rng, hiddenDim, hiddenDim, scoreScale)
		p.WK[h] = scaledXavierUniform(rng, hiddenDim, hiddenDim, scoreScale)
	}
	return p
}

// ensureLevel initializes parameters for level k on first use (input_dim is
// embedding_dim at level 0, hidden_dim above; spec invariant 4).
func (p *Parameters) ensureLevel(rng *rand.Rand, level int) *LevelParams {
	if lp, ok := p.Levels[level]; ok {
		return lp
	}
	inputDim := p.HiddenDim
	if level == 0 {
		inputDim = p.EmbeddingDim
	}
	lp := initLevelParams(rng, p.NumHeads, p.HeadDim, inputDim)
	p.Levels[level] = lp
	return lp
}

// releaseVanishedLevels drops parameters for levels that no longer have any
// capabilities (spec invariant 4).
func (p *Parameters) releaseVanishedLevels(present map[int]bool) {
	for level := range p.Levels {
		if !present[level] {
			delete(p.Levels, level)
		}
	}
}

// countParameters returns the total number of learnable scalars.
func (p *Parameters) countParameters() int {
	n := len(p.WIntent) * p.EmbeddingDim
	for h := 0; h < p.NumHeads; h++ {
		n += p.HiddenDim * p.HiddenDim * 2 // W_q[h], W_k[h]
	}
	for _, lp := range p.Levels {
		for h := 0; h < p.NumHeads; h++ {
			n += len(lp.WChild[h]) * lp.InputDim
			n += len(lp.WParent[h]) * lp.InputDim
			n += len(lp.AUpward[h])
			n += len(lp.ADownward[h])
		}
	}
	return n
}

func (p *Parameters) clone() *Parameters {
	out := &Parameters{
		EmbeddingDim: p.EmbeddingDim,
		HiddenDim:    p.HiddenDim,
		NumHeads:     p.NumHeads,
		HeadDim:      p.HeadDim,
		WIntent:      cloneMat(p.WIntent),
		Levels:       make(map[int]*LevelParams, len(p.Levels)),
	}
	for _, m := range p.WQ {
		out.WQ = append(out.WQ, cloneMat(m))
	}
	for _, m := range p.WK {
		out.WK = append(out.WK, cloneMat(m))
	}
	for level, lp := range p.Levels {
		out.Levels[level] = lp.clone()
	}
	return out
}
