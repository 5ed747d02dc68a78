package shgat

import (
	"container/heap"
	"math"
	"math/rand"
	"strconv"
)

// TrainingExample is one supervised signal for online learning (spec 4.6,
// 6.1): an intent embedding, the capability that should have been ranked
// relevant, and the observed label (1 = correct match, 0 = incorrect).
type TrainingExample struct {
	ID              string
	IntentEmbedding []float64
	CapabilityID    string
	Label           float64
}

// replayItem is one buffered example plus its sampling priority (spec 4.6's
// prioritized replay: priority^alpha sampling, post-training priority
// |p-y|).
type replayItem struct {
	example  TrainingExample
	priority float64
	index    int // heap bookkeeping
}

// replayHeap is a max-heap on priority, giving O(log n) insert and the
// ability to rebuild a sampling distribution from the current priorities.
type replayHeap []*replayItem

func (h replayHeap) Len() int            { return len(h) }
func (h replayHeap) Less(i, j int) bool  { return h[i].priority > h[j].priority }
func (h replayHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *replayHeap) Push(x interface{}) {
	item := x.(*replayItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *replayHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

const (
	replayAlpha     = 0.6
	replayMinPrio   = 1e-3
	replayCapacity  = 4096
)

// ReplayBuffer is a bounded prioritized-replay store (spec 4.6).
type ReplayBuffer struct {
	items    replayHeap
	capacity int
}

// NewReplayBuffer constructs an empty buffer with the default capacity.
func NewReplayBuffer() *ReplayBuffer {
	return &ReplayBuffer{capacity: replayCapacity}
}

// Add inserts an example with the given priority (bounded below by
// replayMinPrio), evicting
// the lowest-priority item if the buffer is full.
func (b *ReplayBuffer) Add(ex TrainingExample, priority float64) {
	if priority < replayMinPrio {
		priority = replayMinPrio
	}
	heap.Push(&b.items, &replayItem{example: ex, priority: priority})
	if len(b.items) > b.capacity {
		b.evictLowest()
	}
}

func (b *ReplayBuffer) evictLowest() {
	lowestIdx := 0
	for i := 1; i < len(b.items); i++ {
		if b.items[i].priority < b.items[lowestIdx].priority {
			lowestIdx = i
		}
	}
	heap.Remove(&b.items, lowestIdx)
}

// Len reports how many examples are buffered.
func (b *ReplayBuffer) Len() int { return len(b.items) }

// Sample draws one example with probability proportional to
// priority^replayAlpha, returning its buffer index for a later priority
// update via UpdatePriority.
func (b *ReplayBuffer) Sample(rng *rand.Rand) (TrainingExample, int, bool) {
	if len(b.items) == 0 {
		return TrainingExample{}, -1, false
	}
	weights := make([]float64, len(b.items))
	total := 0.0
	for i, it := range b.items {
		w := math.Pow(it.priority, replayAlpha)
		weights[i] = w
		total += w
	}
	if total <= 0 {
		idx := rng.Intn(len(b.items))
		return b.items[idx].example, idx, true
	}
	r := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r <= cum {
			return b.items[i].example, i, true
		}
	}
	last := len(b.items) - 1
	return b.items[last].example, last, true
}

// UpdatePriority sets the post-training priority |p-y| (spec 4.6) for the
// item at idx, bounded below by replayMinPrio so it is never starved.
func (b *ReplayBuffer) UpdatePriority(idx int, p, y float64) {
	if idx < 0 || idx >= len(b.items) {
		return
	}
	prio := math.Abs(p - y)
	if prio < replayMinPrio {
		prio = replayMinPrio
	}
	b.items[idx].priority = prio
	heap.Fix(&b.items, idx)
}

// gradAccum collects gradients for every learnable tensor across a
// mini-batch, keyed the same way Parameters is shaped, plus per-group L2
// norms for TrainResult.GradientNorms (spec's supplemented feature C.2).
type gradAccum struct {
	gWIntent [][]float64
	gWQ      [][][]float64
	gWK      [][][]float64
	gLevels  map[int]*levelGrad
	batch    int
}

type levelGrad struct {
	gWChild    [][][]float64
	gWParent   [][][]float64
	gAUpward   [][]float64
	gADownward [][]float64
}

func newGradAccum(p *Parameters) *gradAccum {
	g := &gradAccum{
		gWIntent: zerosMat(len(p.WIntent), p.EmbeddingDim),
		gWQ:      make([][][]float64, p.NumHeads),
		gWK:      make([][][]float64, p.NumHeads),
		gLevels:  make(map[int]*levelGrad, len(p.Levels)),
	}
	for h := 0; h < p.NumHeads; h++ {
		g.gWQ[h] = zerosMat(p.HiddenDim, p.HiddenDim)
		g.gWK[h] = zerosMat(p.HiddenDim, p.HiddenDim)
	}
	for level, lp := range p.Levels {
		g.gLevels[level] = newLevelGrad(p.NumHeads, len(lp.WChild[0]), lp.InputDim)
	}
	return g
}

func newLevelGrad(numHeads, headDim, inputDim int) *levelGrad {
	lg := &levelGrad{
		gWChild:    make([][][]float64, numHeads),
		gWParent:   make([][][]float64, numHeads),
		gAUpward:   make([][]float64, numHeads),
		gADownward: make([][]float64, numHeads),
	}
	for h := 0; h < numHeads; h++ {
		lg.gWChild[h] = zerosMat(headDim, inputDim)
		lg.gWParent[h] = zerosMat(headDim, inputDim)
		lg.gAUpward[h] = make([]float64, 2*headDim)
		lg.gADownward[h] = make([]float64, 2*headDim)
	}
	return lg
}

func (g *gradAccum) levelGradFor(p *Parameters, level int) *levelGrad {
	if lg, ok := g.gLevels[level]; ok {
		return lg
	}
	lp := p.Levels[level]
	lg := newLevelGrad(p.NumHeads, len(lp.WChild[0]), lp.InputDim)
	g.gLevels[level] = lg
	return lg
}

// TrainResult reports the outcome of one TrainOnExample call (spec 6.1,
// supplemented by C.2's per-group gradient norms).
type TrainResult struct {
	Loss          float64
	Score         float64
	GradientNorms map[string]float64
}

// trainStep runs one hand-derived backprop step for a single example against
// the given graph/parameter snapshot, returning the loss, the accumulated
// gradients, and the raw fused probability (used both for TrainResult and for
// the replay buffer's priority update). Parameters are not mutated here;
// the caller applies the SGD+L2 update after confirming the gradients are
// finite (spec invariant: aborted steps leave parameters untouched).
func trainStep(p *Parameters, g *graphStore, ex TrainingExample) (*gradAccum, float64, float64, error) {
	c, ok := g.capability(ex.CapabilityID)
	if !ok {
		return nil, 0, 0, ErrUnknownMember
	}
	if len(ex.IntentEmbedding) != p.EmbeddingDim {
		return nil, 0, 0, &DimensionMismatchError{Context: "training example intent embedding", Expected: p.EmbeddingDim, Got: len(ex.IntentEmbedding)}
	}

	_, cache := forward(g, p)
	cache.IntentEmbedding = cloneVec(ex.IntentEmbedding)
	cache.IntentProj = matVec(p.WIntent, ex.IntentEmbedding)

	embedding := cache.EFinal[c.ID]
	sc := scoreOne(p, cache.IntentProj, c, embedding)

	loss := bce(sc.fusedProb, ex.Label)

	// ---- scoring head backward (spec 4.6 steps 1-4) ----
	dLdFused := bceGradP(sc.fusedProb, ex.Label)
	numHeads := p.NumHeads
	invSqrtHidden := 1.0
	if p.HiddenDim > 0 {
		invSqrtHidden = 1.0 / math.Sqrt(float64(p.HiddenDim))
	}

	grad := newGradAccum(p)
	grad.batch = 1

	dIntentProj := make([]float64, len(cache.IntentProj))
	dEmbedding := make([]float64, len(embedding))

	for h := 0; h < numHeads; h++ {
		dProb := dLdFused / float64(numHeads)
		prob := sc.headProb[h]
		dRaw := dProb * prob * (1 - prob)
		dRaw *= invSqrtHidden

		q := sc.q[h]
		k := sc.k[h]

		// raw = dot(q,k) * invSqrtHidden; dRaw already folds invSqrtHidden in.
		dq := scaleVec(k, dRaw)
		dk := scaleVec(q, dRaw)

		// q = W_q[h] . intentProj ; k = W_k[h] . embedding
		addMatInPlace(grad.gWQ[h], outer(dq, cache.IntentProj))
		addMatInPlace(grad.gWK[h], outer(dk, embedding))

		addVecInPlace(dIntentProj, matVecTranspose(p.WQ[h], dq))
		addVecInPlace(dEmbedding, matVecTranspose(p.WK[h], dk))
	}

	// intentProj = W_intent . intentEmbedding
	addMatInPlace(grad.gWIntent, outer(dIntentProj, cache.IntentEmbedding))

	// ---- propagate dEmbedding back through the downward and upward passes ----
	backwardThroughGraph(p, g, cache, c.ID, dEmbedding, grad)

	return grad, loss, sc.fusedProb, nil
}

// matVecTranspose computes W^T * x for a row-major matrix W of shape
// rows x cols, returning a length-cols vector.
func matVecTranspose(w [][]float64, x []float64) []float64 {
	if len(w) == 0 {
		return nil
	}
	out := make([]float64, len(w[0]))
	for i, row := range w {
		xi := x[i]
		if xi == 0 {
			continue
		}
		for j, wij := range row {
			out[j] += wij * xi
		}
	}
	return out
}

// backwardThroughGraph propagates the gradient on one capability's final
// embedding back through its downward residual and the full upward pass
// (spec 4.6 steps 5-7): downward first (since E_final = upward_output +
// downward_contribution), then upward, level by level, following the same
// dependency order the forward pass used but in reverse.
func backwardThroughGraph(p *Parameters, g *graphStore, cache *ForwardCache, targetID string, dTarget []float64, grad *gradAccum) {
	dE := make(map[string][]float64, len(g.capabilities))
	dE[targetID] = dTarget

	// Downward pass backward must walk levels LOW to HIGH: forward's downward
	// step moves contributions from a parent (level k+1) down to a child
	// (level k), so gradient flows the opposite way, from a child's already
	// known gradient up into its level k+1 parents. Processing level k before
	// k+1 guarantees a parent's dE entry is populated before its own turn.
	for k := 0; k < g.maxLevel; k++ {
		dcMap := cache.Downward[k]
		if dcMap == nil {
			continue
		}
		for _, id := range g.byLevel[k] {
			dOut, ok := dE[id]
			if !ok {
				continue
			}
			dc := dcMap[id]
			if !dc.hasParents {
				continue
			}
			backwardDownwardStep(p, k+1, dc, dOut, dE, grad)
		}
	}

	// Tool tier downward backward: gradient on H_final[t] only arises if a
	// training example ever scores a tool directly, which spec 6.1 does not
	// expose - tools are not directly scorable, so no entry point writes
	// into dE keyed by tool id. Nothing to do here.

	// Upward pass backward, per level, using each capability's own dE
	// (gradient on its final embedding, after downward's contribution has
	// already been folded in above since E_final = upwardOutput + residual
	// and d(upwardOutput) = d(E_final) directly, downward's own internal
	// parameters already consumed their share in backwardDownwardStep).
	// Levels run HIGH to LOW so a level-k capability's gradient into its
	// level k-1 children is in dE before those children take their turn.
	for k := g.maxLevel; k >= 0; k-- {
		ucMap := cache.Upward[k]
		if ucMap == nil {
			continue
		}
		lp := p.Levels[k]
		lg := grad.levelGradFor(p, k)
		for _, id := range g.byLevel[k] {
			dOut, ok := dE[id]
			if !ok {
				continue
			}
			c := g.capabilities[g.capIndex[id]]
			uc := ucMap[id]
			backwardUpwardStep(p, lp, lg, k, c, uc, dOut, dE, grad)
		}
	}
}

// backwardDownwardStep propagates dOut (gradient on a node's upward output,
// which also receives the indirect contribution computed here since this
// same node serves as the attention "target" in its own downward step)
// through the downward attention mechanics, accumulating into a_downward and
// into dE for each contributing parent.
func backwardDownwardStep(p *Parameters, parentLevel int, dc *downwardCache, dOut []float64, dE map[string][]float64, grad *gradAccum) {
	numHeads := p.NumHeads
	headDim := p.HeadDim
	hiddenDim := p.HiddenDim
	lg := grad.levelGradFor(p, parentLevel)

	for h := 0; h < numHeads; h++ {
		dContribution := headSlice(dOut, h, headDim)
		// contribution = ELU(sumWeighted)
		dSum := make([]float64, headDim)
		for i := range dSum {
			dSum[i] = dContribution[i] * eluDerivFromOutput(dc.contribution[h][i])
		}

		n := len(dc.parentIDs)
		attn := dc.attn[h]
		parentSlices := dc.parentSlice[h]

		// sumWeighted = sum_j attn[j] * parentSlices[j]
		dAttn := make([]float64, n)
		dParentSlices := make([][]float64, n)
		for j := 0; j < n; j++ {
			dAttn[j] = dot(dSum, parentSlices[j])
			dParentSlices[j] = scaleVec(dSum, attn[j])
		}

		// attn = softmax(scores); softmax Jacobian.
		weightedSum := 0.0
		for i := 0; i < n; i++ {
			weightedSum += attn[i] * dAttn[i]
		}
		dScores := make([]float64, n)
		for j := 0; j < n; j++ {
			dScores[j] = attn[j] * (dAttn[j] - weightedSum)
		}

		for j := 0; j < n; j++ {
			// scores[j] = dot(a_downward[h], leakyReLU(preLeaky[j]))
			dA := scaleVec(applyLeakyVec(dc.preLeaky[h][j]), dScores[j])
			addVecInPlace(lg.gADownward[h], dA)

			deriv := applyLeakyDerivVec(dc.preLeaky[h][j])
			dPre := make([]float64, len(dc.preLeaky[h][j]))
			for i := range dPre {
				dPre[i] = dScores[j] * p.Levels[parentLevel].ADownward[h][i] * deriv[i]
			}
			// pre = concat(parentSlice[j], targetSlice); split the gradient.
			dParentFromScore := dPre[:headDim]
			dTargetFromScore := dPre[headDim:]

			addVecInPlace(dParentSlices[j], dParentFromScore)
			pid := dc.parentIDs[j]
			accumulateHeadSliceGrad(dE, pid, h, headDim, hiddenDim, dParentSlices[j])
			accumulateHeadSliceGradOwn(dOut, h, headDim, dTargetFromScore)
		}
	}
}

// accumulateHeadSliceGrad adds a head-dim gradient slice into dE[id]'s
// corresponding head block, lazily allocating a zeroed hidden_dim gradient
// vector for id on first write.
func accumulateHeadSliceGrad(dE map[string][]float64, id string, head, headDim, hiddenDim int, delta []float64) {
	v, ok := dE[id]
	if !ok {
		v = make([]float64, hiddenDim)
		dE[id] = v
	}
	slice := headSlice(v, head, headDim)
	for i, d := range delta {
		slice[i] += d
	}
}

// accumulateHeadSliceGradOwn adds directly into a caller-owned vector's head
// block (the target side of a downward step, already the gradient buffer
// being accumulated by the outer loop).
func accumulateHeadSliceGradOwn(v []float64, head, headDim int, delta []float64) {
	slice := headSlice(v, head, headDim)
	for i, d := range delta {
		slice[i] += d
	}
}

func applyLeakyDerivVec(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = leakyReLUDeriv(x)
	}
	return out
}

// backwardUpwardStep propagates dOut (gradient on a capability's upward
// output, i.e. on E_final before any downward residual - downward's own
// parameters were already handled in backwardDownwardStep, and downward
// contributes no further gradient to the upward tensors since d(E_final) =
// d(upwardOutput) identically through the residual add) through the
// per-head attention aggregation, accumulating into W_child/W_parent/
// a_upward and into dE for every child.
func backwardUpwardStep(p *Parameters, lp *LevelParams, lg *levelGrad, level int, c *Capability, uc *upwardCache, dOut []float64, dE map[string][]float64, grad *gradAccum) {
	numHeads := p.NumHeads
	headDim := p.HeadDim

	parentInput := c.Intrinsic
	if level >= 1 {
		parentInput = liftToDim(c.Intrinsic, p.HiddenDim)
	}

	if !uc.hasChildren {
		for h := 0; h < numHeads; h++ {
			dHead := headSlice(dOut, h, headDim)
			addMatInPlace(lg.gWParent[h], outer(dHead, parentInput))
		}
		return
	}

	for h := 0; h < numHeads; h++ {
		dHead := headSlice(dOut, h, headDim)
		// output = ELU(sumWeighted)
		dSum := make([]float64, headDim)
		for i := range dSum {
			dSum[i] = dHead[i] * eluDerivFromOutput(uc.output[h][i])
		}

		n := len(uc.childIDs)
		attn := uc.attn[h]
		childProj := uc.childProj[h]

		dAttn := make([]float64, n)
		dChildProj := make([][]float64, n)
		for i := 0; i < n; i++ {
			dAttn[i] = dot(dSum, childProj[i])
			dChildProj[i] = scaleVec(dSum, attn[i])
		}

		weightedSum := 0.0
		for i := 0; i < n; i++ {
			weightedSum += attn[i] * dAttn[i]
		}
		dScores := make([]float64, n)
		for i := 0; i < n; i++ {
			dScores[i] = attn[i] * (dAttn[i] - weightedSum)
		}

		dParentProjHead := make([]float64, headDim)
		for i := 0; i < n; i++ {
			dA := scaleVec(applyLeakyVec(uc.preLeaky[h][i]), dScores[i])
			addVecInPlace(lg.gAUpward[h], dA)

			deriv := applyLeakyDerivVec(uc.preLeaky[h][i])
			dPre := make([]float64, len(uc.preLeaky[h][i]))
			for j := range dPre {
				dPre[j] = dScores[i] * lp.AUpward[h][j] * deriv[j]
			}
			dChildFromScore := dPre[:headDim]
			dParentFromScore := dPre[headDim:]

			addVecInPlace(dChildProj[i], dChildFromScore)
			addVecInPlace(dParentProjHead, dParentFromScore)
		}

		addMatInPlace(lg.gWParent[h], outer(dParentProjHead, parentInput))

		for i := 0; i < n; i++ {
			addMatInPlace(lg.gWChild[h], outer(dChildProj[i], uc.rawChildEmbeddings[i]))
			if level >= 1 {
				// children are capabilities at level k-1: propagate the full
				// hidden_dim gradient into their own upward output (tools at
				// level 0 are leaves, nothing further to propagate into).
				childID := uc.childIDs[i]
				full := matVecTranspose(lp.WChild[h], dChildProj[i])
				accumulateFullGrad(dE, childID, p.HiddenDim, full)
			}
		}
	}
}

// accumulateFullGrad adds a full hidden_dim gradient vector into dE[id],
// lazily allocating a zeroed vector on first write.
func accumulateFullGrad(dE map[string][]float64, id string, hiddenDim int, delta []float64) {
	v, ok := dE[id]
	if !ok {
		v = make([]float64, hiddenDim)
		dE[id] = v
	}
	addVecInPlace(v, delta)
}

// allFinite reports whether every gradient tensor in g is free of NaN/Inf
// (spec: a non-finite gradient aborts the step and leaves parameters
// untouched).
func (g *gradAccum) allFinite() error {
	if !isFiniteMat(g.gWIntent) {
		return &NumericalError{Op: "W_intent gradient", Err: ErrNaNGradient}
	}
	for h, m := range g.gWQ {
		if !isFiniteMat(m) {
			return &NumericalError{Op: "W_q gradient", Err: nonFiniteErr(m)}
		}
		if !isFiniteMat(g.gWK[h]) {
			return &NumericalError{Op: "W_k gradient", Err: nonFiniteErr(g.gWK[h])}
		}
	}
	for level, lg := range g.gLevels {
		for h := range lg.gWChild {
			if !isFiniteMat(lg.gWChild[h]) {
				return &NumericalError{Op: "W_child gradient", Err: nonFiniteErr(lg.gWChild[h])}
			}
			if !isFiniteMat(lg.gWParent[h]) {
				return &NumericalError{Op: "W_parent gradient", Err: nonFiniteErr(lg.gWParent[h])}
			}
			if !isFiniteVec(lg.gAUpward[h]) {
				return &NumericalError{Op: "a_upward gradient", Err: nonFiniteVecErr(lg.gAUpward[h])}
			}
			if !isFiniteVec(lg.gADownward[h]) {
				return &NumericalError{Op: "a_downward gradient", Err: nonFiniteVecErr(lg.gADownward[h])}
			}
		}
		_ = level
	}
	return nil
}

func nonFiniteErr(m [][]float64) error {
	for _, row := range m {
		if err := nonFiniteVecErr(row); err != nil {
			return err
		}
	}
	return ErrNaNGradient
}

func nonFiniteVecErr(v []float64) error {
	for _, x := range v {
		if math.IsNaN(x) {
			return ErrNaNGradient
		}
		if math.IsInf(x, 0) {
			return ErrInfGradient
		}
	}
	return nil
}

// norms reports the L2 norm of every named parameter group's gradient,
// keyed per the scheme documented in SPEC_FULL.md (supplemented feature
// C.2): "W_intent", "W_q", "W_k", "W_child[k]", "W_parent[k]",
// "a_upward[k]", "a_downward[k]".
func (g *gradAccum) norms() map[string]float64 {
	out := make(map[string]float64)
	out["W_intent"] = matNorm(g.gWIntent)

	qNorm, kNorm := 0.0, 0.0
	for h := range g.gWQ {
		qNorm += matNormSq(g.gWQ[h])
		kNorm += matNormSq(g.gWK[h])
	}
	out["W_q"] = math.Sqrt(qNorm)
	out["W_k"] = math.Sqrt(kNorm)

	for level, lg := range g.gLevels {
		childSq, parentSq, upSq, downSq := 0.0, 0.0, 0.0, 0.0
		for h := range lg.gWChild {
			childSq += matNormSq(lg.gWChild[h])
			parentSq += matNormSq(lg.gWParent[h])
			upSq += dot(lg.gAUpward[h], lg.gAUpward[h])
			downSq += dot(lg.gADownward[h], lg.gADownward[h])
		}
		out[levelKey("W_child", level)] = math.Sqrt(childSq)
		out[levelKey("W_parent", level)] = math.Sqrt(parentSq)
		out[levelKey("a_upward", level)] = math.Sqrt(upSq)
		out[levelKey("a_downward", level)] = math.Sqrt(downSq)
	}
	return out
}

func levelKey(prefix string, level int) string {
	return prefix + "[" + strconv.Itoa(level) + "]"
}

func matNorm(m [][]float64) float64 {
	return math.Sqrt(matNormSq(m))
}

func matNormSq(m [][]float64) float64 {
	s := 0.0
	for _, row := range m {
		s += dot(row, row)
	}
	return s
}

// applyGradients performs one SGD-with-L2 update step (spec 4.6):
// theta <- theta - (lr/batchSize)*(grad + lambda*theta), where grad is the
// gradient summed over the batch (trainStep always accumulates a
// batch of exactly 1, so batchSize is always 1 for the online-learning path,
// but the helper stays general for the subprocess batch-training worker).
func applyGradients(p *Parameters, g *gradAccum, lr, l2Lambda float64, batchSize int) {
	scale := lr / float64(batchSize)

	sgdUpdateMat(p.WIntent, g.gWIntent, scale, l2Lambda)
	for h := range p.WQ {
		sgdUpdateMat(p.WQ[h], g.gWQ[h], scale, l2Lambda)
		sgdUpdateMat(p.WK[h], g.gWK[h], scale, l2Lambda)
	}
	for level, lp := range p.Levels {
		lg, ok := g.gLevels[level]
		if !ok {
			continue
		}
		for h := range lp.WChild {
			sgdUpdateMat(lp.WChild[h], lg.gWChild[h], scale, l2Lambda)
			sgdUpdateMat(lp.WParent[h], lg.gWParent[h], scale, l2Lambda)
			sgdUpdateVec(lp.AUpward[h], lg.gAUpward[h], scale, l2Lambda)
			sgdUpdateVec(lp.ADownward[h], lg.gADownward[h], scale, l2Lambda)
		}
	}
}

func sgdUpdateMat(theta, grad [][]float64, scale, l2Lambda float64) {
	for i := range theta {
		sgdUpdateVec(theta[i], grad[i], scale, l2Lambda)
	}
}

func sgdUpdateVec(theta, grad []float64, scale, l2Lambda float64) {
	for i := range theta {
		theta[i] -= scale * (grad[i] + l2Lambda*theta[i])
	}
}
