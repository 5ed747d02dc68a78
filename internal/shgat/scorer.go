package shgat

import (
	"math"
	"sort"
)

// ScoredCapability is one ranked result of Score (spec 4.5, 6.1): the final
// reliability-weighted score plus the per-head probabilities it was fused
// from and the capability's hierarchy level, so a caller can tell a
// confident single-head match from a diffuse multi-head one at a glance.
type ScoredCapability struct {
	ID             string
	Score          float64
	PerHeadScores  []float64
	HierarchyLevel int
}

// scoreCache retains the per-head intermediates of one capability's scoring
// computation, reused by the trainer's backward pass (spec 4.6 step 1-3).
type scoreCache struct {
	capID       string
	q           [][]float64 // [head][hiddenDim]
	k           [][]float64 // [head][hiddenDim]
	rawScore    []float64   // [head], Q.K/sqrt(hiddenDim)
	headProb    []float64   // [head], sigmoid(rawScore)
	fusedProb   float64     // mean over heads, pre-reliability
	reliability float64
	finalScore  float64 // min(0.95, fused*reliability)
}

// reliabilityMultiplier maps a capability's success rate to the scoring
// multiplier of spec 4.5: penalize unreliable capabilities, reward proven
// ones, leave the rest untouched.
func reliabilityMultiplier(successRate float64) float64 {
	switch {
	case successRate < 0.5:
		return 0.5
	case successRate > 0.9:
		return 1.2
	default:
		return 1.0
	}
}

// scoreOne computes capability c's relevance to the given intent projection,
// caching every intermediate the trainer needs.
func scoreOne(p *Parameters, intentProj []float64, c *Capability, embedding []float64) *scoreCache {
	numHeads := p.NumHeads
	sc := &scoreCache{
		capID:    c.ID,
		q:        make([][]float64, numHeads),
		k:        make([][]float64, numHeads),
		rawScore: make([]float64, numHeads),
		headProb: make([]float64, numHeads),
	}
	invSqrtHidden := 1.0
	if p.HiddenDim > 0 {
		invSqrtHidden = 1.0 / math.Sqrt(float64(p.HiddenDim))
	}

	sum := 0.0
	for h := 0; h < numHeads; h++ {
		q := matVec(p.WQ[h], intentProj)
		k := matVec(p.WK[h], embedding)
		raw := dot(q, k) * invSqrtHidden
		prob := sigmoid(raw)
		sc.q[h] = q
		sc.k[h] = k
		sc.rawScore[h] = raw
		sc.headProb[h] = prob
		sum += prob
	}
	sc.fusedProb = sum / float64(numHeads)
	sc.reliability = reliabilityMultiplier(c.SuccessRate)
	sc.finalScore = sc.fusedProb * sc.reliability
	if sc.finalScore > 0.95 {
		sc.finalScore = 0.95
	}
	return sc
}

// Score ranks capabilities by relevance to intentEmbedding (spec 4.5, 6.1).
// When targetLevel is non-nil, only capabilities at that hierarchy level are
// considered. Results are sorted by descending score, ties broken by
// insertion order (stable sort over arena index).
func (e *Engine) score(intentEmbedding []float64, targetLevel *int) ([]ScoredCapability, *ForwardCache, error) {
	if len(intentEmbedding) != e.params.EmbeddingDim {
		return nil, nil, &DimensionMismatchError{Context: "intent embedding", Expected: e.params.EmbeddingDim, Got: len(intentEmbedding)}
	}
	if len(e.graph.capabilities) == 0 {
		return nil, nil, ErrEmptyInput
	}

	_, cache := forward(e.graph, e.params)
	cache.IntentEmbedding = cloneVec(intentEmbedding)
	cache.IntentProj = matVec(e.params.WIntent, intentEmbedding)

	results := make([]ScoredCapability, 0, len(e.graph.capabilities))
	for _, c := range e.graph.capabilities {
		if targetLevel != nil && c.Level != *targetLevel {
			continue
		}
		emb := cache.EFinal[c.ID]
		sc := scoreOne(e.params, cache.IntentProj, c, emb)
		results = append(results, ScoredCapability{
			ID:             c.ID,
			Score:          sc.finalScore,
			PerHeadScores:  cloneVec(sc.headProb),
			HierarchyLevel: c.Level,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, cache, nil
}
