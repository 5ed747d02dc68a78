package shgat

// upwardCache records everything the backward pass needs to replay one
// capability's upward aggregation step (spec 4.4.2) without recomputation:
// per-head child/parent projections, the pre-softmax scores, the resulting
// attention weights, and the pre-ELU weighted sum.
type upwardCache struct {
	hasChildren        bool
	childIDs           []string      // tool ids (level 0) or capability ids (level >=1), member order
	rawChildEmbeddings [][]float64   // the actual input fed to W_child for each child, same order as childIDs
	childProj          [][][]float64 // [head][i][headDim]
	parentProj         [][]float64   // [head][headDim]
	preLeaky           [][][]float64 // [head][i][2*headDim], the concat fed into LeakyReLU
	scores             [][]float64   // [head][i], post-LeakyReLU dot a_upward (pre-softmax)
	attn               [][]float64   // [head][i], post-softmax
	sumWeighted        [][]float64   // [head][headDim], pre-ELU
	output             [][]float64   // [head][headDim], post-ELU (or the no-children lift)
}

// downwardCache records one capability's (or tool's) downward contribution:
// attention over direct parents, using the head-sliced hidden_dim
// representations rather than a re-projection.
type downwardCache struct {
	hasParents   bool
	parentIDs    []string
	parentSlice  [][][]float64 // [head][j][headDim], head-slice of parent's final hidden_dim embedding
	targetSlice  [][]float64   // [head][headDim], head-slice of this node's own upward output
	preLeaky     [][][]float64 // [head][j][2*headDim]
	scores       [][]float64   // [head][j]
	attn         [][]float64   // [head][j]
	sumWeighted  [][]float64   // [head][headDim], pre-ELU
	contribution [][]float64   // [head][headDim], post-ELU
}

// ForwardCache holds every intermediate the trainer needs to run backprop
// for one forward pass (design notes: "explicit forward/backward caches").
type ForwardCache struct {
	IntentEmbedding []float64
	IntentProj      []float64

	LiftedTool map[string][]float64 // tool id -> concat_h(W_child[0,h].Embedding), hidden_dim

	Upward   map[int]map[string]*upwardCache   // level -> capID -> cache
	Downward map[int]map[string]*downwardCache // level -> capID -> cache, levels 0..maxLevel-1

	ToolDownward map[string]*downwardCache // tool id -> cache

	EFinal map[string][]float64 // capability id -> final hidden_dim embedding
	HFinal map[string][]float64 // tool id -> final hidden_dim embedding
}

// ForwardResult is the public contract of the message-passing orchestrator
// (spec 4.4): tool embeddings, per-level capability embeddings, and
// per-level per-head attention weights for interpretability.
type ForwardResult struct {
	HFinal            map[string][]float64
	EFinal            map[int][][]float64 // level -> ordered (insertion order) capability embeddings
	AttentionUpward   map[int]map[string][][]float64
	AttentionDownward map[int]map[string][][]float64
}

func headSlice(v []float64, head, headDim int) []float64 {
	return v[head*headDim : (head+1)*headDim]
}

// forward runs the full upward + downward message-passing pass for a given
// graph snapshot and parameter set. The returned *ForwardCache always
// retains every intermediate for the trainer (the orchestrator needs them
// internally); callers that only want the result are free to discard it.
func forward(g *graphStore, p *Parameters) (*ForwardResult, *ForwardCache) {
	cache := &ForwardCache{
		LiftedTool:   make(map[string][]float64, len(g.tools)),
		Upward:       make(map[int]map[string]*upwardCache),
		Downward:     make(map[int]map[string]*downwardCache),
		ToolDownward: make(map[string]*downwardCache, len(g.tools)),
		EFinal:       make(map[string][]float64, len(g.capabilities)),
		HFinal:       make(map[string][]float64, len(g.tools)),
	}

	// ---- lift every tool into hidden_dim space via level 0's W_child ----
	lp0 := p.Levels[0]
	for _, t := range g.tools {
		if lp0 == nil {
			cache.LiftedTool[t.ID] = liftToDim(t.Embedding, p.HiddenDim)
			continue
		}
		heads := make([][]float64, p.NumHeads)
		for h := 0; h < p.NumHeads; h++ {
			heads[h] = matVec(lp0.WChild[h], t.Embedding)
		}
		cache.LiftedTool[t.ID] = concat(heads...)
	}

	// ---- upward pass, level 0 .. maxLevel ----
	for k := 0; k <= g.maxLevel; k++ {
		ids := g.byLevel[k]
		if len(ids) == 0 {
			continue
		}
		lp := p.Levels[k]
		cache.Upward[k] = make(map[string]*upwardCache, len(ids))
		for _, id := range ids {
			c := g.capabilities[g.capIndex[id]]
			uc := upwardStep(g, p, lp, k, c, cache)
			cache.Upward[k][id] = uc
			cache.EFinal[id] = concat(uc.output...)
		}
	}

	// ---- downward pass, level maxLevel-1 .. 0, then the tool tier ----
	for k := g.maxLevel - 1; k >= 0; k-- {
		ids := g.byLevel[k]
		if len(ids) == 0 {
			continue
		}
		cache.Downward[k] = make(map[string]*downwardCache, len(ids))
		for _, id := range ids {
			parents := g.incidence.ChildToParents[k+1][id]
			dc := downwardStep(p, k+1, cache.EFinal[id], parents, cache.EFinal)
			cache.Downward[k][id] = dc
			if dc.hasParents {
				addVecInPlace(cache.EFinal[id], concat(dc.contribution...))
			}
		}
	}

	// ---- tool tier ----
	for _, t := range g.tools {
		parents := g.incidence.ToolToCaps[t.ID]
		dc := downwardStep(p, 0, cache.LiftedTool[t.ID], parents, cache.EFinal)
		cache.ToolDownward[t.ID] = dc
		h := cloneVec(cache.LiftedTool[t.ID])
		if dc.hasParents {
			addVecInPlace(h, concat(dc.contribution...))
		}
		cache.HFinal[t.ID] = h
	}

	result := &ForwardResult{
		HFinal:            cache.HFinal,
		EFinal:            make(map[int][][]float64),
		AttentionUpward:   make(map[int]map[string][][]float64),
		AttentionDownward: make(map[int]map[string][][]float64),
	}
	for k := 0; k <= g.maxLevel; k++ {
		ids := g.byLevel[k]
		embs := make([][]float64, len(ids))
		attn := make(map[string][][]float64, len(ids))
		for i, id := range ids {
			embs[i] = cache.EFinal[id]
			attn[id] = cache.Upward[k][id].attn
		}
		result.EFinal[k] = embs
		result.AttentionUpward[k] = attn
	}
	for k := 0; k < g.maxLevel; k++ {
		ids := g.byLevel[k]
		attn := make(map[string][][]float64, len(ids))
		for _, id := range ids {
			attn[id] = cache.Downward[k][id].attn
		}
		result.AttentionDownward[k] = attn
	}
	return result, cache
}

// upwardStep aggregates capability c's direct children (tools at level 0,
// capabilities at level k-1) into its new hidden_dim embedding (spec 4.4.2).
func upwardStep(g *graphStore, p *Parameters, lp *LevelParams, level int, c *Capability, cache *ForwardCache) *upwardCache {
	var childIDs []string
	var childEmbeddings [][]float64
	if level == 0 {
		childIDs = c.toolMembers()
		childEmbeddings = make([][]float64, len(childIDs))
		for i, tid := range childIDs {
			childEmbeddings[i] = g.tools[g.toolIndex[tid]].Embedding
		}
	} else {
		childIDs = c.capabilityMembers()
		childEmbeddings = make([][]float64, len(childIDs))
		for i, cid := range childIDs {
			childEmbeddings[i] = cache.EFinal[cid]
		}
	}

	numHeads := p.NumHeads
	uc := &upwardCache{childIDs: childIDs, rawChildEmbeddings: childEmbeddings}

	parentInput := c.Intrinsic
	if level >= 1 {
		parentInput = liftToDim(c.Intrinsic, p.HiddenDim)
	}
	uc.parentProj = make([][]float64, numHeads)
	for h := 0; h < numHeads; h++ {
		uc.parentProj[h] = matVec(lp.WParent[h], parentInput)
	}

	if len(childIDs) == 0 {
		uc.hasChildren = false
		uc.output = uc.parentProj
		return uc
	}
	uc.hasChildren = true

	uc.childProj = make([][][]float64, numHeads)
	uc.preLeaky = make([][][]float64, numHeads)
	uc.scores = make([][]float64, numHeads)
	uc.attn = make([][]float64, numHeads)
	uc.sumWeighted = make([][]float64, numHeads)
	uc.output = make([][]float64, numHeads)

	for h := 0; h < numHeads; h++ {
		n := len(childIDs)
		childProj := make([][]float64, n)
		preLeaky := make([][]float64, n)
		scores := make([]float64, n)
		for i, emb := range childEmbeddings {
			cp := matVec(lp.WChild[h], emb)
			childProj[i] = cp
			pre := concat(cp, uc.parentProj[h])
			preLeaky[i] = pre
			activated := applyLeakyVec(pre)
			scores[i] = dot(lp.AUpward[h], activated)
		}
		attn := softmax(scores)

		sum := make([]float64, len(childProj[0]))
		for i, w := range attn {
			for j, v := range childProj[i] {
				sum[j] += w * v
			}
		}
		out := applyELUVec(sum)

		uc.childProj[h] = childProj
		uc.preLeaky[h] = preLeaky
		uc.scores[h] = scores
		uc.attn[h] = attn
		uc.sumWeighted[h] = sum
		uc.output[h] = out
	}
	return uc
}

// downwardStep aggregates contributions from direct parents (reverse
// incidence) into a node's (capability's or tool's) residual (spec 4.4.3),
// operating on head-slices of already-finalized hidden_dim embeddings
// rather than re-projecting through W_child/W_parent.
func downwardStep(p *Parameters, parentLevel int, ownFinal []float64, parentIDs []string, eFinal map[string][]float64) *downwardCache {
	dc := &downwardCache{parentIDs: parentIDs}
	if len(parentIDs) == 0 {
		dc.hasParents = false
		return dc
	}
	dc.hasParents = true
	lp := p.Levels[parentLevel]
	numHeads := p.NumHeads
	headDim := p.HeadDim

	dc.parentSlice = make([][][]float64, numHeads)
	dc.targetSlice = make([][]float64, numHeads)
	dc.preLeaky = make([][][]float64, numHeads)
	dc.scores = make([][]float64, numHeads)
	dc.attn = make([][]float64, numHeads)
	dc.sumWeighted = make([][]float64, numHeads)
	dc.contribution = make([][]float64, numHeads)

	for h := 0; h < numHeads; h++ {
		target := headSlice(ownFinal, h, headDim)
		dc.targetSlice[h] = target

		n := len(parentIDs)
		parentSlices := make([][]float64, n)
		preLeaky := make([][]float64, n)
		scores := make([]float64, n)
		for j, pid := range parentIDs {
			ps := headSlice(eFinal[pid], h, headDim)
			parentSlices[j] = ps
			pre := concat(ps, target)
			preLeaky[j] = pre
			activated := applyLeakyVec(pre)
			scores[j] = dot(lp.ADownward[h], activated)
		}
		attn := softmax(scores)

		sum := make([]float64, headDim)
		for j, w := range attn {
			for i, v := range parentSlices[j] {
				sum[i] += w * v
			}
		}
		out := applyELUVec(sum)

		dc.parentSlice[h] = parentSlices
		dc.preLeaky[h] = preLeaky
		dc.scores[h] = scores
		dc.attn[h] = attn
		dc.sumWeighted[h] = sum
		dc.contribution[h] = out
	}
	return dc
}

func applyLeakyVec(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = leakyReLU(x)
	}
	return out
}

func applyELUVec(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = elu(x)
	}
	return out
}

// liftToDim zero-pads (or truncates) v to exactly dim entries. This is the
// parameter-free lift used to give a capability's embedding_dim intrinsic
// vector a hidden_dim shape at levels >= 1, where W_parent's input_dim is
// hidden_dim.
func liftToDim(v []float64, dim int) []float64 {
	if len(v) == dim {
		return cloneVec(v)
	}
	out := make([]float64, dim)
	n := len(v)
	if n > dim {
		n = dim
	}
	copy(out, v[:n])
	return out
}
