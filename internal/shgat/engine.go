package shgat

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config fixes an engine's structural parameters for its entire lifetime
// (spec invariant 1: embedding_dim, hidden_dim, num_heads, head_dim never
// change after construction).
type Config struct {
	EmbeddingDim int
	NumHeads     int // 0 selects GetAdaptiveHeads(0, 0, 0), i.e. 4 heads, at construction
	HeadDim      int
	Seed         int64
	LearningRate float64
	L2Lambda     float64
}

// DefaultConfig mirrors spec 4.6's suggested hyperparameters.
func DefaultConfig(embeddingDim int) Config {
	return Config{
		EmbeddingDim: embeddingDim,
		HeadDim:      16,
		LearningRate: 0.01,
		L2Lambda:     1e-4,
	}
}

// Engine is the single owning aggregate for one SHGAT instance: the graph,
// the learnable parameters, and the RNG, guarded by one exclusive lock
// (spec 5: single-threaded cooperative core, host serializes access).
type Engine struct {
	mu sync.Mutex

	cfg    Config
	rng    *rand.Rand
	graph  *graphStore
	params *Parameters
	replay *ReplayBuffer
	log    *logrus.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger injects a shared logrus logger for lifecycle and diagnostic
// messages (SPEC_FULL.md A.1); defaults to a standard logrus.Logger with
// output discarded only at Debug level suppressed.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithReplayBuffer overrides the default prioritized replay buffer, mainly
// for tests that want a small capacity.
func WithReplayBuffer(b *ReplayBuffer) Option {
	return func(e *Engine) { e.replay = b }
}

// NewEngine constructs an empty engine. num_heads is cfg.NumHeads if
// non-zero; otherwise it is GetAdaptiveHeads evaluated on the empty graph,
// the smallest tier (4 heads). Either way it is fixed at construction and is
// not re-chosen as the graph grows.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		graph:  newGraphStore(),
		replay: NewReplayBuffer(),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	numHeads := cfg.NumHeads
	if numHeads == 0 {
		numHeads = GetAdaptiveHeads(0, 0, 0)
	}
	e.params = newParameters(e.rng, cfg.EmbeddingDim, numHeads, cfg.HeadDim)
	e.log.WithFields(logrus.Fields{
		"embedding_dim": cfg.EmbeddingDim,
		"num_heads":     numHeads,
		"head_dim":      cfg.HeadDim,
	}).Info("shgat: engine initialized")
	return e
}

// InsertTool adds a new leaf tool (spec 6.1). The embedding must have
// exactly embedding_dim entries and the id must be unused.
func (e *Engine) InsertTool(id string, embedding []float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(embedding) != e.params.EmbeddingDim {
		return &DimensionMismatchError{Context: "tool embedding", Expected: e.params.EmbeddingDim, Got: len(embedding)}
	}
	if e.graph.hasTool(id) || e.graph.hasCapability(id) {
		return ErrDuplicateID
	}
	e.graph.insertTool(id, embedding)
	e.log.WithField("tool_id", id).Debug("shgat: tool inserted")
	return nil
}

// InsertCapability adds a new capability composed of tools and/or other
// capabilities (spec 6.1). Members must already exist; the resulting
// hierarchy must remain acyclic or the insertion is rolled back entirely
// (spec invariant 2).
func (e *Engine) InsertCapability(id string, intrinsic []float64, members []Member, successRate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateNewCapability(id, intrinsic, members, successRate); err != nil {
		return err
	}

	e.graph.insertCapability(id, intrinsic, members, successRate)
	if err := e.graph.rebuildHierarchy(); err != nil {
		e.graph.removeLastCapability()
		e.log.WithField("capability_id", id).WithError(err).Warn("shgat: capability insertion rejected, hierarchy cycle")
		return err
	}
	e.ensureLevelParams()
	e.log.WithFields(logrus.Fields{"capability_id": id, "level": e.graph.levelOf[id]}).Debug("shgat: capability inserted")
	return nil
}

func (e *Engine) validateNewCapability(id string, intrinsic []float64, members []Member, successRate float64) error {
	if len(intrinsic) != e.params.EmbeddingDim {
		return &DimensionMismatchError{Context: "capability intrinsic embedding", Expected: e.params.EmbeddingDim, Got: len(intrinsic)}
	}
	if e.graph.hasTool(id) || e.graph.hasCapability(id) {
		return ErrDuplicateID
	}
	if successRate < 0 || successRate > 1 {
		return ErrInvalidSuccessRate
	}
	for _, m := range members {
		switch m.Kind {
		case MemberTool:
			if !e.graph.hasTool(m.ID) {
				return fmt.Errorf("%w: tool %q", ErrUnknownMember, m.ID)
			}
		case MemberCapability:
			if !e.graph.hasCapability(m.ID) {
				return fmt.Errorf("%w: capability %q", ErrUnknownMember, m.ID)
			}
		}
	}
	return nil
}

// UpdateSuccessRate overwrites a capability's observed success rate,
// affecting only the scorer's reliability multiplier (spec 6.1, 4.5); it
// never touches the hierarchy or learnable parameters.
func (e *Engine) UpdateSuccessRate(capabilityID string, successRate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if successRate < 0 || successRate > 1 {
		return ErrInvalidSuccessRate
	}
	c, ok := e.graph.capability(capabilityID)
	if !ok {
		return fmt.Errorf("%w: capability %q", ErrUnknownMember, capabilityID)
	}
	c.SuccessRate = successRate
	return nil
}

// Score ranks every capability (optionally restricted to targetLevel) by
// relevance to intentEmbedding (spec 4.5, 6.1).
func (e *Engine) Score(intentEmbedding []float64, targetLevel *int) ([]ScoredCapability, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	results, _, err := e.score(intentEmbedding, targetLevel)
	return results, err
}

// TrainOnExample runs one hand-derived backprop step (spec 4.6) and updates
// the prioritized replay buffer. Unknown target capabilities are skipped
// (logged at debug level) rather than treated as an error, since an outcome
// event may reference a capability retired after the event occurred.
func (e *Engine) TrainOnExample(ex TrainingExample) (*TrainResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.graph.capability(ex.CapabilityID); !ok {
		e.log.WithField("capability_id", ex.CapabilityID).Debug("shgat: training example skipped, unknown capability")
		return nil, nil
	}

	grad, loss, fusedProb, err := trainStep(e.params, e.graph, ex)
	if err != nil {
		return nil, err
	}
	if err := grad.allFinite(); err != nil {
		e.log.WithField("example_id", ex.ID).WithError(err).Warn("shgat: training step aborted, non-finite gradient")
		return nil, err
	}

	applyGradients(e.params, grad, e.cfg.LearningRate, e.cfg.L2Lambda, grad.batch)
	e.replay.Add(ex, math.Abs(fusedProb-ex.Label))

	return &TrainResult{Loss: loss, Score: fusedProb, GradientNorms: grad.norms()}, nil
}

// ReplaySample draws one prioritized example from the replay buffer and
// trains on it, updating its priority to |p-y| afterward (spec 4.6).
func (e *Engine) ReplaySample() (*TrainResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ex, idx, ok := e.replay.Sample(e.rng)
	if !ok {
		return nil, ErrEmptyInput
	}
	if _, ok := e.graph.capability(ex.CapabilityID); !ok {
		return nil, nil
	}
	grad, loss, fusedProb, err := trainStep(e.params, e.graph, ex)
	if err != nil {
		return nil, err
	}
	if err := grad.allFinite(); err != nil {
		return nil, err
	}
	applyGradients(e.params, grad, e.cfg.LearningRate, e.cfg.L2Lambda, grad.batch)
	e.replay.UpdatePriority(idx, fusedProb, ex.Label)

	return &TrainResult{Loss: loss, Score: fusedProb, GradientNorms: grad.norms()}, nil
}

// ExportParams serializes the current parameters to the binary layout of
// spec 6.2.
func (e *Engine) ExportParams() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return exportParams(e.params)
}

// ImportParams atomically replaces the engine's parameters (spec 6.1, 6.3's
// host-side atomic swap), rejecting any blob whose dimensions don't match
// this engine's fixed configuration.
func (e *Engine) ImportParams(blob []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := importParams(blob)
	if err != nil {
		return err
	}
	if p.EmbeddingDim != e.params.EmbeddingDim {
		return &DimensionMismatchError{Context: "imported embedding_dim", Expected: e.params.EmbeddingDim, Got: p.EmbeddingDim}
	}
	if p.HiddenDim != e.params.HiddenDim || p.NumHeads != e.params.NumHeads || p.HeadDim != e.params.HeadDim {
		return &DimensionMismatchError{Context: "imported hidden_dim/num_heads/head_dim", Expected: e.params.HiddenDim, Got: p.HiddenDim}
	}
	e.params = p
	e.log.Info("shgat: parameters imported")
	return nil
}

// ensureLevelParams lazily initializes LevelParams for every level now
// present in the graph and releases any that vanished (spec invariant 4).
func (e *Engine) ensureLevelParams() {
	present := make(map[int]bool, len(e.graph.byLevel))
	for level := range e.graph.byLevel {
		present[level] = true
		e.params.ensureLevel(e.rng, level)
	}
	e.params.releaseVanishedLevels(present)
}

// AdaptiveHeadsForCurrentGraph evaluates the package-level adaptive
// head-count rule (spec 4.3, SPEC_FULL.md C.1) against the engine's current
// graph size, for callers that want to preview what a fresh engine would
// choose without constructing one.
func (e *Engine) AdaptiveHeadsForCurrentGraph() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return GetAdaptiveHeads(len(e.graph.tools), len(e.graph.capabilities), e.graph.maxLevel)
}

// CountParameters returns the total number of learnable scalars currently
// allocated across every level's parameters plus the scoring head.
func (e *Engine) CountParameters() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.countParameters()
}
