package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/ingest"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/store"
	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// tracerName is the instrumentation scope reported on every span this
// package starts.
const tracerName = "github.com/iamthegreatdestroyer/shgat-engine/internal/httpapi"

// Handler wraps an engine and its persistence backend with HTTP handlers,
// generalizing the teacher's agents.Handler (registry wrapper) to a single
// engine + store pair.
type Handler struct {
	engine   *shgat.Engine
	params   store.ParamStore
	engineID string
	log      *logrus.Logger
}

// NewHandler constructs a Handler. engineID keys the ParamStore so multiple
// engines can share one backing store.
func NewHandler(engine *shgat.Engine, params store.ParamStore, engineID string, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{engine: engine, params: params, engineID: engineID, log: log}
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"parameter_count": h.engine.CountParameters(),
	})
}

// InsertTool handles POST /tools.
func (h *Handler) InsertTool(w http.ResponseWriter, r *http.Request) {
	var req models.ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.engine.InsertTool(req.ID, req.Embedding); err != nil {
		writeError(w, err.Error(), statusForEngineError(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// InsertCapability handles POST /capabilities.
func (h *Handler) InsertCapability(w http.ResponseWriter, r *http.Request) {
	var req models.CapabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	members := make([]shgat.Member, 0, len(req.Members))
	for _, m := range req.Members {
		kind := shgat.MemberTool
		if m.Kind == shgat.MemberCapability.String() {
			kind = shgat.MemberCapability
		}
		members = append(members, shgat.Member{Kind: kind, ID: m.ID})
	}
	if err := h.engine.InsertCapability(req.ID, req.Embedding, members, req.SuccessRate); err != nil {
		writeError(w, err.Error(), statusForEngineError(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// UpdateSuccessRate handles PATCH /capabilities/{id}/success-rate.
func (h *Handler) UpdateSuccessRate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.SuccessRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.engine.UpdateSuccessRate(id, req.SuccessRate); err != nil {
		writeError(w, err.Error(), statusForEngineError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Score handles POST /score.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	_, span := otel.Tracer(tracerName).Start(r.Context(), "shgat.score")
	defer span.End()

	var req models.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	results, err := h.engine.Score(req.IntentEmbedding, req.TargetLevel)
	if err != nil {
		writeError(w, err.Error(), statusForEngineError(err))
		return
	}

	items := make([]models.ScoreItem, len(results))
	for i, r := range results {
		items[i] = models.ScoreItem{
			ID:             r.ID,
			Score:          r.Score,
			PerHeadScores:  r.PerHeadScores,
			HierarchyLevel: r.HierarchyLevel,
		}
	}
	writeJSON(w, http.StatusOK, models.ScoreResponse{Results: items})
}

// Train handles POST /train.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	_, span := otel.Tracer(tracerName).Start(r.Context(), "shgat.train_on_example")
	defer span.End()

	var req models.TrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.trainOnExample(w, shgat.TrainingExample{
		ID:              req.ID,
		IntentEmbedding: req.IntentEmbedding,
		CapabilityID:    req.CapabilityID,
		Label:           req.Label,
	})
}

// Outcome handles POST /outcomes: the outcome-event webhook delivery
// mechanism spec §1 treats as external plumbing. Signature verification
// runs as middleware before this handler.
func (h *Handler) Outcome(w http.ResponseWriter, r *http.Request) {
	ev, err := ingest.ParseOutcomeEvent(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.trainOnExample(w, ingest.ToTrainingExample(ev))
}

func (h *Handler) trainOnExample(w http.ResponseWriter, ex shgat.TrainingExample) {
	result, err := h.engine.TrainOnExample(ex)
	if err != nil {
		writeError(w, err.Error(), statusForEngineError(err))
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, models.TrainResponse{Skipped: true})
		return
	}
	writeJSON(w, http.StatusOK, models.TrainResponse{
		Loss:          result.Loss,
		Score:         result.Score,
		GradientNorms: result.GradientNorms,
	})
}

// ExportParams handles GET /params: returns the raw binary blob (spec
// §6.2) and persists a copy to the configured ParamStore.
func (h *Handler) ExportParams(w http.ResponseWriter, r *http.Request) {
	blob := h.engine.ExportParams()
	if h.params != nil {
		if err := h.params.SaveParams(r.Context(), h.engineID, blob); err != nil {
			h.log.WithError(err).Warn("httpapi: failed to persist exported parameters")
		}
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob); err != nil {
		log.Printf("httpapi: error writing params blob: %v", err)
	}
}

// ImportParams handles POST /params: replaces the engine's parameters from
// a raw binary blob body.
func (h *Handler) ImportParams(w http.ResponseWriter, r *http.Request) {
	blob, err := readAll(r)
	if err != nil {
		writeError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if err := h.engine.ImportParams(blob); err != nil {
		writeError(w, err.Error(), statusForEngineError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}
