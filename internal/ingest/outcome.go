// Package ingest converts outcome events delivered by an upstream
// trace-ingestion component into shgat.TrainingExample values. Spec §1
// treats this conversion as external to the core engine ("an upstream
// component converts execution events into (intent, capability, outcome)
// tuples"); this package is that adapter's wire shape plus its HTTP
// delivery mechanism.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
)

// OutcomeEvent is the JSON body of a single outcome webhook delivery: the
// intent that was scored, which capability was actually invoked, and
// whether invoking it succeeded.
type OutcomeEvent struct {
	IntentEmbedding    []float64 `json:"intent_embedding"`
	TargetCapabilityID string    `json:"target_capability_id"`
	Outcome            bool      `json:"outcome"`
	EventID            string    `json:"event_id,omitempty"`
}

// ParseOutcomeEvent parses an OutcomeEvent from an HTTP request body.
func ParseOutcomeEvent(r *http.Request) (*OutcomeEvent, error) {
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("ingest: read request body: %w", err)
	}

	var ev OutcomeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("ingest: decode outcome event: %w", err)
	}
	if len(ev.IntentEmbedding) == 0 {
		return nil, fmt.Errorf("ingest: outcome event missing intent_embedding")
	}
	if ev.TargetCapabilityID == "" {
		return nil, fmt.Errorf("ingest: outcome event missing target_capability_id")
	}
	return &ev, nil
}

// ToTrainingExample converts an outcome event into a shgat.TrainingExample,
// mapping a boolean outcome to the {0,1} label the BCE loss expects. Every
// event gets a fresh example ID when it doesn't carry one of its own, so
// replay-buffer and persisted-example bookkeeping can key on it.
func ToTrainingExample(ev *OutcomeEvent) shgat.TrainingExample {
	id := ev.EventID
	if id == "" {
		id = uuid.NewString()
	}
	label := 0.0
	if ev.Outcome {
		label = 1.0
	}
	return shgat.TrainingExample{
		ID:              id,
		IntentEmbedding: ev.IntentEmbedding,
		CapabilityID:    ev.TargetCapabilityID,
		Label:           label,
	}
}
