package ingest

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutcomeEvent(t *testing.T) {
	body := `{"intent_embedding":[0.1,0.2],"target_capability_id":"alpha","outcome":true,"event_id":"ev-1"}`
	req := httptest.NewRequest(http.MethodPost, "/outcome", bytes.NewBufferString(body))

	ev, err := ParseOutcomeEvent(req)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, ev.IntentEmbedding)
	assert.Equal(t, "alpha", ev.TargetCapabilityID)
	assert.True(t, ev.Outcome)
	assert.Equal(t, "ev-1", ev.EventID)
}

func TestParseOutcomeEventRejectsMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/outcome", bytes.NewBufferString(`{"outcome":true}`))
	_, err := ParseOutcomeEvent(req)
	require.Error(t, err)
}

func TestToTrainingExampleMapsOutcomeToLabel(t *testing.T) {
	success := ToTrainingExample(&OutcomeEvent{IntentEmbedding: []float64{1}, TargetCapabilityID: "a", Outcome: true, EventID: "ev-1"})
	assert.Equal(t, 1.0, success.Label)
	assert.Equal(t, "ev-1", success.ID)

	failure := ToTrainingExample(&OutcomeEvent{IntentEmbedding: []float64{1}, TargetCapabilityID: "a", Outcome: false})
	assert.Equal(t, 0.0, failure.Label)
	assert.NotEmpty(t, failure.ID)
}
