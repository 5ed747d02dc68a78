//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/auth"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/config"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/ingest"
)

const testWebhookSecret = "test-webhook-secret"

func setupSignatureEnabledServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := newTestServer(&config.OIDCConfig{ClientID: ""}, testWebhookSecret)
	t.Cleanup(server.Close)
	return server
}

func outcomeEventBody(t *testing.T, capabilityID string) []byte {
	t.Helper()
	body, err := json.Marshal(ingest.OutcomeEvent{
		IntentEmbedding:    sampleEmbedding(0.1),
		TargetCapabilityID: capabilityID,
		Outcome:            true,
	})
	if err != nil {
		t.Fatalf("failed to marshal outcome event: %v", err)
	}
	return body
}

// TestSignatureVerification validates the HMAC helpers the middleware uses.
func TestSignatureVerification(t *testing.T) {
	body := []byte(`{"target_capability_id":"x","outcome":true,"intent_embedding":[0.1,0.2]}`)

	t.Run("compute and validate signature", func(t *testing.T) {
		signature := auth.ComputeSignature(testWebhookSecret, body)
		if !strings.HasPrefix(signature, "sha256=") {
			t.Errorf("expected signature to start with sha256=, got: %s", signature)
		}
		if err := auth.ValidateSignature(testWebhookSecret, signature, body); err != nil {
			t.Errorf("expected valid signature, got error: %v", err)
		}
	})

	t.Run("reject invalid signature", func(t *testing.T) {
		wrongSignature := auth.ComputeSignature("wrong-secret", body)
		if err := auth.ValidateSignature(testWebhookSecret, wrongSignature, body); err == nil {
			t.Error("expected error for invalid signature")
		}
	})
}

// TestOutcomeWebhookRequiresSignature tests that /outcomes rejects requests
// without a valid X-Outcome-Signature-256 header once a secret is configured.
func TestOutcomeWebhookRequiresSignature(t *testing.T) {
	server := setupSignatureEnabledServer(t)
	body := outcomeEventBody(t, "unknown-capability")

	resp, err := http.Post(server.URL+"/outcomes", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to post /outcomes: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for missing signature, got %d", resp.StatusCode)
	}
}

// TestOutcomeWebhookAcceptsValidSignature tests that a correctly signed
// outcome event is accepted and trains (or reports skipped for an unknown
// capability) rather than failing on signature grounds.
func TestOutcomeWebhookAcceptsValidSignature(t *testing.T) {
	server := setupSignatureEnabledServer(t)
	body := outcomeEventBody(t, "unknown-capability")
	signature := auth.ComputeSignature(testWebhookSecret, body)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/outcomes", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Outcome-Signature-256", signature)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to post /outcomes: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 for validly signed outcome event, got %d", resp.StatusCode)
	}
}
