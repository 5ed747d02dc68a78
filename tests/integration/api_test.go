//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
)

// TestHealthEndpoint tests the /health endpoint.
func TestHealthEndpoint(t *testing.T) {
	resp, err := http.Get(getTestServerURL() + "/health")
	if err != nil {
		t.Fatalf("failed to get health endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected status healthy, got: %v", body["status"])
	}
}

// TestInsertToolAndScore inserts a tool-backed capability and checks it
// comes back from /score.
func TestInsertToolAndScore(t *testing.T) {
	toolReq := models.ToolRequest{ID: "api-test-tool", Embedding: sampleEmbedding(0.1)}
	postJSON(t, "/tools", toolReq, http.StatusCreated)

	capReq := models.CapabilityRequest{
		ID:          "api-test-capability",
		Embedding:   sampleEmbedding(0.2),
		Members:     []models.MemberRef{{Kind: "tool", ID: "api-test-tool"}},
		SuccessRate: 0.7,
	}
	postJSON(t, "/capabilities", capReq, http.StatusCreated)

	scoreReq := models.ScoreRequest{IntentEmbedding: sampleEmbedding(0.15)}
	var scoreResp models.ScoreResponse
	postJSONInto(t, "/score", scoreReq, http.StatusOK, &scoreResp)

	found := false
	for _, item := range scoreResp.Results {
		if item.ID == "api-test-capability" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected api-test-capability in score results, got: %+v", scoreResp.Results)
	}
}

// TestInsertCapabilityRejectsUnknownMember checks the engine's validation
// surfaces as a 400 through the HTTP layer.
func TestInsertCapabilityRejectsUnknownMember(t *testing.T) {
	capReq := models.CapabilityRequest{
		ID:        "orphan-capability",
		Embedding: sampleEmbedding(0.3),
		Members:   []models.MemberRef{{Kind: "tool", ID: "does-not-exist"}},
	}
	postJSON(t, "/capabilities", capReq, http.StatusBadRequest)
}

// TestExportImportParamsRoundTrip checks the binary parameter blob survives
// an export/import cycle through the HTTP layer.
func TestExportImportParamsRoundTrip(t *testing.T) {
	resp, err := http.Get(getTestServerURL() + "/params")
	if err != nil {
		t.Fatalf("failed to export params: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	blob := make([]byte, 0)
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		blob = append(blob, buf[:n]...)
		if err != nil {
			break
		}
	}

	importResp, err := http.Post(getTestServerURL()+"/params", "application/octet-stream", bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("failed to import params: %v", err)
	}
	defer importResp.Body.Close()
	if importResp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200 importing params, got %d", importResp.StatusCode)
	}
}

func postJSON(t *testing.T, path string, body interface{}, wantStatus int) {
	t.Helper()
	postJSONInto(t, path, body, wantStatus, nil)
}

func postJSONInto(t *testing.T, path string, body interface{}, wantStatus int, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	resp, err := http.Post(getTestServerURL()+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: expected status %d, got %d", path, wantStatus, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response from %s: %v", path, err)
		}
	}
}
