//go:build integration
// +build integration

// Package integration provides end-to-end HTTP tests for the shgat-engine
// server, exercising internal/httpapi's router against a live in-process
// engine rather than mocking it.
package integration

import (
	"net/http/httptest"
	"os"
	"testing"

	"github.com/iamthegreatdestroyer/shgat-engine/internal/auth"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/config"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/httpapi"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/shgat"
	"github.com/iamthegreatdestroyer/shgat-engine/internal/store"
)

// testServer is the shared test server for all integration tests.
var testServer *httptest.Server

// testEngine is the shared engine backing testServer.
var testEngine *shgat.Engine

const testEmbeddingDim = 8

// TestMain sets up and tears down the test server for all integration tests.
func TestMain(m *testing.M) {
	testServer = newTestServer(&config.OIDCConfig{ClientID: ""}, "")
	defer testServer.Close()
	os.Exit(m.Run())
}

// newTestServer builds a fresh engine + httptest.Server pair, letting
// individual test files opt into auth/signature configurations the shared
// TestMain server doesn't use.
func newTestServer(oidcCfg *config.OIDCConfig, webhookSecret string) *httptest.Server {
	testEngine = shgat.NewEngine(shgat.Config{
		EmbeddingDim: testEmbeddingDim,
		HeadDim:      4,
		Seed:         1,
		LearningRate: 0.05,
		L2Lambda:     1e-4,
	})

	handler := httpapi.NewHandler(testEngine, store.NewMemoryStore(), "test-engine", nil)
	authMiddleware := auth.NewMiddleware(oidcCfg)
	signatureMiddleware := auth.NewSignatureMiddleware(webhookSecret)
	router := httpapi.NewRouter(handler, authMiddleware, signatureMiddleware)

	return httptest.NewServer(router)
}

func getTestServerURL() string {
	return testServer.URL
}

func sampleEmbedding(seed float64) []float64 {
	out := make([]float64, testEmbeddingDim)
	for i := range out {
		out[i] = seed + float64(i)*0.01
	}
	return out
}
