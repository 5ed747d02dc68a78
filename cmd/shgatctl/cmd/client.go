package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iamthegreatdestroyer/shgat-engine/pkg/models"
)

// client is a thin HTTP wrapper around a shgat-engine server, mirroring the
// teacher's preference for a small hand-rolled client over a generated one.
type client struct {
	baseURL string
	http    *http.Client
	token   string
}

func newClient(baseURL, token string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
}

func (c *client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("shgatctl: encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("shgatctl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shgatctl: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("shgatctl: %s %s: %s (status %d)", method, path, errResp.Error, resp.StatusCode)
		}
		return fmt.Errorf("shgatctl: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) insertTool(ctx context.Context, req models.ToolRequest) error {
	return c.do(ctx, http.MethodPost, "/tools", req, nil)
}

func (c *client) insertCapability(ctx context.Context, req models.CapabilityRequest) error {
	return c.do(ctx, http.MethodPost, "/capabilities", req, nil)
}

func (c *client) score(ctx context.Context, req models.ScoreRequest) (*models.ScoreResponse, error) {
	var resp models.ScoreResponse
	if err := c.do(ctx, http.MethodPost, "/score", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *client) train(ctx context.Context, req models.TrainRequest) (*models.TrainResponse, error) {
	var resp models.TrainResponse
	if err := c.do(ctx, http.MethodPost, "/train", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *client) exportParams(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/params", nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shgatctl: export params: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("shgatctl: export params: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *client) importParams(ctx context.Context, blob []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/params", bytes.NewReader(blob))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shgatctl: import params: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("shgatctl: import params: status %d", resp.StatusCode)
	}
	return nil
}
