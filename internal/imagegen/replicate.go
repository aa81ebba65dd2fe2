package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrNotConfigured means the Replicate token is missing.
	ErrNotConfigured = errors.New("imagegen: replicate token not configured")

	// ErrGeneration wraps failures reported by the generation backend.
	ErrGeneration = errors.New("imagegen: generation failed")
)

// Generator produces image bytes for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ReplicateClient drives Replicate's predictions API for a fixed model.
type ReplicateClient struct {
	BaseURL string
	Token   string
	Model   string // owner/name, e.g. black-forest-labs/flux-schnell

	HTTPClient *http.Client
}

func NewReplicateClient(baseURL, token, model string) *ReplicateClient {
	return &ReplicateClient{
		BaseURL:    baseURL,
		Token:      token,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// outputURL accepts both output shapes Replicate models use: a bare URL
// string or a list of URLs.
func (p *prediction) outputURL() (string, error) {
	var one string
	if err := json.Unmarshal(p.Output, &one); err == nil && one != "" {
		return one, nil
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil && len(many) > 0 {
		return many[0], nil
	}
	return "", fmt.Errorf("%w: prediction %s has no output", ErrGeneration, p.ID)
}

func (c *ReplicateClient) do(ctx context.Context, method, url string, body io.Reader, prefer string) (*prediction, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: replicate status %d: %s", ErrGeneration, resp.StatusCode, string(b))
	}

	var p prediction
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode prediction: %v", ErrGeneration, err)
	}
	return &p, nil
}

// Generate creates a prediction, waits for it to finish, and downloads the
// resulting image.
func (c *ReplicateClient) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if c.Token == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"input": map[string]any{"prompt": prompt},
	})
	if err != nil {
		return nil, err
	}

	createURL := fmt.Sprintf("%s/v1/models/%s/predictions", c.BaseURL, c.Model)
	p, err := c.do(ctx, http.MethodPost, createURL, bytes.NewReader(payload), "wait")
	if err != nil {
		return nil, err
	}

	// Prefer: wait usually returns a terminal prediction, but fall back to
	// polling when the backend hands us an in-flight one.
	for p.Status == "starting" || p.Status == "processing" {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
		pollURL := fmt.Sprintf("%s/v1/predictions/%s", c.BaseURL, p.ID)
		p, err = c.do(ctx, http.MethodGet, pollURL, nil, "")
		if err != nil {
			return nil, err
		}
	}

	if p.Status != "succeeded" {
		return nil, fmt.Errorf("%w: prediction %s status=%s error=%v", ErrGeneration, p.ID, p.Status, p.Error)
	}

	url, err := p.outputURL()
	if err != nil {
		return nil, err
	}
	return c.download(ctx, url)
}

func (c *ReplicateClient) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download status %d", ErrGeneration, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
