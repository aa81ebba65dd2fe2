package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HuggingFaceProvider talks to a hosted inference endpoint running
// text-generation-inference with the OpenAI-compatible chat route. The study
// uses it for the ablated model, which is served from a dedicated endpoint.
type HuggingFaceProvider struct {
	Endpoint string
	Token    string
	Model    string
	Client   *http.Client
}

func NewHuggingFaceProvider(endpoint, token, model string) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		Endpoint: endpoint,
		Token:    token,
		Model:    model,
		Client:   &http.Client{Timeout: 120 * time.Second},
	}
}

type hfMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type hfChatReq struct {
	Model    string  `json:"model"`
	Messages []hfMsg `json:"messages"`
	Stream   bool    `json:"stream"`
}

type hfChatResp struct {
	Choices []struct {
		Message hfMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *HuggingFaceProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", fmt.Errorf("huggingface: http client is nil: %w", ErrConfig)
	}
	if strings.TrimSpace(p.Endpoint) == "" {
		return "", fmt.Errorf("huggingface: endpoint is required: %w", ErrConfig)
	}
	if strings.TrimSpace(p.Token) == "" {
		return "", fmt.Errorf("huggingface: api token is required: %w", ErrConfig)
	}

	msgs := make([]hfMsg, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, hfMsg{Role: m.Role, Content: m.Content})
	}

	// TGI ignores the model field on a dedicated endpoint but the chat route
	// requires it to be present.
	model := p.Model
	if model == "" {
		model = "tgi"
	}

	b, err := json.Marshal(hfChatReq{Model: model, Messages: msgs, Stream: false})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/chat/completions", strings.TrimRight(p.Endpoint, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("huggingface: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("huggingface: %s: %w", msg, ErrUnavailable)
	}

	var decoded hfChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("huggingface: %v: %w", err, ErrUnavailable)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", fmt.Errorf("huggingface: %s: %w", decoded.Error.Message, ErrUnavailable)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("huggingface: empty response: %w", ErrUnavailable)
	}
	return decoded.Choices[0].Message.Content, nil
}
