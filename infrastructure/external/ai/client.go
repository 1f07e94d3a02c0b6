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

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	pkgerrors "inkboard-backend/pkg/errors"
)

// Client calls an OpenAI-compatible chat completion endpoint. The
// service is an external collaborator: responses are validated before
// any caller touches the canvas with them.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient creates an AI completion client
func NewClient(endpoint, apiKey, model string, timeout time.Duration, logger *zap.Logger) ports.AIService {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete returns a free-text completion for the prompt over the given
// content.
func (c *Client) Complete(ctx context.Context, prompt, content string) (string, error) {
	return c.complete(ctx, prompt, content, nil)
}

// CompleteJSON asks for a JSON-constrained completion and decodes it
// into v. A response that is not valid JSON is rejected, never passed
// through.
func (c *Client) CompleteJSON(ctx context.Context, prompt, content string, v interface{}) error {
	text, err := c.complete(ctx, prompt, content, &respFormat{Type: "json_object"})
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return pkgerrors.NewExternalError("ai returned malformed JSON", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, prompt, content string, format *respFormat) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: content},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.NewExternalError("ai request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", pkgerrors.NewExternalError("ai response read failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ai request rejected",
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)
		return "", pkgerrors.NewExternalError(
			fmt.Sprintf("ai service returned status %d", resp.StatusCode), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", pkgerrors.NewExternalError("ai returned malformed response", err)
	}
	if parsed.Error != nil {
		return "", pkgerrors.NewExternalError("ai service error: "+parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", pkgerrors.NewExternalError("ai returned no choices", nil)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
