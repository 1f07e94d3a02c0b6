package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	pkgerrors "inkboard-backend/pkg/errors"
)

// TranscriptClient fetches video transcripts from a transcript proxy
// service. The proxy returns the caption segments as JSON.
type TranscriptClient struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// NewTranscriptClient creates a transcript fetcher
func NewTranscriptClient(endpoint string, logger *zap.Logger) ports.TranscriptService {
	return &TranscriptClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type transcriptResponse struct {
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

// Fetch returns the full transcript text for a video id
func (c *TranscriptClient) Fetch(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", pkgerrors.NewValidationError("video id is required")
	}

	u := fmt.Sprintf("%s/transcript?video_id=%s", c.endpoint, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.NewExternalError("transcript request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", pkgerrors.NewNotFoundError("transcript")
	}
	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.NewExternalError(
			fmt.Sprintf("transcript service returned status %d", resp.StatusCode), nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", pkgerrors.NewExternalError("transcript response read failed", err)
	}

	var parsed transcriptResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", pkgerrors.NewExternalError("transcript response is malformed", err)
	}
	if len(parsed.Segments) == 0 {
		return "", pkgerrors.NewNotFoundError("transcript")
	}

	parts := make([]string, 0, len(parsed.Segments))
	for _, segment := range parsed.Segments {
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
