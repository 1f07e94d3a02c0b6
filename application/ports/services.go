package ports

import (
	"context"
	"io"
)

// AIService generates text for AI-derived nodes (summaries, key points)
type AIService interface {
	// Complete returns a free-text completion for the prompt, with the
	// given source content as grounding context.
	Complete(ctx context.Context, prompt, content string) (string, error)

	// CompleteJSON asks for a completion constrained to JSON and decodes
	// it into v. A response that is not valid JSON is an error.
	CompleteJSON(ctx context.Context, prompt, content string, v interface{}) error
}

// ObjectStorage stores uploaded binary assets (images, PDFs) and returns
// a URL the frontend can reference from node data.
type ObjectStorage interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// TranscriptService fetches the transcript for a video id
type TranscriptService interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}
