package api

import (
	"context"
	"io"
)

// Result keeps a transcription result
type Result struct {
	Text string `json:"text"`
	// DurationSeconds is reported by the service, 0 if not available
	DurationSeconds float64 `json:"duration"`
}

// Transcriber converts recorded audio to text
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, fileName string) (*Result, error)
}
