// Package voice turns recorded clips into text and plays reply audio.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/medspa-booking-assistant/internal/api"
	"github.com/wolfman30/medspa-booking-assistant/pkg/logging"
)

var (
	// ErrEmptyTranscript means the backend accepted the clip but heard nothing.
	ErrEmptyTranscript = errors.New("voice: empty transcript")
	// ErrTranscriptionFailed is a hard failure reported by the backend.
	ErrTranscriptionFailed = errors.New("voice: transcription failed")
)

// FailureError carries the backend's reason for a failed transcription.
type FailureError struct {
	Detail string
}

func (e *FailureError) Error() string {
	if e.Detail == "" {
		return ErrTranscriptionFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrTranscriptionFailed, e.Detail)
}

func (e *FailureError) Unwrap() error { return ErrTranscriptionFailed }

// TranscribeAPI is the subset of the backend client used for speech-to-text.
type TranscribeAPI interface {
	Transcribe(ctx context.Context, audio []byte, filename, contentType string) (*api.TranscribeResponse, error)
}

// Transcriber sends one clip to the backend and returns the recognized text.
type Transcriber struct {
	api    TranscribeAPI
	logger *logging.Logger
}

// NewTranscriber creates a transcriber over the backend client.
func NewTranscriber(client TranscribeAPI, logger *logging.Logger) *Transcriber {
	if client == nil {
		panic("voice: transcribe client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Transcriber{api: client, logger: logger}
}

// Transcribe returns the trimmed transcript. A nominally successful call with
// no text yields ErrEmptyTranscript; a backend refusal yields a *FailureError.
// Transport errors are returned wrapped and match neither sentinel.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	resp, err := t.api.Transcribe(ctx, audio, filenameFor(contentType), contentType)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
			t.logger.Warn("voice: transcription rejected", "status", apiErr.StatusCode, "detail", apiErr.Detail)
			return "", &FailureError{Detail: apiErr.Detail}
		}
		return "", fmt.Errorf("voice: transcribe: %w", err)
	}

	text := strings.TrimSpace(resp.Recognized())
	if text != "" {
		return text, nil
	}
	if resp.OK {
		return "", ErrEmptyTranscript
	}
	t.logger.Warn("voice: transcription failed", "detail", resp.Error)
	return "", &FailureError{Detail: resp.Error}
}

func filenameFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "ogg"):
		return "speech.ogg"
	case strings.Contains(contentType, "wav"):
		return "speech.wav"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return "speech.mp3"
	default:
		return "speech.webm"
	}
}
