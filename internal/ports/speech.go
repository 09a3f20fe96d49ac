package ports

import (
	"context"
	"errors"
)

var (
	// ErrPermissionDenied means the user refused microphone access.
	ErrPermissionDenied = errors.New("recognition permission denied")
	// ErrRecognitionTransient covers no-speech timeouts and similar hiccups.
	ErrRecognitionTransient = errors.New("transient recognition error")
	// ErrSourceClosed means the recognition source is gone for good.
	ErrSourceClosed = errors.New("recognition source closed")
)

// RecognitionEvent is one transcript result from the recognizer.
type RecognitionEvent struct {
	Text    string
	IsFinal bool
}

// RecognitionStream is a single recognizer run. Events is closed when the
// stream ends; Err then reports why (nil for a normal end).
type RecognitionStream interface {
	Events() <-chan RecognitionEvent
	Err() error
	Close() error
}

// RecognitionSource opens fresh recognition streams.
type RecognitionSource interface {
	Open(ctx context.Context) (RecognitionStream, error)
}

// Synthesizer speaks text back to the user.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}
