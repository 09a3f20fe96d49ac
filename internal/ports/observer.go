package ports

import (
	"context"
	"errors"
	"homehub/internal/domain/model"
)

// ErrObserverClosed is returned by Send once the connection is gone.
var ErrObserverClosed = errors.New("observer closed")

// ErrMalformedMessage marks inbound wire messages that cannot be decoded.
var ErrMalformedMessage = errors.New("malformed message")

// Observer is one connected client receiving device broadcasts. It holds no
// device state of its own.
type Observer interface {
	ID() string
	// Send writes one event to the client. It may block; the hub calls it
	// from the observer's own delivery goroutine.
	Send(ctx context.Context, ev model.Event) error
	Close() error
}
