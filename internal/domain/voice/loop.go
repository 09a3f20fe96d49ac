package voice

import (
	"context"
	"errors"
	"homehub/internal/ports"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Loop keeps a recognition source listening: every stream gets a fresh
// controller, and the stream is reopened when it ends while the loop is
// still enabled.
type Loop struct {
	source        ports.RecognitionSource
	newController func() *Controller
	events        ports.VoiceEvents
	clock         Clock
	restartDelay  time.Duration
	backoff       time.Duration
	log           zerolog.Logger

	mu      sync.Mutex
	enabled bool
	changed chan struct{}
	stream  ports.RecognitionStream
}

func NewLoop(source ports.RecognitionSource, newController func() *Controller, events ports.VoiceEvents, clock Clock, cfg Config, log zerolog.Logger) *Loop {
	return &Loop{
		source:        source,
		newController: newController,
		events:        events,
		clock:         clock,
		restartDelay:  cfg.RestartDelay,
		backoff:       cfg.CollisionBackoff,
		log:           log,
		changed:       make(chan struct{}),
	}
}

// Enable starts (or resumes) listening.
func (l *Loop) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enabled {
		return
	}
	l.enabled = true
	l.signal()
}

// Disable stops listening and closes the current stream.
func (l *Loop) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return
	}
	l.enabled = false
	if l.stream != nil {
		if err := l.stream.Close(); err != nil {
			l.log.Debug().Err(err).Msg("close recognition stream")
		}
	}
	l.signal()
}

func (l *Loop) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Run blocks until ctx is done or the source goes away for good.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if !l.waitEnabled(ctx) {
			return ctx.Err()
		}

		stream, err := l.source.Open(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ports.ErrSourceClosed):
				return nil
			case errors.Is(err, ports.ErrPermissionDenied):
				l.denied()
				continue
			}
			l.log.Warn().Err(err).Dur("backoff", l.backoff).Msg("could not start recognition")
			if !l.sleep(ctx, l.backoff) {
				return ctx.Err()
			}
			continue
		}

		if !l.attach(stream) {
			_ = stream.Close()
			continue
		}
		err = l.consume(ctx, stream)
		l.detach()

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ports.ErrSourceClosed):
			return nil
		case errors.Is(err, ports.ErrPermissionDenied):
			l.denied()
			continue
		case err != nil:
			l.log.Debug().Err(err).Msg("recognition stream ended")
		}
		if !l.sleep(ctx, l.restartDelay) {
			return ctx.Err()
		}
	}
}

func (l *Loop) consume(ctx context.Context, stream ports.RecognitionStream) error {
	ctrl := l.newController()
	defer ctrl.Close()

	l.listening(true)
	defer l.listening(false)

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			_ = stream.Close()
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return stream.Err()
			}
			ctrl.Handle(ctx, ev)
		}
	}
}

func (l *Loop) denied() {
	l.log.Warn().Msg("microphone permission denied, listening disabled")
	l.mu.Lock()
	l.enabled = false
	l.signal()
	l.mu.Unlock()
}

func (l *Loop) attach(stream ports.RecognitionStream) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return false
	}
	l.stream = stream
	return true
}

func (l *Loop) detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stream = nil
}

func (l *Loop) listening(active bool) {
	if l.events != nil {
		l.events.ListeningChanged(active)
	}
}

func (l *Loop) waitEnabled(ctx context.Context) bool {
	for {
		l.mu.Lock()
		enabled, changed := l.enabled, l.changed
		l.mu.Unlock()
		if enabled {
			return true
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return false
		}
	}
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	done := make(chan struct{})
	t := l.clock.AfterFunc(d, func() { close(done) })
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// signal wakes waiters; callers hold l.mu.
func (l *Loop) signal() {
	close(l.changed)
	l.changed = make(chan struct{})
}
