package voice

import (
	"context"
	"errors"
	"homehub/internal/domain/model"
	"homehub/internal/ports"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	events chan ports.RecognitionEvent
	once   sync.Once
	mu     sync.Mutex
	err    error
	closed bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan ports.RecognitionEvent, 8)}
}

func (s *fakeStream) Events() <-chan ports.RecognitionEvent { return s.events }

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) end(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.events)
	})
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.end(nil)
	return nil
}

func (s *fakeStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type openResult struct {
	stream *fakeStream
	err    error
}

// scriptedSource hands out whatever the test pushes, one result per Open.
type scriptedSource struct {
	opens chan openResult
}

func (s *scriptedSource) Open(ctx context.Context) (ports.RecognitionStream, error) {
	select {
	case r := <-s.opens:
		if r.err != nil {
			return nil, r.err
		}
		return r.stream, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type loopFixture struct {
	source *scriptedSource
	exec   *MockCommand
	events *recordingEvents
	loop   *Loop
	done   chan error
	cancel context.CancelFunc
}

func newLoopFixture(t *testing.T) *loopFixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RestartDelay = time.Millisecond
	cfg.CollisionBackoff = 5 * time.Millisecond

	f := &loopFixture{
		source: &scriptedSource{opens: make(chan openResult)},
		exec:   new(MockCommand),
		events: &recordingEvents{},
		done:   make(chan error, 1),
	}
	clock := RealClock()
	gate := NewGate(clock, 0, time.Minute)
	newController := func() *Controller {
		return NewController(cfg, clock, gate, nil, f.exec, nil, nil, zerolog.Nop())
	}
	f.loop = NewLoop(f.source, newController, f.events, clock, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { f.done <- f.loop.Run(ctx) }()
	t.Cleanup(cancel)
	return f
}

// offer blocks until the loop calls Open, or fails after a timeout.
func (f *loopFixture) offer(t *testing.T, r openResult) {
	t.Helper()
	select {
	case f.source.opens <- r:
	case <-time.After(time.Second):
		t.Fatal("loop did not open a stream")
	}
}

func (f *loopFixture) expectNoOpen(t *testing.T) {
	t.Helper()
	select {
	case f.source.opens <- openResult{stream: newFakeStream()}:
		t.Fatal("loop opened a stream while disabled")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoop_DisabledUntilEnabled(t *testing.T) {
	f := newLoopFixture(t)
	f.expectNoOpen(t)

	f.loop.Enable()
	f.offer(t, openResult{stream: newFakeStream()})
}

func TestLoop_RestartsAfterStreamEnd(t *testing.T) {
	f := newLoopFixture(t)
	f.exec.On("Execute", mock.Anything, "turn on the light").Return(model.Outcome{Matched: true}).Once()
	f.loop.Enable()

	first := newFakeStream()
	f.offer(t, openResult{stream: first})
	first.events <- ports.RecognitionEvent{Text: "jerry turn on the light", IsFinal: true}
	first.end(nil)

	second := newFakeStream()
	f.offer(t, openResult{stream: second})
	second.end(ports.ErrRecognitionTransient)

	f.offer(t, openResult{stream: newFakeStream()})
	f.exec.AssertExpectations(t)
	assert.Equal(t, []bool{true, false, true, false}, f.events.Listening()[:4])
}

func TestLoop_FreshSessionPerStream(t *testing.T) {
	f := newLoopFixture(t)
	f.exec.On("Execute", mock.Anything, mock.Anything).Return(model.Outcome{Matched: true})
	f.loop.Enable()

	first := newFakeStream()
	f.offer(t, openResult{stream: first})
	first.events <- ports.RecognitionEvent{Text: "jerry turn on the tv", IsFinal: true}
	first.end(nil)

	// The first stream's session was locked; the new one starts idle.
	second := newFakeStream()
	f.offer(t, openResult{stream: second})
	second.events <- ports.RecognitionEvent{Text: "jerry turn off the tv", IsFinal: true}
	second.end(nil)

	f.offer(t, openResult{stream: newFakeStream()})
	f.exec.AssertNumberOfCalls(t, "Execute", 2)
}

func TestLoop_PermissionDeniedDisables(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Enable()

	stream := newFakeStream()
	f.offer(t, openResult{stream: stream})
	stream.end(ports.ErrPermissionDenied)

	require.Eventually(t, func() bool { return !f.loop.Enabled() }, time.Second, time.Millisecond)
	f.expectNoOpen(t)

	f.loop.Enable()
	f.offer(t, openResult{stream: newFakeStream()})
}

func TestLoop_PermissionDeniedOnOpen(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Enable()

	f.offer(t, openResult{err: ports.ErrPermissionDenied})
	require.Eventually(t, func() bool { return !f.loop.Enabled() }, time.Second, time.Millisecond)
	f.expectNoOpen(t)
}

func TestLoop_RetriesOpenFailure(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Enable()

	f.offer(t, openResult{err: errors.New("recognition already started")})
	f.offer(t, openResult{stream: newFakeStream()})
	assert.True(t, f.loop.Enabled())
}

func TestLoop_DisableClosesStream(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Enable()

	stream := newFakeStream()
	f.offer(t, openResult{stream: stream})
	require.Eventually(t, func() bool { return len(f.events.Listening()) == 1 }, time.Second, time.Millisecond)

	f.loop.Disable()
	assert.True(t, stream.IsClosed())
	f.expectNoOpen(t)
}

func TestLoop_SourceClosed(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Enable()

	f.offer(t, openResult{err: ports.ErrSourceClosed})
	select {
	case err := <-f.done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoop_ContextCancel(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Enable()

	stream := newFakeStream()
	f.offer(t, openResult{stream: stream})
	f.cancel()

	select {
	case err := <-f.done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.True(t, stream.IsClosed())
}
