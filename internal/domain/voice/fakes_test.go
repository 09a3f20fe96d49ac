package voice

import (
	"context"
	"homehub/internal/domain/model"
	"homehub/internal/ports"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	pending := !t.done
	t.done = true
	return pending
}

// Advance moves time forward and runs due callbacks outside the clock lock.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && !t.at.After(c.now) {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type MockCommand struct {
	mock.Mock
}

func (m *MockCommand) Execute(ctx context.Context, utterance string) model.Outcome {
	args := m.Called(ctx, utterance)
	return args.Get(0).(model.Outcome)
}

type MockInterpreter struct {
	mock.Mock
}

func (m *MockInterpreter) Interpret(ctx context.Context, text string) (*ports.Interpretation, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Interpretation), args.Error(1)
}

type recordingSynth struct {
	mu     sync.Mutex
	spoken []string
}

func (s *recordingSynth) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *recordingSynth) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type recordingEvents struct {
	mu        sync.Mutex
	modes     []string
	listening []bool
}

func (e *recordingEvents) SessionChanged(mode string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modes = append(e.modes, mode)
}

func (e *recordingEvents) ListeningChanged(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listening = append(e.listening, active)
}

func (e *recordingEvents) Listening() []bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]bool(nil), e.listening...)
}
