package voice

import (
	"context"
	"homehub/internal/domain/command"
	"homehub/internal/metrics"
	"homehub/internal/ports"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Mode int

const (
	Idle Mode = iota
	Armed
	Locked
)

func (m Mode) String() string {
	switch m {
	case Armed:
		return "armed"
	case Locked:
		return "locked"
	default:
		return "idle"
	}
}

// Session is a point-in-time view of a controller's state.
type Session struct {
	Mode       Mode
	ArmedSince time.Time
	LockUntil  time.Time
}

const acknowledgement = "Yes?"

// Controller is the wake-word state machine for one recognition stream.
// Events must be fed from a single goroutine; timers may fire concurrently.
type Controller struct {
	cfg      Config
	clock    Clock
	gate     *Gate
	parser   *command.Parser
	exec     ports.CommandPort
	synth    ports.Synthesizer
	onChange func(Session)
	log      zerolog.Logger

	mu      sync.Mutex
	session Session
	epoch   uint64
	timer   Timer
	closed  bool
}

// effect is what a transition asks for once every lock is released.
type effect struct {
	changed bool
	session Session
	ack     bool
	execute string
}

func NewController(cfg Config, clock Clock, gate *Gate, parser *command.Parser, exec ports.CommandPort, synth ports.Synthesizer, onChange func(Session), log zerolog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		clock:    clock,
		gate:     gate,
		parser:   parser,
		exec:     exec,
		synth:    synth,
		onChange: onChange,
		log:      log,
	}
}

// Session returns the current state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Handle processes one recognition event. Nothing happens while the system
// is speaking; otherwise the transition is decided under the gate so that
// synthesis cannot begin between the check and the transition.
func (c *Controller) Handle(ctx context.Context, ev ports.RecognitionEvent) {
	var eff effect
	if !c.gate.WhileSilent(func() { eff = c.decide(ev) }) {
		c.log.Debug().Str("text", ev.Text).Msg("ignored while speaking")
		return
	}
	c.run(ctx, eff)
}

// Close cancels pending timers. Late timer callbacks become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.epoch++
	c.stopTimer()
	c.session = Session{Mode: Idle}
}

func (c *Controller) decide(ev ports.RecognitionEvent) effect {
	text := command.Normalize(ev.Text)
	if text == "" {
		return effect{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return effect{}
	}

	woke, trailing := c.splitWake(text)
	meaningful := len(trailing) > c.cfg.MinCommandLength
	// An interim result only executes when it already parses completely;
	// otherwise wait for the final result of the same utterance.
	ready := func() bool { return ev.IsFinal || c.fastPath(trailing) }

	switch c.session.Mode {
	case Idle:
		if !woke {
			return effect{}
		}
		if meaningful {
			if !ready() {
				return effect{}
			}
			return c.lock(trailing)
		}
		eff := c.arm()
		eff.ack = true
		return eff

	case Armed:
		if woke {
			if meaningful && ready() {
				return c.lock(trailing)
			}
			return effect{}
		}
		if ev.IsFinal {
			return c.lock(text)
		}
	}
	return effect{}
}

// splitWake finds the last wake word and returns the text after it.
func (c *Controller) splitWake(text string) (bool, string) {
	words := strings.Fields(text)
	for i := len(words) - 1; i >= 0; i-- {
		for _, w := range c.cfg.WakeWords {
			if words[i] == w {
				return true, strings.Join(words[i+1:], " ")
			}
		}
	}
	return false, ""
}

func (c *Controller) fastPath(text string) bool {
	if text == "" || c.parser == nil {
		return false
	}
	_, ok := c.parser.Parse(text)
	return ok
}

func (c *Controller) arm() effect {
	now := c.clock.Now()
	c.session = Session{Mode: Armed, ArmedSince: now}
	c.schedule(c.cfg.ArmTimeout)
	return effect{changed: true, session: c.session}
}

func (c *Controller) lock(utterance string) effect {
	now := c.clock.Now()
	c.session = Session{Mode: Locked, LockUntil: now.Add(c.cfg.LockHold)}
	c.schedule(c.cfg.LockHold)
	return effect{changed: true, session: c.session, execute: utterance}
}

func (c *Controller) schedule(d time.Duration) {
	c.epoch++
	c.stopTimer()
	epoch := c.epoch
	c.timer = c.clock.AfterFunc(d, func() { c.expire(epoch) })
}

func (c *Controller) expire(epoch uint64) {
	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	from := c.session.Mode
	c.session = Session{Mode: Idle}
	c.timer = nil
	session := c.session
	c.mu.Unlock()

	if from == Armed {
		c.log.Debug().Msg("arming timed out")
	}
	c.notify(session)
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) notify(s Session) {
	metrics.SessionTransitions.WithLabelValues(s.Mode.String()).Inc()
	if c.onChange != nil {
		c.onChange(s)
	}
}

func (c *Controller) run(ctx context.Context, eff effect) {
	if eff.changed {
		c.notify(eff.session)
	}
	if eff.ack {
		c.speak(ctx, acknowledgement)
	}
	if eff.execute == "" {
		return
	}
	c.log.Info().Str("command", eff.execute).Msg("executing voice command")
	outcome := c.exec.Execute(ctx, eff.execute)
	if outcome.Err != nil {
		c.log.Warn().Err(outcome.Err).Str("command", eff.execute).Msg("voice command failed")
	}
	if outcome.ResponseText != "" {
		c.speak(ctx, outcome.ResponseText)
	}
}

func (c *Controller) speak(ctx context.Context, text string) {
	if c.synth == nil {
		return
	}
	if err := c.synth.Speak(ctx, text); err != nil {
		c.log.Warn().Err(err).Msg("speak failed")
	}
}
