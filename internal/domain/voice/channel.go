package voice

import (
	"context"
	"homehub/internal/domain/command"
	"homehub/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service builds voice channels that share one dispatcher.
type Service struct {
	cfg        Config
	clock      Clock
	parser     *command.Parser
	dispatcher ports.CommandPort
	log        zerolog.Logger
}

func NewService(cfg Config, clock Clock, parser *command.Parser, dispatcher ports.CommandPort, log zerolog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		clock:      clock,
		parser:     parser,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "voice").Logger(),
	}
}

// Channel is one microphone: its listening loop and its echo gate.
type Channel struct {
	*Loop
	gate *Gate
}

func (s *Service) NewChannel(source ports.RecognitionSource, synth ports.Synthesizer, events ports.VoiceEvents) ports.VoiceChannel {
	log := s.log.With().Str("channel", uuid.NewString()).Logger()
	gate := NewGate(s.clock, s.cfg.EchoSettle, s.cfg.MaxSpeaking)
	var onChange func(Session)
	if events != nil {
		onChange = func(sess Session) { events.SessionChanged(sess.Mode.String()) }
	}
	newController := func() *Controller {
		return NewController(s.cfg, s.clock, gate, s.parser, s.dispatcher, synth, onChange, log)
	}
	return &Channel{
		Loop: NewLoop(source, newController, events, s.clock, s.cfg, log),
		gate: gate,
	}
}

func (c *Channel) Run(ctx context.Context) error {
	defer c.gate.Close()
	return c.Loop.Run(ctx)
}

func (c *Channel) OnSynthesisStart() {
	c.gate.OnSynthesisStart()
}

func (c *Channel) OnSynthesisEnd() {
	c.gate.OnSynthesisEnd()
}

func (c *Channel) Gate() *Gate {
	return c.gate
}
