package ws

import (
	"context"
	"encoding/json"
	"errors"
	"homehub/internal/domain/protocol"
	"homehub/internal/ports"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const streamBuffer = 64

var errRecognitionBusy = errors.New("recognition already active")

// Voice relays a browser's speech recognition and synthesis. It is the
// recognition source, the synthesizer and the status sink of one voice
// channel.
type Voice struct {
	id      string
	conn    *Conn
	channel ports.VoiceChannel
	log     zerolog.Logger

	mu     sync.Mutex
	stream *recognitionStream
	closed bool
}

func NewVoice(conn *Conn, port ports.VoicePort, log zerolog.Logger) *Voice {
	id := uuid.NewString()
	v := &Voice{
		id:   id,
		conn: conn,
		log:  log.With().Str("voice", id).Logger(),
	}
	v.channel = port.NewChannel(v, v, v)
	return v
}

// Serve runs the listening loop until the client disconnects. Listening
// starts when the client sends "listen".
func (v *Voice) Serve(ctx context.Context) error {
	v.log.Info().Msg("voice client connected")
	defer v.log.Info().Msg("voice client disconnected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return v.channel.Run(ctx) })
	g.Go(func() error { return v.conn.KeepAlive(ctx) })
	g.Go(func() error {
		defer cancel()
		defer v.shutdown()
		return v.readLoop(ctx)
	})
	go func() {
		<-ctx.Done()
		_ = v.conn.Close()
	}()

	err := g.Wait()
	if err == nil || isClosed(err) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Open asks the browser to start recognition.
func (v *Voice) Open(ctx context.Context) (ports.RecognitionStream, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, ports.ErrSourceClosed
	}
	if v.stream != nil {
		v.mu.Unlock()
		return nil, errRecognitionBusy
	}
	s := newRecognitionStream(v.stop)
	v.stream = s
	v.mu.Unlock()

	if err := v.conn.WriteJSON(protocol.VoiceMessage{Type: protocol.VoiceStartRecognition}); err != nil {
		v.detach(s)
		return nil, ports.ErrSourceClosed
	}
	return s, nil
}

// Speak asks the browser to say text. The gate is closed right away so
// recognition results already in flight are not taken for commands.
func (v *Voice) Speak(ctx context.Context, text string) error {
	v.channel.OnSynthesisStart()
	return v.conn.WriteJSON(protocol.VoiceMessage{Type: protocol.VoiceSpeak, Text: text})
}

func (v *Voice) SessionChanged(mode string) {
	v.send(protocol.VoiceMessage{Type: protocol.VoiceSession, Mode: mode})
}

func (v *Voice) ListeningChanged(active bool) {
	v.send(protocol.VoiceMessage{Type: protocol.VoiceListening, Active: &active})
}

func (v *Voice) send(msg protocol.VoiceMessage) {
	if err := v.conn.WriteJSON(msg); err != nil {
		v.log.Debug().Err(err).Str("type", msg.Type).Msg("voice write failed")
	}
}

func (v *Voice) readLoop(ctx context.Context) error {
	for {
		frame, err := v.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var msg protocol.VoiceMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			v.send(protocol.VoiceMessage{Type: protocol.VoiceError, Error: "Invalid JSON"})
			continue
		}
		v.handle(msg)
	}
}

func (v *Voice) handle(msg protocol.VoiceMessage) {
	switch msg.Type {
	case protocol.VoiceListen:
		v.channel.Enable()
	case protocol.VoiceMute:
		v.channel.Disable()
	case protocol.VoiceTranscript:
		if s := v.current(); s != nil {
			if !s.push(ports.RecognitionEvent{Text: msg.Text, IsFinal: msg.IsFinal}) {
				v.log.Debug().Msg("recognition backlog full, result dropped")
			}
		}
	case protocol.VoiceStreamEnd:
		v.end(nil)
	case protocol.VoiceRecognitionError:
		v.log.Debug().Str("error", msg.Error).Msg("recognition error")
		if protocol.PermissionError(msg.Error) {
			v.end(ports.ErrPermissionDenied)
			v.send(protocol.VoiceMessage{Type: protocol.VoiceError, Error: "Microphone permission denied"})
		} else {
			v.end(ports.ErrRecognitionTransient)
		}
	case protocol.VoiceSynthesisStart:
		v.channel.OnSynthesisStart()
	case protocol.VoiceSynthesisEnd:
		v.channel.OnSynthesisEnd()
	default:
		v.send(protocol.VoiceMessage{Type: protocol.VoiceError, Error: "Unknown message type"})
	}
}

func (v *Voice) current() *recognitionStream {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stream
}

// end finishes the current stream with err.
func (v *Voice) end(err error) {
	v.mu.Lock()
	s := v.stream
	v.stream = nil
	v.mu.Unlock()
	if s != nil {
		s.end(err)
	}
}

// stop is the stream's Close: the hub gave up on this stream.
func (v *Voice) stop(s *recognitionStream) {
	v.mu.Lock()
	current := v.stream == s
	if current {
		v.stream = nil
	}
	closed := v.closed
	v.mu.Unlock()
	if current && !closed {
		v.send(protocol.VoiceMessage{Type: protocol.VoiceStopRecognition})
	}
}

func (v *Voice) detach(s *recognitionStream) {
	v.mu.Lock()
	if v.stream == s {
		v.stream = nil
	}
	v.mu.Unlock()
	s.end(ports.ErrSourceClosed)
}

func (v *Voice) shutdown() {
	v.mu.Lock()
	v.closed = true
	s := v.stream
	v.stream = nil
	v.mu.Unlock()
	if s != nil {
		s.end(ports.ErrSourceClosed)
	}
}

type recognitionStream struct {
	events  chan ports.RecognitionEvent
	onClose func(*recognitionStream)

	mu     sync.Mutex
	err    error
	ended  bool
	closed sync.Once
}

func newRecognitionStream(onClose func(*recognitionStream)) *recognitionStream {
	return &recognitionStream{
		events:  make(chan ports.RecognitionEvent, streamBuffer),
		onClose: onClose,
	}
}

func (s *recognitionStream) Events() <-chan ports.RecognitionEvent {
	return s.events
}

func (s *recognitionStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *recognitionStream) Close() error {
	s.closed.Do(func() { s.onClose(s) })
	s.end(nil)
	return nil
}

func (s *recognitionStream) push(ev ports.RecognitionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return true
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

func (s *recognitionStream) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.err = err
	close(s.events)
}
