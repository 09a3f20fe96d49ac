package ws

import (
	"context"
	"encoding/json"
	"homehub/internal/domain/protocol"
	"homehub/internal/ports"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu      sync.Mutex
	calls   []string
	started chan struct{}
}

func (c *fakeChannel) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeChannel) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeChannel) Run(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	return nil
}

func (c *fakeChannel) Enable()           { c.record("enable") }
func (c *fakeChannel) Disable()          { c.record("disable") }
func (c *fakeChannel) OnSynthesisStart() { c.record("synthesis_start") }
func (c *fakeChannel) OnSynthesisEnd()   { c.record("synthesis_end") }

type fakeVoicePort struct {
	channel *fakeChannel
	voices  chan *Voice
}

func (p *fakeVoicePort) NewChannel(source ports.RecognitionSource, synth ports.Synthesizer, events ports.VoiceEvents) ports.VoiceChannel {
	p.voices <- source.(*Voice)
	return p.channel
}

func voiceServer(t *testing.T) (*httptest.Server, *fakeVoicePort) {
	t.Helper()
	port := &fakeVoicePort{
		channel: &fakeChannel{started: make(chan struct{})},
		voices:  make(chan *Voice, 1),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = NewVoice(NewConn(ws, time.Second), port, zerolog.Nop()).Serve(r.Context())
	}))
	t.Cleanup(srv.Close)
	return srv, port
}

func connectVoice(t *testing.T) (*websocket.Conn, *Voice, *fakeChannel) {
	t.Helper()
	srv, port := voiceServer(t)
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	var v *Voice
	select {
	case v = <-port.voices:
	case <-time.After(2 * time.Second):
		t.Fatal("voice channel never created")
	}
	<-port.channel.started
	return c, v, port.channel
}

func readVoice(t *testing.T, c *websocket.Conn) protocol.VoiceMessage {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var msg protocol.VoiceMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeVoice(t *testing.T, c *websocket.Conn, msg protocol.VoiceMessage) {
	t.Helper()
	require.NoError(t, c.WriteJSON(msg))
}

func nextEvent(t *testing.T, s ports.RecognitionStream) (ports.RecognitionEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("no recognition event")
		return ports.RecognitionEvent{}, false
	}
}

func TestVoice_ListenAndMute(t *testing.T) {
	c, _, ch := connectVoice(t)

	writeVoice(t, c, protocol.VoiceMessage{Type: protocol.VoiceListen})
	writeVoice(t, c, protocol.VoiceMessage{Type: protocol.VoiceSynthesisEnd})
	writeVoice(t, c, protocol.VoiceMessage{Type: protocol.VoiceMute})

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"enable", "synthesis_end", "disable"}, ch.Calls())
	}, 2*time.Second, 10*time.Millisecond)
}

func TestVoice_StreamRelaysTranscripts(t *testing.T) {
	c, v, _ := connectVoice(t)

	stream, err := v.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, protocol.VoiceStartRecognition, readVoice(t, c).Type)

	_, err = v.Open(context.Background())
	assert.ErrorIs(t, err, errRecognitionBusy)

	writeVoice(t, c, protocol.VoiceMessage{Type: protocol.VoiceTranscript, Text: "jerry", IsFinal: false})
	writeVoice(t, c, protocol.VoiceMessage{Type: protocol.VoiceTranscript, Text: "jerry turn on the fan", IsFinal: true})
	writeVoice(t, c, protocol.VoiceMessage{Type: protocol.VoiceStreamEnd})

	ev, ok := nextEvent(t, stream)
	require.True(t, ok)
	assert.Equal(t, ports.RecognitionEvent{Text: "jerry"}, ev)
	ev, ok = nextEvent(t, stream)
	require.True(t, ok)
	assert.Equal(t, ports.RecognitionEvent{Text: "jerry turn on the fan", IsFinal: true}, ev)
	_, ok = nextEvent(t, stream)
	assert.False(t, ok)
	assert.NoError(t, stream.Err())

	// the finished stream frees the source for the next run
	_, err = v.Open(context.Background())
	assert.NoError(t, err)
}

func TestVoice_PermissionDenied(t *testing.T) {
	c, v, _ := connectVoice(t)

	stream, err := v.Open(context.Background())
	require.NoError(t, err)
	readVoice(t, c)

	writeVoice(t, c, protocol.VoiceMessage{Type: protocol.VoiceRecognitionError, Error: "not-allowed"})

	_, ok := nextEvent(t, stream)
	assert.False(t, ok)
	assert.ErrorIs(t, stream.Err(), ports.ErrPermissionDenied)
	assert.Equal(t, protocol.VoiceMessage{Type: protocol.VoiceError, Error: "Microphone permission denied"}, readVoice(t, c))
}

func TestVoice_TransientError(t *testing.T) {
	c, v, _ := connectVoice(t)

	stream, err := v.Open(context.Background())
	require.NoError(t, err)
	readVoice(t, c)

	writeVoice(t, c, protocol.VoiceMessage{Type: protocol.VoiceRecognitionError, Error: "no-speech"})

	_, ok := nextEvent(t, stream)
	assert.False(t, ok)
	assert.ErrorIs(t, stream.Err(), ports.ErrRecognitionTransient)
}

func TestVoice_CloseStopsRecognition(t *testing.T) {
	c, v, _ := connectVoice(t)

	stream, err := v.Open(context.Background())
	require.NoError(t, err)
	readVoice(t, c)

	require.NoError(t, stream.Close())
	assert.Equal(t, protocol.VoiceStopRecognition, readVoice(t, c).Type)
}

func TestVoice_SpeakAndStatus(t *testing.T) {
	c, v, ch := connectVoice(t)

	require.NoError(t, v.Speak(context.Background(), "Yes?"))
	assert.Equal(t, protocol.VoiceMessage{Type: protocol.VoiceSpeak, Text: "Yes?"}, readVoice(t, c))
	assert.Equal(t, []string{"synthesis_start"}, ch.Calls())

	v.SessionChanged("armed")
	assert.Equal(t, protocol.VoiceMessage{Type: protocol.VoiceSession, Mode: "armed"}, readVoice(t, c))

	v.ListeningChanged(true)
	msg := readVoice(t, c)
	assert.Equal(t, protocol.VoiceListening, msg.Type)
	require.NotNil(t, msg.Active)
	assert.True(t, *msg.Active)
}

func TestVoice_BadMessages(t *testing.T) {
	c, _, _ := connectVoice(t)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, protocol.VoiceMessage{Type: protocol.VoiceError, Error: "Invalid JSON"}, readVoice(t, c))

	writeVoice(t, c, protocol.VoiceMessage{Type: "dance"})
	assert.Equal(t, protocol.VoiceMessage{Type: protocol.VoiceError, Error: "Unknown message type"}, readVoice(t, c))
}

func TestVoice_DisconnectClosesSource(t *testing.T) {
	c, v, _ := connectVoice(t)

	stream, err := v.Open(context.Background())
	require.NoError(t, err)
	readVoice(t, c)
	require.NoError(t, c.Close())

	_, ok := nextEvent(t, stream)
	assert.False(t, ok)
	assert.ErrorIs(t, stream.Err(), ports.ErrSourceClosed)

	assert.Eventually(t, func() bool {
		_, err := v.Open(context.Background())
		return err == ports.ErrSourceClosed
	}, 2*time.Second, 10*time.Millisecond)
}
