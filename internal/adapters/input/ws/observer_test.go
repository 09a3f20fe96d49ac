package ws

import (
	"context"
	"encoding/json"
	"homehub/internal/domain/model"
	"homehub/internal/domain/protocol"
	"homehub/internal/domain/service"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *service.Hub {
	t.Helper()
	catalog, err := model.NewCatalog(model.DefaultDevices())
	require.NoError(t, err)
	hub := service.NewHub(service.NewDeviceStore(catalog, time.Now), zerolog.Nop(), 0)
	t.Cleanup(hub.Close)
	return hub
}

func observerServer(t *testing.T, hub *service.Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(ws, time.Second)
		var obs *Observer
		if id := strings.TrimPrefix(r.URL.Path, "/device/"); id != r.URL.Path {
			obs = NewActuator(conn, id, hub, zerolog.Nop())
		} else {
			codec, _ := protocol.ForFormat(r.URL.Query().Get("format"))
			obs = NewObserver(conn, codec, hub, zerolog.Nop())
		}
		_ = obs.Serve(r.Context())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func readJSON(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestObserver_SnapshotThenUpdates(t *testing.T) {
	hub := newTestHub(t)
	srv := observerServer(t, hub)

	a := dial(t, srv, "/")
	b := dial(t, srv, "/")

	for _, c := range []*websocket.Conn{a, b} {
		snap := readJSON(t, c)
		assert.Equal(t, "initial_state", snap["type"])
		assert.Len(t, snap["devices"], len(model.DefaultDevices()))
	}

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"deviceId":"light","state":true}`)))

	for _, c := range []*websocket.Conn{a, b} {
		upd := readJSON(t, c)
		assert.Equal(t, "device_update", upd["type"])
		assert.Equal(t, "light", upd["deviceId"])
		assert.Equal(t, true, upd["state"])
		assert.Equal(t, "manual", upd["source"])
	}

	d, err := hub.Device("light")
	require.NoError(t, err)
	assert.True(t, d.IsOn)
}

func TestObserver_ErrorsGoToSenderOnly(t *testing.T) {
	hub := newTestHub(t)
	srv := observerServer(t, hub)

	a := dial(t, srv, "/")
	b := dial(t, srv, "/")
	readJSON(t, a)
	readJSON(t, b)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"deviceId":`)))
	reply := readJSON(t, a)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "Invalid message format", reply["error"])

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"deviceId":"toaster","state":true}`)))
	reply = readJSON(t, a)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "Unknown device", reply["error"])

	// b must see the next real update, not either error.
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"deviceId":"fan","state":true}`)))
	upd := readJSON(t, b)
	assert.Equal(t, "device_update", upd["type"])
	assert.Equal(t, "fan", upd["deviceId"])
}

func TestObserver_LineFormat(t *testing.T) {
	hub := newTestHub(t)
	srv := observerServer(t, hub)

	c := dial(t, srv, "/?format=line")
	for range model.DefaultDevices() {
		assert.True(t, strings.HasPrefix(readText(t, c), "ACTION:"))
	}

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("ACTION:turn_on:kitchen")))
	assert.Equal(t, "ACTION:turn_on:kitchen", readText(t, c))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("toggle:kitchen")))
	assert.Equal(t, "ACTION:turn_off:kitchen", readText(t, c))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("nonsense")))
	assert.Equal(t, "ERROR:Invalid message format", readText(t, c))
}

func TestActuator_ReceivesCommandsAndReportsStatus(t *testing.T) {
	hub := newTestHub(t)
	srv := observerServer(t, hub)

	relay := dial(t, srv, "/device/tv")
	for range model.DefaultDevices() {
		readText(t, relay)
	}
	require.NoError(t, relay.WriteMessage(websocket.TextMessage, []byte("status:connected")))

	_, err := hub.Mutate(context.Background(), "tv", "turn_on", model.SourceRemote)
	require.NoError(t, err)
	assert.Equal(t, "turn_on:tv", readText(t, relay))

	// status frames never mutate devices
	d, err := hub.Device("tv")
	require.NoError(t, err)
	assert.Equal(t, model.SourceRemote, d.LastControlledBy)
}

func TestObserver_UnregistersOnDisconnect(t *testing.T) {
	hub := newTestHub(t)
	srv := observerServer(t, hub)

	c := dial(t, srv, "/")
	readJSON(t, c)
	require.Eventually(t, func() bool { return hub.Observers() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return hub.Observers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
