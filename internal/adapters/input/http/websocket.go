package http

import (
	"fmt"
	"homehub/internal/adapters/input/ws"
	"homehub/internal/domain/protocol"
	"homehub/internal/ports"
	"net/http"
	"strings"
)

// handleClientSocket serves browser and app clients. ?format=line selects
// the compact text protocol; JSON envelopes are the default.
func (s *Server) handleClientSocket(w http.ResponseWriter, r *http.Request) {
	codec, err := protocol.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", ports.ErrMalformedMessage, err))
		return
	}
	conn, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	obs := ws.NewObserver(conn, codec, s.hub, s.log)
	if err := obs.Serve(r.Context()); err != nil {
		s.log.Debug().Err(err).Str("observer", obs.ID()).Msg("client connection ended")
	}
}

// handleActuatorSocket serves a relay board at /ws/device/{id}.
func (s *Server) handleActuatorSocket(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/device/"), "/")
	d, err := s.hub.Device(id)
	if err != nil {
		writeError(w, err)
		return
	}
	conn, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	obs := ws.NewActuator(conn, d.ID, s.hub, s.log)
	if err := obs.Serve(r.Context()); err != nil {
		s.log.Debug().Err(err).Str("observer", obs.ID()).Msg("actuator connection ended")
	}
}

func (s *Server) handleVoiceSocket(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		http.NotFound(w, r)
		return
	}
	conn, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	if err := ws.NewVoice(conn, s.voice, s.log).Serve(r.Context()); err != nil {
		s.log.Debug().Err(err).Msg("voice connection ended")
	}
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) (*ws.Conn, bool) {
	c, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil, false
	}
	return ws.NewConn(c, s.opts.WriteTimeout), true
}
