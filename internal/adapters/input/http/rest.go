package http

import (
	"encoding/json"
	"fmt"
	"homehub/internal/domain/model"
	"homehub/internal/ports"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type stateRequest struct {
	State  *bool  `json:"state"`
	Action string `json:"action"`
}

type commandRequest struct {
	Text    string `json:"text"`
	Command string `json:"command"`
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	devices := make(map[string]model.Device)
	for _, d := range s.hub.Devices() {
		devices[d.ID] = d
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleDevice serves /api/devices/{id}; {id} may be any alias or "all".
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path
	for _, prefix := range []string{"/api/devices/", "/api/device/"} {
		id = strings.TrimPrefix(id, prefix)
	}
	id = strings.Trim(id, "/")
	if id == "" {
		s.handleDevices(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		d, err := s.hub.Device(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case http.MethodPost, http.MethodPut:
		s.setDevice(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) setDevice(w http.ResponseWriter, r *http.Request, id string) {
	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON", ports.ErrMalformedMessage))
		return
	}

	var (
		res *model.MutationResult
		err error
	)
	switch {
	case req.State != nil:
		res, err = s.hub.Mutate(r.Context(), id, string(model.ActionFor(*req.State)), model.SourceManual)
	case req.Action == "toggle":
		res, err = s.hub.Toggle(r.Context(), id, model.SourceManual)
	case req.Action != "":
		res, err = s.hub.Mutate(r.Context(), id, req.Action, model.SourceManual)
	default:
		err = fmt.Errorf("%w: missing state", ports.ErrMalformedMessage)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": res})
}

// handleCommand runs a typed or transcribed utterance through the same
// path as a voice command.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON", ports.ErrMalformedMessage))
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = strings.TrimSpace(req.Command)
	}
	if text == "" {
		writeError(w, fmt.Errorf("%w: missing text", ports.ErrMalformedMessage))
		return
	}

	outcome := s.commands.Execute(r.Context(), text)
	if outcome.Err != nil {
		s.log.Warn().Err(outcome.Err).Str("text", text).Msg("command failed")
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "running",
		"uptime":    int64(time.Since(s.started).Seconds()),
		"devices":   s.hub.Devices(),
		"observers": s.hub.Observers(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConnectionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ip":   s.opts.Host,
		"port": s.opts.Port,
		"url":  "ws://" + s.opts.Host + ":" + strconv.Itoa(s.opts.Port) + "/ws",
	})
}
