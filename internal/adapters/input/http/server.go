package http

import (
	"context"
	"encoding/json"
	"errors"
	"homehub/internal/domain/model"
	"homehub/internal/domain/translator"
	"homehub/internal/ports"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Options describe where the server is reachable from the LAN.
type Options struct {
	Host         string // address advertised to Hue remotes and clients
	Port         int
	WriteTimeout time.Duration // per websocket frame
}

type Server struct {
	hub               ports.HubPort
	commands          ports.CommandPort
	voice             ports.VoicePort
	catalogs          ports.CatalogPort
	translatorFactory *translator.Factory
	opts              Options
	started           time.Time
	log               zerolog.Logger
}

// NewServer wires the REST, Hue and websocket surfaces. voice and catalogs
// may be nil, which disables /ws/voice and catalog editing.
func NewServer(hub ports.HubPort, commands ports.CommandPort, voice ports.VoicePort, catalogs ports.CatalogPort, opts Options, log zerolog.Logger) *Server {
	return &Server{
		hub:               hub,
		commands:          commands,
		voice:             voice,
		catalogs:          catalogs,
		translatorFactory: translator.NewFactory(),
		opts:              opts,
		started:           time.Now(),
		log:               log.With().Str("component", "http").Logger(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/description.xml", s.handleDescription)
	mux.HandleFunc("/api", s.handleAPI)
	mux.HandleFunc("/api/", s.handleAPI)

	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/devices/", s.handleDevice)
	mux.HandleFunc("/api/device/", s.handleDevice)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/voice", s.handleCommand)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/connection-info", s.handleConnectionInfo)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/ws", s.handleClientSocket)
	mux.HandleFunc("/ws/client", s.handleClientSocket)
	mux.HandleFunc("/ws/device/", s.handleActuatorSocket)
	mux.HandleFunc("/ws/voice", s.handleVoiceSocket)

	mux.HandleFunc("/admin", s.handleAdmin)
	mux.HandleFunc("/admin/catalog", s.handleCatalog)
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
// Websocket handlers see ctx through their request context.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("http server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) baseURL() string {
	return "http://" + net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"success": false, "error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownDevice):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnknownAction), errors.Is(err, ports.ErrMalformedMessage):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}
