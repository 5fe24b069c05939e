// Package admin serves the HTTP control panel and JSON API of a running
// generator simulation.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"genset-sim/internal/command"
	"genset-sim/internal/telemetry"
)

//go:embed templates/index.html
var content embed.FS

const shutdownTimeout = 5 * time.Second

// Simulation reports the periodic driver's bookkeeping.
type Simulation interface {
	State() telemetry.SimulationStateRow
}

// Server exposes generator control over HTTP. Every endpoint maps onto a
// protocol request so HTTP and TCP clients see identical messages.
type Server struct {
	cmd *command.Handler
	sim Simulation
	hub *Hub
	tpl *template.Template
	log *zap.SugaredLogger
	mux *http.ServeMux
}

// NewServer wires the routes. A nil hub disables /ws.
func NewServer(cmd *command.Handler, sim Simulation, hub *Hub, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{cmd: cmd, sim: sim, hub: hub, tpl: tpl, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /status", s.protocol("status"))
	s.mux.HandleFunc("GET /alarms", s.protocol("alarms"))
	s.mux.HandleFunc("GET /sim", s.handleSim)
	s.mux.HandleFunc("POST /start", s.protocol("start"))
	s.mux.HandleFunc("POST /stop", s.protocol("stop"))
	s.mux.HandleFunc("POST /emergency-stop", s.protocol("emergency_stop"))
	s.mux.HandleFunc("POST /load", s.withQuery("set_load", "pct"))
	s.mux.HandleFunc("POST /alarms/ack", s.withQuery("ack", "type"))
	s.mux.HandleFunc("POST /alarms/reset", s.protocol("reset_alarms"))
	if s.hub != nil {
		s.mux.HandleFunc("GET /ws", s.hub.ServeWS)
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warnw("admin shutdown", "error", err)
		}
	})
	defer stop()

	s.log.Infow("admin server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) protocol(line string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, s.cmd.Handle(line))
	}
}

func (s *Server) withQuery(op, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, s.cmd.Handle(op+" "+r.URL.Query().Get(param)))
	}
}

func (s *Server) respond(w http.ResponseWriter, resp command.Response) {
	code := http.StatusOK
	if resp.Status != command.StatusSuccess {
		code = http.StatusConflict
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleSim(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.State())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	resp := s.cmd.Handle("status")
	row, _ := resp.Data.(telemetry.StatusRow)
	data := struct {
		Status telemetry.StatusRow
		Sim    telemetry.SimulationStateRow
		Live   bool
	}{
		Status: row,
		Sim:    s.sim.State(),
		Live:   s.hub != nil,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Warnw("render index", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
