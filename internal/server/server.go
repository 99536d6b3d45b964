// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     server
// Description: HTTP status/control API and gRPC health mirror
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

// Package server exposes the running interpreter to remote observers:
// a chi HTTP API with health, status, control and a WebSocket event
// stream, plus a gRPC health service that reports SERVING while the
// pipeline listens.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/msto63/dolmetscher/internal/interpreter"
	"github.com/msto63/dolmetscher/internal/interpreter/sink"
	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
	coregrpc "github.com/msto63/dolmetscher/pkg/core/grpc"
	"github.com/msto63/dolmetscher/pkg/core/health"
	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// HealthService is the gRPC health service name of the pipeline
const HealthService = "dolmetscher.Interpreter"

// Control is the pipeline control surface
type Control interface {
	Start() (*interpreter.Pipeline, error)
	Stop() error
	Toggle() error
	State() interpreter.State
}

// Config holds server configuration
type Config struct {
	HTTPAddr     string
	GRPCAddr     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	HealthWindow time.Duration
}

// Server is the remote status server
type Server struct {
	cfg      Config
	router   chi.Router
	http     *http.Server
	listener net.Listener
	grpc     *coregrpc.Server
	tracker  *Tracker
	hub      *sink.Hub
	registry *health.Registry
	control  Control
	logger   *logging.Logger
}

// New creates a server. control and registry may be nil.
func New(cfg Config, control Control, registry *health.Registry) *Server {
	if cfg.HealthWindow <= 0 {
		cfg.HealthWindow = 5 * time.Second
	}

	s := &Server{
		cfg:      cfg,
		tracker:  NewTracker(0),
		hub:      sink.NewHub(),
		registry: registry,
		control:  control,
		logger:   logging.New("server"),
	}
	s.router = s.routes()

	if cfg.GRPCAddr != "" {
		gcfg := coregrpc.DefaultServerConfig()
		gcfg.Addr = cfg.GRPCAddr
		s.grpc = coregrpc.NewServer(gcfg)
		s.grpc.SetServing(HealthService, false)
	}

	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/ws", s.hub)

	r.Route("/api", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
		r.Post("/toggle", s.handleToggle)
	})

	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Tracker returns the status tracker
func (s *Server) Tracker() *Tracker {
	return s.tracker
}

// Publish implements interpreter.Sink
func (s *Server) Publish(e interpreter.Event) {
	s.tracker.Publish(e)
	s.hub.Publish(e)
	if s.grpc != nil {
		s.grpc.SetServing(HealthService, e.State == interpreter.StateListening.String())
	}
}

// Start begins serving the configured listeners
func (s *Server) Start() error {
	if s.cfg.HTTPAddr != "" {
		listener, err := net.Listen("tcp", s.cfg.HTTPAddr)
		if err != nil {
			return err
		}
		s.listener = listener
		s.http = &http.Server{
			Handler:      s.router,
			ReadTimeout:  s.cfg.ReadTimeout,
			WriteTimeout: s.cfg.WriteTimeout,
		}

		go func() {
			if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("HTTP server error", "error", err)
			}
		}()
		s.logger.Info("HTTP server listening", "addr", listener.Addr().String())
	}

	if s.grpc != nil {
		if err := s.grpc.StartAsync(); err != nil {
			return err
		}
	}

	return nil
}

// HTTPAddr returns the bound HTTP address
func (s *Server) HTTPAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.HTTPAddr
}

// GRPCAddr returns the bound gRPC address
func (s *Server) GRPCAddr() string {
	if s.grpc != nil {
		return s.grpc.Address()
	}
	return ""
}

// Shutdown stops both servers
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()

	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if s.grpc != nil {
		s.grpc.StopWithTimeout(ctx)
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(health.StatusHealthy)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthWindow)
	defer cancel()

	report := s.registry.Check(ctx)
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	snap.Observers = s.Observers()
	writeJSON(w, http.StatusOK, snap)
}

// Observers returns the number of WebSocket clients and gRPC health watchers
func (s *Server) Observers() int {
	n := s.hub.Clients()
	if s.grpc != nil {
		n += s.grpc.Watchers()
	}
	return n
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !s.controllable(w) {
		return
	}
	p, err := s.control.Start()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"instance": p.ID(), "state": p.State().String()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.controllable(w) {
		return
	}
	if err := s.control.Stop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": s.control.State().String()})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if !s.controllable(w) {
		return
	}
	if err := s.control.Toggle(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": s.control.State().String()})
}

func (s *Server) controllable(w http.ResponseWriter) bool {
	if s.control == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "control not available"})
		return false
	}
	return true
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch mdwerror.GetCode(err) {
	case mdwerror.CodeInvalidState:
		status = http.StatusConflict
	case mdwerror.CodeTimeout:
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  mdwerror.GetCode(err).String(),
	})
}
