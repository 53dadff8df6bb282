package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"github.com/bytelocker/bytelocker/internal/alert"
	"github.com/bytelocker/bytelocker/internal/events"
	"github.com/bytelocker/bytelocker/internal/system"
)

// AlertBus delivers raised alerts to the websocket fan-out
type AlertBus interface {
	Subscribe(subject string, handler func(*nats.Msg)) (*nats.Subscription, error)
}

// Server exposes the HTTP API and WebSocket alert stream
type Server struct {
	system     *system.System
	dispatcher *alert.Dispatcher
	events     *events.Service
	hub        *Hub
	metrics    http.Handler

	httpServer *http.Server
	logger     *slog.Logger
}

// ServerConfig configures the API server
type ServerConfig struct {
	Addr       string
	System     *system.System
	Dispatcher *alert.Dispatcher
	Events     *events.Service
	Bus        AlertBus
	// Metrics is the optional Prometheus handler mounted at /metrics
	Metrics http.Handler
}

// NewServer creates the API server and wires the alert stream
func NewServer(cfg ServerConfig) (*Server, error) {
	s := &Server{
		system:     cfg.System,
		dispatcher: cfg.Dispatcher,
		events:     cfg.Events,
		hub:        NewHub(),
		metrics:    cfg.Metrics,
		logger:     slog.Default().With("component", "api"),
	}

	if cfg.Bus != nil {
		// Every raised alert is pushed to websocket subscribers
		if _, err := cfg.Bus.Subscribe("alerts.>", func(msg *nats.Msg) {
			s.hub.Broadcast(msg.Data)
		}); err != nil {
			return nil, fmt.Errorf("failed to subscribe to alerts: %w", err)
		}
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s, nil
}

// Start runs the hub loop and serves HTTP until the listener fails
func (s *Server) Start() error {
	go s.hub.Run()
	s.logger.Info("API server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the router, exported for tests
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/cameras", s.handleCameras)
		r.Get("/cameras/{cameraID}/analysis", s.handleAnalysis)
		r.Get("/alerts/recent", s.handleRecentAlerts)
		r.Get("/alerts/history", s.handleAlertHistory)
		r.Post("/alerts/drain", s.handleDrainAlerts)
		r.Get("/events", s.handleEvents)
	})

	r.Get("/ws", s.hub.ServeWS)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	type cameraStatus struct {
		ID      string `json:"id"`
		Running bool   `json:"running"`
	}

	ids := s.system.Cameras()
	cameras := make([]cameraStatus, 0, len(ids))
	for _, id := range ids {
		cameras = append(cameras, cameraStatus{ID: id, Running: s.system.CameraRunning(id)})
	}
	JSON(w, http.StatusOK, cameras)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	cameraID := chi.URLParam(r, "cameraID")
	result, ok := s.system.CrowdAnalysis(cameraID)
	if !ok {
		Error(w, http.StatusNotFound, "camera_not_found", "no such camera: "+cameraID)
		return
	}
	JSON(w, http.StatusOK, result)
}

func (s *Server) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.dispatcher.Recent())
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			Error(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.events.Alerts(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list alert history", "error", err)
		Error(w, http.StatusInternalServerError, "query_failed", "failed to list alerts")
		return
	}
	JSON(w, http.StatusOK, list)
}

func (s *Server) handleDrainAlerts(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.dispatcher.Drain())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	opts := events.ListOptions{
		CameraID:  r.URL.Query().Get("camera_id"),
		EventType: events.EventType(r.URL.Query().Get("type")),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			Error(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}

	list, err := s.events.List(r.Context(), opts)
	if err != nil {
		s.logger.Error("Failed to list events", "error", err)
		Error(w, http.StatusInternalServerError, "query_failed", "failed to list events")
		return
	}
	if list == nil {
		list = []*events.Event{}
	}
	JSON(w, http.StatusOK, list)
}
