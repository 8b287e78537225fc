package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SubnetScope/internal/service"
	"github.com/Alias1177/SubnetScope/models"
)

// LimitedMessage is shown instead of a report when detection failed.
const LimitedMessage = "analysis temporarily limited"

const maxBodyBytes = 1 << 20

// Analyzer is what the HTTP layer needs from the service
type Analyzer interface {
	DetectAnomalies(ctx context.Context, req service.AnomalyRequest) (*models.AnomalyReport, error)
	AssessRisk(ctx context.Context, req service.RiskRequest) (*models.RiskAssessment, error)
	Recommend(ctx context.Context, req service.InvestmentRequest) (*models.InvestmentAnalysis, error)
	RecentAlerts(ctx context.Context, subnetID int, limit int) ([]models.Alert, error)
	Subnet(id int) (models.SubnetMetadata, error)
}

// Config holds server configuration
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig leaves room for one LLM call per request.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:           addr,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 45 * time.Second,
	}
}

// Server is the REST adapter in front of the analyzer
type Server struct {
	router   *mux.Router
	handler  http.Handler
	server   *http.Server
	analyzer Analyzer
	metrics  http.Handler
	config   Config
	logger   zerolog.Logger
}

// NewServer wires the routes. A nil metrics handler disables /metrics.
func NewServer(cfg Config, analyzer Analyzer, metrics http.Handler) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		analyzer: analyzer,
		metrics:  metrics,
		config:   cfg,
		logger:   log.With().Str("component", "http_server").Logger(),
	}
	s.setupRoutes()
	s.handler = s.requestIDMiddleware(s.loggingMiddleware(s.router))

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/subnets").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.HandleFunc("/{id}", s.subnet).Methods(http.MethodGet)
	api.HandleFunc("/{id}/alerts", s.alerts).Methods(http.MethodGet)
	api.HandleFunc("/{id}/anomalies", s.anomalies).Methods(http.MethodPost)
	api.HandleFunc("/{id}/investment", s.investment).Methods(http.MethodPost)
	api.HandleFunc("/{id}/risk", s.risk).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
}

// Handler is the router wrapped in the request id and logging middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) subnet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.subnetID(w, r)
	if !ok {
		return
	}
	meta, err := s.analyzer.Subnet(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) alerts(w http.ResponseWriter, r *http.Request) {
	id, ok := s.subnetID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, &models.ValidationError{Field: "limit", Message: fmt.Sprintf("%q is not a positive number", raw)})
			return
		}
		limit = n
	}

	alerts, err := s.analyzer.RecentAlerts(r.Context(), id, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subnet_id": id, "alerts": alerts})
}

func (s *Server) anomalies(w http.ResponseWriter, r *http.Request) {
	var req service.AnomalyRequest
	id, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	req.SubnetID = id

	report, err := s.analyzer.DetectAnomalies(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) investment(w http.ResponseWriter, r *http.Request) {
	var req service.InvestmentRequest
	id, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	req.SubnetID = id

	analysis, err := s.analyzer.Recommend(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) risk(w http.ResponseWriter, r *http.Request) {
	var req service.RiskRequest
	id, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	req.SubnetID = id

	assessment, err := s.analyzer.AssessRisk(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) subnetID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, r, &models.ValidationError{Field: "subnet_id", Message: fmt.Sprintf("%q is not a number", raw)})
		return 0, false
	}
	return id, true
}

// decode reads the optional JSON body. An empty body is a request with
// only the path id.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) (int, bool) {
	id, ok := s.subnetID(w, r)
	if !ok {
		return 0, false
	}

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, &models.ValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)})
		return 0, false
	}
	return id, true
}

type errorBody struct {
	Error        string `json:"error"`
	Field        string `json:"field,omitempty"`
	AnomalyState string `json:"anomaly_state,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *models.ValidationError
		detectionErr  *models.AnomalyDetectionError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validationErr.Error(), Field: validationErr.Field})
	case errors.As(err, &detectionErr):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: LimitedMessage, AnomalyState: "unknown"})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "analysis timed out"})
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(service.ContextWithRequestID(r.Context(), requestID)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.logger.Info().
			Str("request_id", w.Header().Get("X-Request-ID")).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.RequestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
