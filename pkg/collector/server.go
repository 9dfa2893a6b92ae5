// Package collector implements argusd, the collection endpoint the agent
// reports to. It accepts capture payloads, usage beacons, and fault beacons,
// keeps a bounded window of recent reports for inspection, and exposes
// Prometheus metrics and health endpoints.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/argusops/argus-go/pkg/domain"
	"github.com/argusops/argus-go/pkg/telemetry"
)

// maxPayloadBytes bounds a single capture request body.
const maxPayloadBytes = 1 << 20

// Options configures the collector server.
type Options struct {
	Logger *slog.Logger
	// StoreCapacity bounds the recent-report window. Zero uses the default.
	StoreCapacity int
	// Token, when set, is required on every capture payload and beacon.
	// Empty accepts any token (development mode).
	Token string
}

// Server is the collector component container.
type Server struct {
	logger  *slog.Logger
	store   *ReportStore
	metrics *Metrics
	token   string

	server  *http.Server
	mu      sync.RWMutex
	running bool
}

// NewServer creates a collector server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:  logger,
		store:   NewReportStore(opts.StoreCapacity),
		metrics: NewMetrics(),
		token:   opts.Token,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.server = &http.Server{
		Handler:           otelhttp.NewHandler(mux, "argusd"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("collector already running")
	}
	s.running = true
	s.mu.Unlock()

	s.server.Addr = addr
	s.logger.Info("Starting collector", "addr", addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return s.server.Shutdown(ctx)
}

// Handler exposes the full route surface for tests and embedders.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Store exposes the recent-report window.
func (s *Server) Store() *ReportStore {
	return s.store
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /capture", s.handleCapture)
	mux.HandleFunc("GET /usage.gif", s.handleUsage)
	mux.HandleFunc("GET /fault.gif", s.handleFault)
	mux.HandleFunc("GET /reports", s.handleReports)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		s.metrics.RecordRejected("read")
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var payload domain.Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.metrics.RecordRejected("parse")
		s.logger.Warn("Rejecting unparsable payload", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if !s.tokenAllowed(payload.Token) {
		s.metrics.RecordRejected("token")
		http.Error(w, "unknown token", http.StatusForbidden)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(telemetry.ScrubAttributes([]attribute.KeyValue{
		attribute.String("report.id", payload.ReportID),
		attribute.String("report.token", payload.Token),
		attribute.String("report.entry", string(payload.EntryKind)),
		attribute.String("report.error.message", payload.Error.Message),
	}, nil)...)

	s.store.Add(&payload)
	s.metrics.RecordReceived(string(payload.EntryKind), len(body))
	s.logger.Info("Report accepted",
		"report_id", payload.ReportID,
		"entry", payload.EntryKind,
		"application", payload.Application,
		"error", payload.Error.Name,
	)

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if !s.tokenAllowed(r.URL.Query().Get("token")) {
		writePixel(w) // beacons always succeed from the agent's side
		return
	}

	s.metrics.RecordUsage()
	s.logger.Info("Usage beacon",
		"correlation_id", r.URL.Query().Get("correlationId"),
	)
	writePixel(w)
}

func (s *Server) handleFault(w http.ResponseWriter, r *http.Request) {
	if s.tokenAllowed(r.URL.Query().Get("token")) {
		s.metrics.RecordFault()
		s.logger.Warn("Agent fault beacon", "msg", r.URL.Query().Get("msg"))
	}
	writePixel(w)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		_, _ = fmt.Sscanf(raw, "%d", &n)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.store.Recent(n)); err != nil {
		s.logger.Warn("Failed to encode reports", "error", err)
	}
}

func (s *Server) tokenAllowed(token string) bool {
	return s.token == "" || token == s.token
}

// transparentPixel is a 1x1 transparent GIF, the classic beacon response.
var transparentPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

func writePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(transparentPixel)
}
