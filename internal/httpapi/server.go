package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lumnic12/attend/internal/attend/service"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/metrics"
)

// RequestMetrics counts served requests. *metrics.Collector implements it.
type RequestMetrics interface {
	HTTPRequest(route string, status int)
}

type Dependencies struct {
	Logger     *slog.Logger
	Addr       string
	Correlator *service.Correlator
	Identities *service.IdentityStore
	Attendance *service.AttendanceTracker
	Registrar  *service.Registrar
	Snapshots  store.SnapshotStore     // optional
	History    store.AttendanceHistory // optional
	Gatherer   prometheus.Gatherer     // optional, serves /metrics
	Metrics    RequestMetrics          // optional
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	mux        *http.ServeMux
	correlator *service.Correlator
	identities *service.IdentityStore
	attendance *service.AttendanceTracker
	registrar  *service.Registrar
	snapshots  store.SnapshotStore
	history    store.AttendanceHistory
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		logger:     logger,
		mux:        mux,
		correlator: d.Correlator,
		identities: d.Identities,
		attendance: d.Attendance,
		registrar:  d.Registrar,
		snapshots:  d.Snapshots,
		history:    d.History,
	}

	mux.HandleFunc("GET /api/rfid", s.handleRFID)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/attendance", s.handleAttendance)
	mux.HandleFunc("GET /v1/sessions", s.handleListSessions)
	mux.HandleFunc("DELETE /v1/sessions/{card_id}", s.handleCancelSession)
	mux.HandleFunc("GET /v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /v1/identities/reload", s.handleReload)
	mux.HandleFunc("POST /v1/users", s.handleRegister)
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(d.Gatherer))
	}

	handler := loggingMiddleware(logger, d.Metrics, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
