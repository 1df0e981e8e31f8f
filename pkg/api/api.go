// Package api serves interface inspection, planning and reconciliation over
// HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newtron-network/netconsole/pkg/audit"
	"github.com/newtron-network/netconsole/pkg/reconcile"
	"github.com/newtron-network/netconsole/pkg/util"
)

// UserHeader names the operator on whose behalf a request is made.
const UserHeader = "X-Netconsole-User"

const defaultUser = "api"

// Server provides the HTTP API for netconsole.
type Server struct {
	source     reconcile.StateSource
	reconciler *reconcile.Reconciler
	audit      audit.Logger
}

// NewServer creates a new API server. auditLog may be nil, in which case
// plans are not recorded and the audit endpoint returns 503.
func NewServer(source reconcile.StateSource, reconciler *reconcile.Reconciler, auditLog audit.Logger) *Server {
	return &Server{
		source:     source,
		reconciler: reconciler,
		audit:      auditLog,
	}
}

// Handler returns a router with all routes registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all API routes on the given router.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Interfaces
	api.HandleFunc("/devices/{device}/interfaces/{interface}", s.getInterface).Methods("GET")
	api.HandleFunc("/devices/{device}/interfaces/{interface}/plan", s.planInterface).Methods("POST")
	api.HandleFunc("/devices/{device}/interfaces/{interface}/reconcile", s.reconcileInterface).Methods("POST")

	// Audit
	api.HandleFunc("/audit", s.listAudit).Methods("GET")
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps reconciliation errors to HTTP status codes.
func statusFor(err error) int {
	var loadErr *reconcile.LoadError
	switch {
	case errors.Is(err, util.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrInterfaceLocked):
		return http.StatusConflict
	case errors.As(err, &loadErr) && errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &loadErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, util.ErrExecutionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// healthHandler returns health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func requestUser(r *http.Request) string {
	if u := r.Header.Get(UserHeader); u != "" {
		return u
	}
	return defaultUser
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		util.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
			"client":   clientIP(r),
		}).Debug("HTTP request")
	})
}
