package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/clinicdesk/registry/internal/registry"
	"github.com/clinicdesk/registry/internal/scheduling"
	"github.com/clinicdesk/registry/pkg/config"
	"github.com/clinicdesk/registry/pkg/logger"
	"github.com/clinicdesk/registry/pkg/monitoring"
	"github.com/clinicdesk/registry/pkg/rbac"
)

// routeCapabilities maps "METHOD template" route keys to the capability a
// caller's role must hold. Routes absent from the table need authentication
// only.
var routeCapabilities = map[string]rbac.Capability{
	"POST /api/v1/appointments":                      rbac.CapBookAppointment,
	"GET /api/v1/appointments":                       rbac.CapViewAppointments,
	"GET /api/v1/appointments/upcoming":              rbac.CapViewAppointments,
	"GET /api/v1/appointments/{id}":                  rbac.CapViewAppointments,
	"DELETE /api/v1/appointments/{id}":               rbac.CapDeleteAppointment,
	"PUT /api/v1/appointments/{id}/move":             rbac.CapMoveAppointment,
	"POST /api/v1/appointments/{id}/repeat":          rbac.CapRepeatAppointment,
	"PUT /api/v1/appointments/{id}/status":           rbac.CapSetAppointmentStatus,
	"POST /api/v1/appointments/{id}/cancel":          rbac.CapCancelAppointment,
	"GET /api/v1/doctors/{doctorId}/available-slots": rbac.CapViewSchedules,
	"POST /api/v1/doctors/{doctorId}/availability":   rbac.CapViewSchedules,
	"POST /api/v1/schedules":                         rbac.CapManageSchedules,
	"GET /api/v1/schedules":                          rbac.CapViewSchedules,
	"POST /api/v1/schedules/bulk":                    rbac.CapImportSchedules,
	"POST /api/v1/schedules/cleanup":                 rbac.CapPurgeSchedules,
	"GET /api/v1/schedules/{id}":                     rbac.CapViewSchedules,
	"PUT /api/v1/schedules/{id}":                     rbac.CapManageSchedules,
	"DELETE /api/v1/schedules/{id}":                  rbac.CapManageSchedules,
	"POST /api/v1/doctors":                           rbac.CapManageDoctors,
	"PUT /api/v1/doctors/{id}":                       rbac.CapManageDoctors,
	"DELETE /api/v1/doctors/{id}":                    rbac.CapManageDoctors,
	"POST /api/v1/patients":                          rbac.CapManagePatients,
	"PUT /api/v1/patients/{id}":                      rbac.CapManagePatients,
	"GET /api/v1/statistics":                         rbac.CapViewStatistics,
}

// Server assembles the HTTP surface of the registry
type Server struct {
	cfg            *config.Config
	router         *mux.Router
	httpServer     *http.Server
	logger         *logger.Logger
	metrics        *monitoring.MetricsCollector
	health         *monitoring.HealthManager
	rateLimiter    *RateLimiter
	tokenValidator *TokenValidator
}

// New creates the server and wires routes and middleware
func New(cfg *config.Config, log *logger.Logger, metrics *monitoring.MetricsCollector, health *monitoring.HealthManager, schedulingSvc *scheduling.Service, registrySvc *registry.Service) *Server {
	s := &Server{
		cfg:            cfg,
		router:         mux.NewRouter(),
		logger:         log,
		metrics:        metrics,
		health:         health,
		tokenValidator: NewTokenValidator(cfg.JWT),
	}

	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
	}

	// Unauthenticated surface
	s.router.HandleFunc(cfg.Monitoring.HealthPath, health.HTTPHandler()).Methods("GET")
	if cfg.Monitoring.Enabled {
		s.router.Handle(cfg.Monitoring.MetricsPath, metrics.Handler()).Methods("GET")
	}

	// Authenticated API
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware, s.rateLimitMiddleware, s.capabilityMiddleware)
	schedulingSvc.RegisterRoutes(api)
	registrySvc.RegisterRoutes(api)

	s.router.Use(s.requestIDMiddleware, s.loggingMiddleware, metrics.HTTPMiddleware)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

// capabilityMiddleware resolves the matched route to its required capability
// and enforces it
func (s *Server) capabilityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		if route == nil {
			next.ServeHTTP(w, r)
			return
		}

		template, err := route.GetPathTemplate()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		cap, gated := routeCapabilities[r.Method+" "+template]
		if !gated {
			next.ServeHTTP(w, r)
			return
		}

		s.RequireCapability(cap, next.ServeHTTP)(w, r)
	})
}

// Start runs the HTTP server until it is shut down
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the assembled router; used by tests
func (s *Server) Router() *mux.Router {
	return s.router
}
