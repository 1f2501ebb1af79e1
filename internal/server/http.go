// Package server wires the HTTP API: router, middleware, and server lifecycle.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authhandler "erp-suite/backend/internal/auth/handler"
	calendarhandler "erp-suite/backend/internal/calendar/handler"
	dashboardhandler "erp-suite/backend/internal/dashboard/handler"
	notificationhandler "erp-suite/backend/internal/notification/handler"
	rolehandler "erp-suite/backend/internal/role/handler"
	"erp-suite/backend/internal/server/httpx"
	userhandler "erp-suite/backend/internal/user/handler"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Pinger checks a backing store for the health endpoint (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the handlers and policy knobs the router needs.
type Deps struct {
	Auth          *authhandler.AuthHandler
	Users         *userhandler.UserHandler
	Roles         *rolehandler.RoleHandler
	Tasks         *calendarhandler.CalendarHandler
	Notifications *notificationhandler.NotificationHandler
	Dashboard     *dashboardhandler.DashboardHandler

	Validator AccessValidator
	// LoginRatePerMinute / LoginBurst shape the per-IP bucket on the public auth routes.
	LoginRatePerMinute int
	LoginBurst         int
	// DBPinger is checked by /health. If nil, the DB check is skipped.
	DBPinger Pinger
	Version  string
}

// NewRouter builds the HTTP route tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(telemetryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handleHealth(deps.DBPinger, deps.Version))

		// Public auth routes, rate limited per client IP.
		r.Group(func(r chi.Router) {
			if deps.LoginRatePerMinute > 0 {
				r.Use(rateLimitMiddleware(deps.LoginRatePerMinute, deps.LoginBurst))
			}
			deps.Auth.RegisterPublic(r)
		})

		// Everything below requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(deps.Validator))

			deps.Auth.RegisterProtected(r)
			deps.Roles.RegisterRead(r)
			deps.Tasks.Register(r)
			deps.Notifications.Register(r)
			deps.Dashboard.Register(r)

			r.Group(func(r chi.Router) {
				r.Use(requireMaster)
				deps.Users.Register(r)
				deps.Roles.RegisterWrite(r)
			})
		})
	})

	return r
}

func handleHealth(pinger Pinger, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		httpx.WriteJSON(w, code, map[string]string{"status": status, "version": version})
	}
}

// Server owns the HTTP listener.
type Server struct {
	srv *http.Server
}

// New returns a Server on addr serving handler.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start serves until the listener is closed. Blocks.
func (s *Server) Start() error {
	log.Printf("http: listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, gracefulShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
