// server runs the ERP HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	authhandler "erp-suite/backend/internal/auth/handler"
	authservice "erp-suite/backend/internal/auth/service"
	calendarhandler "erp-suite/backend/internal/calendar/handler"
	calendarrepo "erp-suite/backend/internal/calendar/repository"
	calendarservice "erp-suite/backend/internal/calendar/service"
	"erp-suite/backend/internal/config"
	"erp-suite/backend/internal/db"
	dashboardhandler "erp-suite/backend/internal/dashboard/handler"
	notificationhandler "erp-suite/backend/internal/notification/handler"
	notificationrepo "erp-suite/backend/internal/notification/repository"
	rolehandler "erp-suite/backend/internal/role/handler"
	rolerepo "erp-suite/backend/internal/role/repository"
	"erp-suite/backend/internal/security"
	"erp-suite/backend/internal/server"
	sessionrepo "erp-suite/backend/internal/session/repository"
	"erp-suite/backend/internal/telemetry"
	telemetryotel "erp-suite/backend/internal/telemetry/otel"
	userhandler "erp-suite/backend/internal/user/handler"
	userrepo "erp-suite/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "erp-backend", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	codec, err := security.NewTokenCodec(
		[]byte(cfg.JWTAccessSecret), []byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL(),
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)
	roles := rolerepo.NewPostgresRepository(pool)
	calendars := calendarrepo.NewPostgresRepository(pool)
	notifications := notificationrepo.NewPostgresRepository(pool)

	authSvc := authservice.NewAuthService(users, sessions, hasher, codec, emitter)
	calendarSvc := calendarservice.NewCalendarService(calendars, notifications)

	router := server.NewRouter(server.Deps{
		Auth:               authhandler.NewAuthHandler(authSvc, cfg.CookieSecure),
		Users:              userhandler.NewUserHandler(users, hasher, sessions),
		Roles:              rolehandler.NewRoleHandler(roles),
		Tasks:              calendarhandler.NewCalendarHandler(calendarSvc),
		Notifications:      notificationhandler.NewNotificationHandler(notifications),
		Dashboard:          dashboardhandler.NewDashboardHandler(roles, calendars, notifications),
		Validator:          authSvc,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		LoginBurst:         cfg.LoginBurst,
		DBPinger:           pool,
		Version:            "dev",
	})

	srv := server.New(cfg.HTTPAddr, router)

	// Retention janitor: expired refresh rows are only ever removed here.
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	go runSessionJanitor(janitorCtx, sessions, cfg.SweepInterval())

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	stopJanitor()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Give in-flight async telemetry emits time to land before the exporters stop.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(ctx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("server stopped")
}

// runSessionJanitor periodically deletes expired refresh rows. An interval
// of zero (unset or invalid SESSION_SWEEP_INTERVAL) disables the janitor.
func runSessionJanitor(ctx context.Context, sessions sessionrepo.Repository, interval time.Duration) {
	if interval <= 0 {
		log.Println("session janitor: disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpiredBefore(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("session janitor: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("session janitor: removed %d expired refresh records", n)
			}
		}
	}
}
