package main

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	absencehandler "github.com/rancho/rancho-backend/internal/absence/handler"
	absencerepo "github.com/rancho/rancho-backend/internal/absence/repository"
	absenceservice "github.com/rancho/rancho-backend/internal/absence/service"
	audithandler "github.com/rancho/rancho-backend/internal/audit/handler"
	auditrepo "github.com/rancho/rancho-backend/internal/audit/repository"
	"github.com/rancho/rancho-backend/internal/auth"
	authhandler "github.com/rancho/rancho-backend/internal/auth/handler"
	authservice "github.com/rancho/rancho-backend/internal/auth/service"
	"github.com/rancho/rancho-backend/internal/auth/token"
	bookinghandler "github.com/rancho/rancho-backend/internal/booking/handler"
	bookingrepo "github.com/rancho/rancho-backend/internal/booking/repository"
	bookingservice "github.com/rancho/rancho-backend/internal/booking/service"
	calendarhandler "github.com/rancho/rancho-backend/internal/calendar/handler"
	calendarrepo "github.com/rancho/rancho-backend/internal/calendar/repository"
	calendarservice "github.com/rancho/rancho-backend/internal/calendar/service"
	capacityhandler "github.com/rancho/rancho-backend/internal/capacity/handler"
	capacityrepo "github.com/rancho/rancho-backend/internal/capacity/repository"
	capacityservice "github.com/rancho/rancho-backend/internal/capacity/service"
	menuhandler "github.com/rancho/rancho-backend/internal/menu/handler"
	menurepo "github.com/rancho/rancho-backend/internal/menu/repository"
	"github.com/rancho/rancho-backend/internal/notify"
	notifyrepo "github.com/rancho/rancho-backend/internal/notify/repository"
	reporthandler "github.com/rancho/rancho-backend/internal/report/handler"
	reportrepo "github.com/rancho/rancho-backend/internal/report/repository"
	reportservice "github.com/rancho/rancho-backend/internal/report/service"
	"github.com/rancho/rancho-backend/internal/user/domain"
	userhandler "github.com/rancho/rancho-backend/internal/user/handler"
	userrepo "github.com/rancho/rancho-backend/internal/user/repository"
	userservice "github.com/rancho/rancho-backend/internal/user/service"
	"github.com/rancho/rancho-backend/pkg/config"
	"github.com/rancho/rancho-backend/pkg/database"
	"github.com/rancho/rancho-backend/pkg/httputil"
	"github.com/rancho/rancho-backend/pkg/logger"
)

func main() {
	cfg, err := config.LoadWithValidation("rancho-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("rancho-server", cfg.Server.Environment)
	log.Info().Msg("starting rancho server")

	db, err := database.New(cfg.Database.Path, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Bootstrap(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	// Repositories
	users := userrepo.NewUserRepository(db)
	audit := auditrepo.NewAuditRepository(db)
	absences := absencerepo.NewAbsenceRepository(db)
	calendarR := calendarrepo.NewCalendarRepository(db)
	capacities := capacityrepo.NewCapacityRepository(db)
	bookings := bookingrepo.NewBookingRepository(db)
	menus := menurepo.NewMenuRepository(db)
	notifications := notifyrepo.NewNotificationRepository(db)

	// Services
	userSvc := userservice.NewUserService(users, audit, cfg.Promotion, log)
	authSvc := authservice.NewAuthService(users, audit, cfg.Server.Environment, log)
	calendarSvc := calendarservice.NewCalendarService(calendarR, cfg.Booking.DeadlineHours, log)
	absenceSvc := absenceservice.NewAbsenceService(absences, audit, log)
	capacitySvc := capacityservice.NewCapacityService(capacities, audit, log)
	bookingSvc := bookingservice.NewBookingService(
		db, bookings, absences, calendarSvc, capacitySvc, audit, cfg.Booking.HorizonDays, log)
	reportSvc := reportservice.NewReportService(reportrepo.NewReportRepository(db), users, log)

	tokens := token.NewManager(cfg.Auth.SecretKey, cfg.Auth.SessionExpiry)

	// Notification scheduler
	scanner := notify.NewScanner(
		notifications,
		calendarSvc,
		notify.NewEmailChannel(cfg.SMTP, log),
		notify.NewSMSChannel(cfg.SMS, log),
		cfg.Notify.WarnHours,
		cfg.Booking.HorizonDays,
		cfg.Notify.SendTimeout,
		log,
	)
	scheduler := notify.NewScheduler(scanner, cfg.Notify.ScanInterval, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	// Handlers
	authH := authhandler.NewAuthHandler(authSvc, tokens, log)
	userH := userhandler.NewUserHandler(userSvc, log)
	bookingH := bookinghandler.NewBookingHandler(bookingSvc, userSvc, log)
	absenceH := absencehandler.NewAbsenceHandler(absenceSvc, log)
	calendarH := calendarhandler.NewCalendarHandler(calendarSvc, audit, log)
	capacityH := capacityhandler.NewCapacityHandler(capacitySvc, log)
	reportH := reporthandler.NewReportHandler(reportSvc, log)
	menuH := menuhandler.NewMenuHandler(menus, log)
	auditH := audithandler.NewAuditHandler(audit, log)

	staffRoles := []string{domain.RoleKitchen, domain.RoleDutyOfficer, domain.RoleYearCommander, domain.RoleAdmin}
	absenceRoles := []string{domain.RoleDutyOfficer, domain.RoleYearCommander, domain.RoleAdmin}
	overrideRoles := []string{domain.RoleDutyOfficer, domain.RoleAdmin}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler(db))

	// Cron endpoints, authorised by the dedicated token
	r.Get("/api/backup-cron", cronGuard(cfg.Auth.CronAPIToken, log, func(w http.ResponseWriter, req *http.Request) {
		dest := fmt.Sprintf("%s.%s.bak", db.Path(), time.Now().Format("20060102"))
		if err := db.Backup(req.Context(), dest); err != nil {
			log.Error().Err(err).Msg("backup failed")
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"backup": dest})
	}))
	r.Get("/api/avisos-cron", cronGuard(cfg.Auth.CronAPIToken, log, func(w http.ResponseWriter, req *http.Request) {
		warned, err := scanner.Scan(req.Context())
		if err != nil {
			log.Error().Err(err).Msg("cron notification scan failed")
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]int{"warned": warned})
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authH.Login)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens))

			r.Post("/auth/logout", authH.Logout)
			r.Post("/auth/password", userH.ChangePassword)

			// Self-service
			r.Get("/me", userH.Me)
			r.Put("/me/contacts", userH.UpdateContacts)
			r.Get("/me/absences", absenceH.ListMine)
			r.Post("/absences", absenceH.Create)
			r.Delete("/absences/{id}", absenceH.Delete)
			r.Get("/bookings/week/{monday}", bookingH.Week)
			r.Get("/bookings/{date}", bookingH.Get)
			r.Put("/bookings/{date}", bookingH.Edit)
			r.Get("/menus/week/{monday}", menuH.ListWeek)
			r.Get("/menus/{date}", menuH.Get)
			r.Get("/calendar", calendarH.ListRange)
			r.Get("/calendar/{date}", calendarH.Classify)

			// Staff panels
			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(staffRoles...))
				r.Get("/reports/day/{date}", reportH.Day)
				r.Get("/reports/week/{monday}", reportH.Week)
				r.Get("/reports/roster/{year}/{date}", reportH.Roster)
				r.Get("/capacities/{date}", capacityH.Occupancy)
				r.Get("/bookings/{date}/users/{id}", bookingH.GetForUser)
			})

			// Absence management
			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(absenceRoles...))
				r.Get("/absences", absenceH.ListRange)
				r.Get("/users/{id}/absences", absenceH.ListByUser)
			})

			// Booking exceptions and capacity control
			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(overrideRoles...))
				r.Put("/bookings/{date}/users/{id}", bookingH.Override)
				r.Put("/capacities/{date}", capacityH.Set)
			})

			// Kitchen menu editing
			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleKitchen, domain.RoleAdmin))
				r.Put("/menus/{date}", menuH.Put)
			})

			// Calendar editing
			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleYearCommander, domain.RoleAdmin))
				r.Put("/calendar/{date}", calendarH.Put)
				r.Delete("/calendar/{date}", calendarH.Delete)
			})

			// Administration
			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				r.Get("/users", userH.List)
				r.Post("/users", userH.Create)
				r.Post("/users/import", userH.Import)
				r.Post("/users/promote", userH.Promote)
				r.Get("/users/{id}", userH.Get)
				r.Put("/users/{id}", userH.Update)
				r.Delete("/users/{id}", userH.Delete)
				r.Post("/users/{id}/reset-password", userH.ResetPassword)
				r.Get("/audit/admin", auditH.ListAdmin)
				r.Get("/audit/bookings", auditH.ListBookingLog)
				r.Get("/audit/logins", auditH.ListLogins)
			})
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop the scheduler before the listener drains
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler reports liveness with the store's ping latency at the
// top level
func healthHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		dbHealth, latency := db.Health(req.Context())
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":     "healthy",
			"ts":         time.Now().Format(time.RFC3339),
			"db":         dbHealth,
			"latency_ms": latency,
		})
	}
}

// cronGuard authorises the cron endpoints with a constant-time comparison
// against the dedicated token. An unset token disables them.
func cronGuard(tok string, log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if tok == "" || subtle.ConstantTimeCompare([]byte(key), []byte(tok)) != 1 {
			log.Warn().Str("path", r.URL.Path).Msg("cron request refused")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
