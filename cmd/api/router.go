package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventdesk/eventdesk/internal/auth"
	"github.com/eventdesk/eventdesk/internal/config"
	"github.com/eventdesk/eventdesk/internal/handlers"
	"github.com/eventdesk/eventdesk/internal/middleware"
	"github.com/eventdesk/eventdesk/internal/repo"
)

// newRouter wires repos, handlers, and the middleware stack. Kept separate
// from main so integration tests can build the full router against a mock DB.
func newRouter(db *sql.DB, cfg config.Config) chi.Router {
	userRepo := repo.NewUserRepo(db)
	eventRepo := repo.NewEventRepo(db)
	attendeeRepo := repo.NewAttendeeRepo(db)
	auditRepo := repo.NewAuditRepo(db)

	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), time.Duration(cfg.JWTExpireMinutes)*time.Minute)

	authH := &handlers.AuthHandler{Users: userRepo, Hasher: hasher, Tokens: tokens}
	userH := &handlers.UserHandler{Users: userRepo, Hasher: hasher, Audit: auditRepo}
	eventH := &handlers.EventHandler{Repo: eventRepo, Audit: auditRepo}
	attendeeH := &handlers.AttendeeHandler{Repo: attendeeRepo, Events: eventRepo, Audit: auditRepo}
	auditH := &handlers.AuditHandler{Repo: auditRepo}

	requireAuth := middleware.RequireAuth(tokens, userRepo)
	authLimiter := middleware.AuthRateLimiter()
	hsts := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders(hsts))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Prometheus)
	r.Use(middleware.RequestLog)
	r.Use(middleware.MaxBytes(maxCSVUploadBytes))

	// Operational endpoints
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public: registration, login, and the events listing
	r.Group(func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/users", authH.Register)
		r.Post("/users/login", authH.Login)
	})
	r.Get("/events", eventH.ListEvents)
	r.Get("/events/{id}", eventH.GetEvent)

	// Protected: everything else goes through the auth guard
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/users/me", userH.Me)
		r.Put("/users/me", userH.UpdateMe)

		r.Post("/events", eventH.CreateEvent)
		r.Put("/events/{id}", eventH.UpdateEvent)
		r.Delete("/events/{id}", eventH.DeleteEvent)

		r.Post("/attendees", attendeeH.CreateAttendee)
		r.Get("/attendees/{id}", attendeeH.GetAttendee)
		r.Put("/attendees/{id}", attendeeH.UpdateAttendee)
		r.Delete("/attendees/{id}", attendeeH.DeleteAttendee)
		r.Post("/attendees/{id}/check-in", attendeeH.CheckIn)
		r.Get("/attendees/event/{id}", attendeeH.ListAttendees)
		r.Post("/attendees/event/{id}/check-in-bulk", attendeeH.BulkCheckIn)
		r.Post("/attendees/event/{id}/bulk-create", attendeeH.BulkCreate)
		r.Post("/attendees/event/{id}/upload-csv", attendeeH.UploadCSV)

		r.Get("/audit", auditH.ListAudit)
	})

	return r
}

// maxCSVUploadBytes caps request bodies; large enough for CSV imports.
const maxCSVUploadBytes = 5 << 20
