package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/erazemk/reclaim/internal/logger"
	"github.com/erazemk/reclaim/internal/metrics"
	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/store"
)

// Options are the dependencies of the router.
type Options struct {
	DB        *sql.DB
	JWTSecret string

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Metrics defaults to a fresh registry with the "reclaim" prefix.
	Metrics *metrics.Metrics

	// CORSOrigins enables cross-origin requests from these origins.
	CORSOrigins []string
	// RecentActivityLimit bounds GET /api/audit-trail.
	RecentActivityLimit int

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRouter creates the HTTP handler with every endpoint registered.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New("reclaim")
	}
	if opts.RecentActivityLimit <= 0 {
		opts.RecentActivityLimit = store.DefaultRecentActivity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret}
	usersHandler := &UsersHandler{DB: opts.DB}
	materialsHandler := &MaterialsHandler{DB: opts.DB, Metrics: opts.Metrics, Now: opts.Now}
	picturesHandler := &PicturesHandler{DB: opts.DB, Metrics: opts.Metrics}
	spreadsheetHandler := &SpreadsheetHandler{DB: opts.DB, Metrics: opts.Metrics}
	auditHandler := &AuditHandler{DB: opts.DB, Limit: opts.RecentActivityLimit}

	authMW := AuthMiddleware(opts.JWTSecret, opts.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.Middleware)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", health(opts.DB))
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public: login.
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMW)

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/password", authHandler.ChangePassword)
			r.With(requireAdmin).Post("/auth/register", authHandler.Register)

			// Materials: read (all roles), write (manager+).
			r.Route("/materials", func(r chi.Router) {
				r.Get("/", materialsHandler.List)
				r.Get("/stats", materialsHandler.Stats)
				r.Get("/export-excel", spreadsheetHandler.Export)
				r.Get("/excel-template", spreadsheetHandler.Template)
				r.Get("/pictures/{pictureID}", picturesHandler.Get)
				r.Get("/{id}", materialsHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(requireManager)
					r.Post("/", materialsHandler.Create)
					r.Post("/import-excel", spreadsheetHandler.Import)
					r.Put("/{id}", materialsHandler.Update)
					r.Delete("/{id}", materialsHandler.Delete)
					r.Post("/{id}/pictures", picturesHandler.Add)
					r.Delete("/{id}/pictures/{pictureID}", picturesHandler.Remove)
					r.Put("/{id}/pictures/{pictureID}/primary", picturesHandler.SetPrimary)
				})
			})

			r.Route("/audit-trail", func(r chi.Router) {
				r.Get("/", auditHandler.Recent)
				r.Get("/material/{id}", auditHandler.Material)
				r.Get("/user/{id}", auditHandler.User)
			})

			// Users (admin only).
			r.Route("/users", func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", usersHandler.List)
				r.Get("/{id}", usersHandler.Get)
				r.Put("/{id}/password", usersHandler.ResetPassword)
				r.Delete("/{id}", usersHandler.Delete)
			})
		})
	})

	return r
}

// health answers 200 while the database responds.
func health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
