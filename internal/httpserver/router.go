package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"hoitoportaali/internal/access"
	"hoitoportaali/internal/approvals"
	"hoitoportaali/internal/audit"
	"hoitoportaali/internal/auth"
	"hoitoportaali/internal/metrics"
	"hoitoportaali/internal/navigation"
	"hoitoportaali/internal/session"
)

type Deps struct {
	Logger    zerolog.Logger
	Sessions  *session.Manager
	Tokens    *session.Tokens
	Resolver  *access.Resolver
	Registry  *access.Registry
	Menu      navigation.Menu
	Approvals *approvals.Workflow
	Audit     audit.Lister
	Recorder  audit.Recorder
	// Diagnostics lets login callers ask for the internal failure reason.
	Diagnostics bool
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	if d.Recorder == nil {
		d.Recorder = audit.Nop{}
	}
	if d.Menu == nil {
		d.Menu = navigation.DefaultMenu()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(requestLogger(d.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	ah := &authHandlers{sessions: d.Sessions, tokens: d.Tokens, logger: d.Logger, diagnostics: d.Diagnostics}
	xh := &accessHandlers{resolver: d.Resolver, registry: d.Registry, menu: d.Menu, recorder: d.Recorder, logger: d.Logger}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(sessionMiddleware(d.Tokens, d.Sessions, d.Logger))

		r.Post("/auth/login", ah.login)
		r.Post("/auth/patient-login", ah.patientLogin)
		r.Post("/auth/logout", ah.logout)

		r.Get("/access/{pageID}", xh.check)
		r.Get("/navigation", xh.navigation)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/session", ah.current)
			r.Patch("/session/shift", ah.shift)
		})

		r.Route("/page-permissions", func(r chi.Router) {
			r.Use(requirePage(d.Resolver, auth.PageSettings))
			r.Get("/", xh.list)
			r.Get("/{pageID}", xh.get)
			r.Put("/{pageID}", xh.put)
			r.Delete("/{pageID}", xh.delete)
		})

		if d.Approvals != nil {
			aph := &approvals.Handler{Workflow: d.Approvals, Logger: d.Logger}
			r.Route("/approvals", func(r chi.Router) {
				r.Use(requirePage(d.Resolver, auth.PagePatientRecords))
				r.Post("/", aph.Submit)
				r.Get("/", aph.List)
				r.Post("/{id}/review", aph.Review)
				r.Post("/{id}/approve", aph.Approve)
				r.Post("/{id}/reject", aph.Reject)
			})
		}

		if d.Audit != nil {
			r.With(requirePage(d.Resolver, auth.PageAuditLogs)).
				Method(http.MethodGet, "/audit", &audit.QueryHandler{Store: d.Audit, Logger: d.Logger})
		}
	})

	return r
}
