package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tutorly-backend/internal/handlers"
	"tutorly-backend/internal/middleware"
	"tutorly-backend/internal/websocket"
)

type Handlers struct {
	Profile   *handlers.ProfileHandler
	Plan      *handlers.PlanHandler
	Tutor     *handlers.TutorHandler
	Dashboard *handlers.DashboardHandler
}

func New(
	jwtAuth *middleware.JWTAuth,
	h Handlers,
	generationLimiter *middleware.RateLimiter,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Profile Routes ────
		r.Route("/profile", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", h.Profile.Get)
			r.Put("/", h.Profile.Update)
		})

		// ──── Plan Routes ────
		r.Route("/plans", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.With(generationLimiter.Middleware).Post("/", h.Plan.Generate)
			r.Get("/latest", h.Plan.Latest)
			r.Get("/latest/next-session", h.Plan.NextSession)
		})

		// ──── Tutor Routes ────
		r.Route("/tutor/conversations", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", h.Tutor.Open)
			r.Get("/{id}", h.Tutor.Get)
			r.With(generationLimiter.Middleware).Post("/{id}/turns", h.Tutor.Ask)
		})

		// ──── Dashboard & Progress Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/progress", h.Dashboard.Progress)
		})

		r.Route("/progress", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/import", h.Dashboard.Import)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
