package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"podclip-backend/internal/handlers"
	"podclip-backend/internal/middleware"
	"podclip-backend/internal/websocket"
)

type Handlers struct {
	Upload  *handlers.UploadHandler
	YouTube *handlers.YouTubeHandler
	Clip    *handlers.ClipHandler
	Job     *handlers.JobHandler
	User    *handlers.UserHandler
}

func New(
	jwtAuth *middleware.JWTAuth,
	h Handlers,
	wsHub *websocket.Hub,
	gatherer prometheus.Gatherer,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Submissions start paid work; 20 per user per minute is far above
	// what the dashboard sends.
	submitLimiter := middleware.NewRateLimiter(20, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket authenticates through its query string
		r.Get("/ws", wsHub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Get("/me", h.User.GetMe)

			r.Route("/uploads", func(r chi.Router) {
				r.Get("/", h.Upload.List)
				r.Group(func(r chi.Router) {
					r.Use(submitLimiter.Middleware)
					r.Post("/", h.Upload.Create)
					r.Post("/{id}/process", h.Upload.Process)
				})
			})

			r.With(submitLimiter.Middleware).Post("/youtube", h.YouTube.Submit)

			r.Route("/clips", func(r chi.Router) {
				r.Get("/", h.Clip.List)
				r.Get("/{id}/play-url", h.Clip.PlayURL)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", h.Job.List)
				r.Get("/{id}", h.Job.Get)
			})
		})
	})

	return r
}
