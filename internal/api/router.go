package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kdimtricp/tubely/internal/log"
	"github.com/kdimtricp/tubely/internal/metrics"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(log.Middleware())
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/ping", PingHandler)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/objects/*", app.ServeObjectHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/videos", app.ListVideosHandler)
		r.Post("/videos", app.CreateVideoHandler)
		r.Get("/videos/{videoID}", app.GetVideoHandler)
		r.Delete("/videos/{videoID}", app.DeleteVideoHandler)
		r.Get("/thumbnails/{videoID}", app.GetThumbnailHandler)

		r.Group(func(r chi.Router) {
			if app.RateLimitPerMinute > 0 {
				r.Use(rateLimit(app.RateLimitPerMinute, time.Minute))
			}
			r.Post("/video_upload/{videoID}", app.UploadVideoHandler)
			r.Post("/thumbnail_upload/{videoID}", app.UploadThumbnailHandler)
		})
	})

	return otelhttp.NewHandler(r, "tubely",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/ping" && r.URL.Path != "/metrics"
		}),
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// rateLimit caps uploads per client IP with a sliding window.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			respondWithJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: "Too many uploads, please try again later",
			})
		}),
	)
}
