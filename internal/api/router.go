package api

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/kuitang/notes-api/internal/metrics"
	"github.com/kuitang/notes-api/internal/obs"
	"github.com/kuitang/notes-api/internal/ratelimit"
)

// RouterOptions holds the optional pieces of the middleware chain.
type RouterOptions struct {
	// Metrics enables request instrumentation and mounts GET /metrics.
	Metrics *metrics.Metrics
	// Limiter enables per-client rate limiting. /healthz and /metrics are exempt.
	Limiter *ratelimit.RateLimiter
}

// NewRouter builds the full HTTP handler:
// CORS -> request context -> access log -> rate limit -> metrics -> mux.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var handler http.Handler = mux
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
		// Wraps the mux directly so r.Pattern is populated when it records.
		handler = opts.Metrics.Middleware(handler)
	}
	if opts.Limiter != nil {
		handler = ratelimit.Middleware(opts.Limiter, "/healthz", "/metrics")(handler)
	}
	handler = obs.AccessLogMiddleware("api", handler)
	handler = obs.RequestContextMiddleware(handler)
	return cors.AllowAll().Handler(handler)
}
