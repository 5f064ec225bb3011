package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/kuitang/notes-api/internal/errs"
)

// DefaultRetryAfterSeconds is the value of the Retry-After header
// when a rate limit is exceeded.
const DefaultRetryAfterSeconds = 1

// ErrMsgTooManyRequests is the public message for a rejected request.
const ErrMsgTooManyRequests = "Too many requests"

// ClientKey identifies the caller by the first X-Forwarded-For hop, falling
// back to the host part of RemoteAddr.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware creates HTTP middleware that enforces per-client rate limits.
// Paths listed in exempt bypass the limiter. Rejected requests get 429 with a
// JSON error body, Retry-After and X-RateLimit-Remaining headers.
func Middleware(limiter *RateLimiter, exempt ...string) func(http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			clientLimiter := limiter.GetLimiter(ClientKey(r))
			if !clientLimiter.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(DefaultRetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeLimited(w)
				return
			}

			remaining := int(clientLimiter.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}

func writeLimited(w http.ResponseWriter) {
	err := errs.New(errs.ResourceExhausted, ErrMsgTooManyRequests)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errs.HTTPStatus(errs.CodeOf(err)))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": errs.MessageOf(err)})
}
