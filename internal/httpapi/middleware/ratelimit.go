package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit allows requests per window for each client, keyed by API key or
// else by remote address. Example: RateLimit(120, time.Minute).
// A non-positive requests disables limiting.
//
// The remote address is the TCP peer. Proxy headers count only when the
// router runs chi's RealIP first, which it does for trusted proxies.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(keyByAPIKeyOrIP),
		httprate.WithLimitHandler(limitExceeded(window)),
	)
}

func keyByAPIKeyOrIP(r *http.Request) (string, error) {
	if k := readAuth(r); k != "" {
		return "key:" + k, nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}

func limitExceeded(window time.Duration) http.HandlerFunc {
	retry := strconv.Itoa(max(1, int(window.Seconds())))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", retry)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
	}
}
