package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/flodesk-bridge/internal/httputil"
)

const (
	headerRateLimitRequests  = "X-RateLimit-Limit-Requests"
	headerRateLimitRemaining = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset     = "X-RateLimit-Reset-Requests"
	headerRetryAfter         = "Retry-After"
)

// Middleware returns chi middleware enforcing a per-account request limit
// over a one-minute sliding window. Each account gets its own bucket so one
// tenant burning through its Flodesk quota cannot starve the others.
func Middleware(limiter *Limiter, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			result, _ := limiter.Check(r.Context(), bucketKey(r), perMinute)

			w.Header().Set(headerRateLimitRequests, strconv.Itoa(perMinute))
			w.Header().Set(headerRateLimitRemaining, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"bucket", bucketKey(r),
					"limit", perMinute,
				)
				w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
				httputil.WriteJSON(w, reqID, http.StatusTooManyRequests,
					httputil.Fail(fmt.Sprintf("rate limit exceeded: %d requests per minute", perMinute), nil))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bucketKey identifies the tenant: the account id when present, otherwise a
// digest of the supplied credential, otherwise the caller's address. The raw
// credential never appears in a Redis key.
func bucketKey(r *http.Request) string {
	if accountID := r.Header.Get("X-Account-ID"); accountID != "" {
		return "account:" + accountID
	}

	cred := r.Header.Get("x-api-key")
	if cred == "" {
		cred = r.Header.Get("Authorization")
	}
	if cred != "" {
		sum := sha256.Sum256([]byte(cred))
		return "cred:" + hex.EncodeToString(sum[:8])
	}

	return "addr:" + r.RemoteAddr
}
