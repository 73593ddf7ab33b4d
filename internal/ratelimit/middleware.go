package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"inspection-backoffice/pkg/httpx"
	"inspection-backoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	CodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	CodeAuthRateLimitExceeded = "AUTH_RATE_LIMIT_EXCEEDED"
)

// exemptPaths are never counted or rejected.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

func IsExempt(path string) bool {
	_, ok := exemptPaths[path]
	return ok
}

// Options tunes the admission middleware.
type Options struct {
	// OnReject is called once per rejected request (metrics hook).
	OnReject func(class Class)
	// OnError is called when the limiter backend fails; the request is then admitted.
	OnError func(class Class, err error)
}

// Admit returns a gin middleware drawing from class's budget, keyed by client IP.
//
// Backend errors fail open: a Redis outage degrades to no limiting rather than
// taking the login endpoint down with it.
func Admit(l Limiter, class Class, opts Options) gin.HandlerFunc {
	code := CodeRateLimitExceeded
	msg := "Too many requests, please try again later."
	if class == ClassAuth {
		code = CodeAuthRateLimitExceeded
		msg = "Too many authentication attempts, please try again later."
	}

	return func(c *gin.Context) {
		if IsExempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		d, err := l.Admit(c.Request.Context(), c.ClientIP(), class)
		if err != nil {
			logger.FromGin(c).Warn("rate limiter unavailable, admitting request", "class", string(class), "err", err)
			if opts.OnError != nil {
				opts.OnError(class, err)
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			secs := retryAfterSeconds(d.RetryAfter)
			c.Header("Retry-After", strconv.Itoa(secs))
			if opts.OnReject != nil {
				opts.OnReject(class)
			}
			logger.FromGin(c).Info("rate limit exceeded", "class", string(class), "client_ip", c.ClientIP(), "retry_after_s", secs)
			httpx.FailWithDetails(c, http.StatusTooManyRequests, code, msg, gin.H{"retryAfter": secs})
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
