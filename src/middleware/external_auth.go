package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/ratelimit"
	"github.com/zapflow/zapflow-api/src/services"
)

// APIKeyHeader carries the external bearer token
const APIKeyHeader = "x-api-key"

// AuthResultKey is the context key for the resolved caller identity
const AuthResultKey = "auth_result"

// ExternalAuthMiddleware authenticates the x-api-key header and enforces the
// per-key and per-IP rate limits before any handler runs. All authentication
// failures produce the same generic 401 body; the log line is the only place
// that records which check rejected the request. ipLimit caps requests per
// source IP per window; zero or negative selects the default.
func ExternalAuthMiddleware(authService *services.AuthService, limiter ratelimit.Store, ipLimit int) gin.HandlerFunc {
	if ipLimit <= 0 {
		ipLimit = models.DefaultRateLimitPerMinute
	}

	return func(c *gin.Context) {
		rawKey := c.GetHeader(APIKeyHeader)
		clientIP := c.ClientIP()

		res, err := authService.Authenticate(c.Request.Context(), rawKey, clientIP)
		if err != nil {
			log.Warn().
				Err(err).
				Str("request_id", GetRequestID(c)).
				Str("client_ip", clientIP).
				Msg("external authentication rejected")

			switch {
			case errors.Is(err, services.ErrIPNotAllowed):
				c.JSON(http.StatusForbidden, gin.H{
					"success": false,
					"error":   "forbidden",
				})
			case errors.Is(err, services.ErrInvalidToken),
				errors.Is(err, services.ErrKeyNotFound),
				errors.Is(err, services.ErrKeyRevoked),
				errors.Is(err, services.ErrKeyExpired),
				errors.Is(err, services.ErrBadSecret):
				c.JSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"error":   "invalid API key",
				})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "internal error",
				})
			}
			c.Abort()
			return
		}

		// Per-key bucket first; legacy callers have no key of their own
		if !res.Legacy {
			if r := limiter.Check("ext:msg:key:"+res.APIKeyID.String(), res.RateLimitPerMinute); !r.Allowed {
				tooManyRequests(c, r, "api_key", clientIP)
				return
			}
		}

		// Per-IP bucket applies unconditionally, legacy callers included
		if r := limiter.Check("ext:msg:ip:"+clientIP, ipLimit); !r.Allowed {
			tooManyRequests(c, r, "ip", clientIP)
			return
		}

		c.Set(AuthResultKey, res)
		c.Next()
	}
}

func tooManyRequests(c *gin.Context, r ratelimit.Result, bucket, clientIP string) {
	log.Warn().
		Str("request_id", GetRequestID(c)).
		Str("client_ip", clientIP).
		Str("bucket", bucket).
		Int64("reset_in_ms", r.ResetInMs).
		Msg("rate limit exceeded")

	c.JSON(http.StatusTooManyRequests, gin.H{
		"success":        false,
		"error":          "rate limit exceeded",
		"retry_after_ms": r.ResetInMs,
	})
	c.Abort()
}

// GetAuthResult retrieves the resolved caller identity from context
func GetAuthResult(c *gin.Context) *services.AuthResult {
	if v, exists := c.Get(AuthResultKey); exists {
		if res, ok := v.(*services.AuthResult); ok {
			return res
		}
	}
	return nil
}
