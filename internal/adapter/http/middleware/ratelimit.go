package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "merchant-backoffice/internal/adapter/storage/redis"
	"merchant-backoffice/internal/core/domain"
	"merchant-backoffice/internal/core/ports"
	"merchant-backoffice/pkg/apperror"
	"merchant-backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultRateLimitPerMinute = 120

// RateLimiter creates a per-client rate-limiting middleware. The
// per-minute limit comes from the settings registry so operators can
// tune it without a restart; a registry or store failure degrades to
// allowing the request.
func RateLimiter(store *redisStore.RateLimitStore, settings ports.SettingsRegistry, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := resolveLimit(c.Request.Context(), settings)
		key := fmt.Sprintf("%s:%s", c.ClientIP(), c.FullPath())

		result, err := store.Allow(c.Request.Context(), key, limit, time.Minute)
		if err != nil {
			log.Warn().Err(err).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		// Always set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

func resolveLimit(ctx context.Context, settings ports.SettingsRegistry) int64 {
	st, err := settings.Get(ctx, domain.SettingAPIRateLimit)
	if err != nil || st == nil {
		return defaultRateLimitPerMinute
	}
	limit, err := strconv.ParseInt(st.Value, 10, 64)
	if err != nil || limit <= 0 {
		return defaultRateLimitPerMinute
	}
	return limit
}
