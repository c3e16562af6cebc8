package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	APIMaxRequests = 100 // Par minute pour les endpoints généraux
	APICooldown    = 1 * time.Minute
)

// APIRateLimit limite le nombre de requêtes par IP (fenêtre fixe dans Redis).
// Si Redis ne répond pas, la requête passe.
func APIRateLimit(rdb redis.Cmdable, limit int64, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = APIMaxRequests
	}
	if window <= 0 {
		window = APICooldown
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "api_requests:" + c.ClientIP()

		requests, err := hit(ctx, rdb, key, window)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Rate limit indisponible")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		if requests > limit {
			retry := int(window.Seconds())
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       fmt.Sprintf("Trop de requêtes. Réessayez dans %d secondes", retry),
				"retry_after": retry,
			})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(limit-requests, 10))
		c.Next()
	}
}

// hit incrémente le compteur de la fenêtre. L'expiration n'est posée que si la clé
// n'en a pas : la fenêtre ne glisse pas à chaque requête.
func hit(ctx context.Context, rdb redis.Cmdable, key string, window time.Duration) (int64, error) {
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	if ttl.Val() < 0 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return incr.Val(), nil
}
