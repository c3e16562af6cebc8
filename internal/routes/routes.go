package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"lumen_back_end/internal/handlers/admin"
	"lumen_back_end/internal/handlers/checkout"
	"lumen_back_end/internal/handlers/order"
	"lumen_back_end/internal/logger"
	"lumen_back_end/internal/middleware"
)

// Deps regroupe ce dont le routeur a besoin ; tout est construit dans cmd/server.
type Deps struct {
	ClientURL string
	JWTSecret []byte
	Redis     redis.Cmdable
	RateLimit int64

	Orders   *order.Handler
	Admin    *admin.Handler
	Checkout *checkout.Handler

	// Health vérifie les dépendances ; nil = toujours OK.
	Health func(ctx context.Context) error
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(logger.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{d.ClientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Webhook Cashfree : ni JWT ni rate limit, la signature fait foi
	d.Orders.RegisterWebhook(api)

	limited := api.Group("")
	if d.Redis != nil {
		limited.Use(middleware.APIRateLimit(d.Redis, d.RateLimit, middleware.APICooldown))
	}
	auth := middleware.AuthRequired(d.JWTSecret)

	// Panier → commande → paiement
	d.Orders.Register(limited, auth)

	// Codes promo et livraison (publics)
	d.Checkout.Register(limited)

	// Administration
	d.Admin.Register(limited.Group("/admin", auth, middleware.RequireAdmin))
}
