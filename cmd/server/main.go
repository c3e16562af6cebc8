package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lumen_back_end/internal/config"
	"lumen_back_end/internal/database"
	"lumen_back_end/internal/handlers/admin"
	"lumen_back_end/internal/handlers/checkout"
	"lumen_back_end/internal/handlers/order"
	"lumen_back_end/internal/logger"
	"lumen_back_end/internal/orders"
	"lumen_back_end/internal/routes"
	"lumen_back_end/internal/services/notification"
	"lumen_back_end/internal/services/payment"
	"lumen_back_end/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Configuration invalide")
	}
	logger.Init(cfg.LogLevel, cfg.GinMode)
	gin.SetMode(cfg.GinMode)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Impossible d'initialiser Cashfree")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conns, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Connexion aux bases de données échouée")
	}

	orderStore := store.NewOrderStore(conns.MongoDB)
	if err := orderStore.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("❌ Création des index MongoDB échouée")
	}

	gateway := payment.NewCashfreeClient(payment.CashfreeOptions{
		AppID:     cfg.Cashfree.AppID,
		SecretKey: cfg.Cashfree.SecretKey,
		Env:       cfg.Cashfree.Env,
		ClientURL: cfg.ClientURL,
		ServerURL: cfg.ServerURL,
		Timeout:   cfg.Cashfree.Timeout,
	})
	log.Info().Str("env", cfg.Cashfree.Env).Str("base_url", gateway.BaseURL()).Msg("✅ Cashfree initialisé")

	dispatcher := notification.NewDispatcher(
		notification.NewSMTPMailer(notification.SMTPOptions{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}),
		notification.Options{
			AdminEmail: cfg.SMTP.AdminEmail,
			Workers:    cfg.NotifyWorkers,
			QueueSize:  cfg.NotifyQueueSize,
		},
	)

	svc := orders.NewService(orders.Deps{
		Orders:        orderStore,
		Carts:         store.NewCartStore(conns.Redis),
		Catalog:       store.NewCatalogStore(conns.Products),
		Promos:        store.NewPromoStore(conns.Orders),
		Shipping:      store.NewShippingStore(conns.Orders),
		Gateway:       gateway,
		Notifier:      dispatcher,
		WebhookSecret: cfg.Cashfree.WebhookSecret,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	routes.RegisterRoutes(r, routes.Deps{
		ClientURL: cfg.ClientURL,
		JWTSecret: []byte(cfg.JWTSecret),
		Redis:     conns.Redis,
		Orders:    order.NewHandler(svc),
		Admin:     admin.NewHandler(svc),
		Checkout:  checkout.NewHandler(svc),
		Health:    conns.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("🚀 Serveur Lumen lancé")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("❌ Serveur HTTP arrêté")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("🛑 Arrêt demandé, fermeture en cours")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ Arrêt HTTP incomplet")
	}
	// Les emails en file partent avant la fermeture des bases
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("⚠️ Emails non envoyés à l'arrêt")
	}
	if err := conns.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ Fermeture des connexions")
	}
	log.Info().Msg("👋 Serveur arrêté")
}
