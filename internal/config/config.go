package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config regroupe toute la configuration du serveur, lue depuis l'environnement.
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	ClientURL string
	ServerURL string
	JWTSecret string

	MongoURI      string
	MongoDatabase string

	RedisHost     string
	RedisPassword string

	Scylla ScyllaConfig

	Cashfree CashfreeConfig

	SMTP SMTPConfig

	NotifyWorkers   int
	NotifyQueueSize int
}

type ScyllaConfig struct {
	Hosts            []string
	SSLEnabled       bool
	CACertPath       string
	ProductsKeyspace string
	ProductsRole     string
	ProductsPassword string
	OrdersKeyspace   string
	OrdersRole       string
	OrdersPassword   string
}

type CashfreeConfig struct {
	AppID         string
	SecretKey     string
	WebhookSecret string
	Env           string // "PROD" ou "TEST"
	Timeout       time.Duration
}

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
}

// Load charge le fichier .env (optionnel) puis construit la configuration.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Info().Msg("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Info().Msg("✅ Fichier .env chargé avec succès")
	}
	return FromEnv()
}

// FromEnv lit la configuration sans toucher au fichier .env.
func FromEnv() (*Config, error) {
	timeout, err := durationEnv("GATEWAY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	smtpPort, err := intEnv("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	workers, err := intEnv("NOTIFY_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	queueSize, err := intEnv("NOTIFY_QUEUE_SIZE", 100)
	if err != nil {
		return nil, err
	}

	secretKey := os.Getenv("CASHFREE_SECRET_KEY")
	cfg := &Config{
		Port:          stringEnv("PORT", "8080"),
		GinMode:       stringEnv("GIN_MODE", "debug"),
		LogLevel:      stringEnv("LOG_LEVEL", "info"),
		ClientURL:     strings.TrimRight(stringEnv("CLIENT_URL", "http://localhost:5173"), "/"),
		ServerURL:     strings.TrimRight(stringEnv("SERVER_URL", "http://localhost:8080"), "/"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		MongoURI:      stringEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: stringEnv("MONGODB_DATABASE", "lumen"),
		RedisHost:     stringEnv("REDIS_HOST", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Scylla: ScyllaConfig{
			Hosts:            splitList(stringEnv("SCYLLA_HOSTS", "127.0.0.1")),
			SSLEnabled:       strings.ToLower(os.Getenv("SCYLLA_SSL_ENABLED")) == "true",
			CACertPath:       os.Getenv("SCYLLA_SSL_CA_PATH"),
			ProductsKeyspace: stringEnv("SCYLLA_KS_PRODUCTS_KEYSPACE", "ks_products"),
			ProductsRole:     os.Getenv("SCYLLA_KS_PRODUCTS_ROLE"),
			ProductsPassword: os.Getenv("SCYLLA_KS_PRODUCTS_PASSWORD"),
			OrdersKeyspace:   stringEnv("SCYLLA_KS_ORDERS_KEYSPACE", "ks_orders"),
			OrdersRole:       os.Getenv("SCYLLA_KS_ORDERS_ROLE"),
			OrdersPassword:   os.Getenv("SCYLLA_KS_ORDERS_PASSWORD"),
		},
		Cashfree: CashfreeConfig{
			AppID:         os.Getenv("CASHFREE_APP_ID"),
			SecretKey:     secretKey,
			WebhookSecret: stringEnv("CASHFREE_WEBHOOK_SECRET", secretKey),
			Env:           strings.ToUpper(stringEnv("CASHFREE_ENV", "TEST")),
			Timeout:       timeout,
		},
		SMTP: SMTPConfig{
			Host:       stringEnv("SMTP_HOST", "localhost"),
			Port:       smtpPort,
			Username:   os.Getenv("SMTP_USERNAME"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       stringEnv("MAIL_FROM", "noreply@lumen.in"),
			AdminEmail: stringEnv("ADMIN_EMAIL", "admin@lumen.in"),
		},
		NotifyWorkers:   workers,
		NotifyQueueSize: queueSize,
	}
	return cfg, nil
}

// Validate vérifie les valeurs sans lesquelles le serveur ne peut pas démarrer.
func (c *Config) Validate() error {
	var missing []string
	if c.Cashfree.AppID == "" {
		missing = append(missing, "CASHFREE_APP_ID")
	}
	if c.Cashfree.SecretKey == "" {
		missing = append(missing, "CASHFREE_SECRET_KEY")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("variables manquantes: %s", strings.Join(missing, ", "))
	}
	return nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s invalide: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s invalide: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
