package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"lumen_back_end/internal/config"
)

// --- Configuration ScyllaDB ---
type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

type ScyllaManager struct {
	sessions map[string]*gocql.Session // keyspace → session
	configs  map[string]ScyllaKeyspaceConfig
	mu       sync.Mutex
}

// Connections regroupe les clients partagés, construits une fois au démarrage puis injectés.
type Connections struct {
	Mongo    *mongo.Client
	MongoDB  *mongo.Database
	Redis    *redis.Client
	Scylla   *ScyllaManager
	Products *gocql.Session
	Orders   *gocql.Session
}

// Connect ouvre MongoDB, Redis et les sessions ScyllaDB (produits + commandes).
func Connect(ctx context.Context, cfg *config.Config) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conns := &Connections{}

	// 1. MongoDB (commandes)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connexion MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	conns.Mongo = client
	conns.MongoDB = client.Database(cfg.MongoDatabase)
	log.Info().Str("db", cfg.MongoDatabase).Msg("✅ Connecté à MongoDB")

	// 2. Redis (paniers, rate limit)
	conns.Redis = redis.NewClient(&redis.Options{
		Addr:         cfg.RedisHost,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	if err := conns.Redis.Ping(ctx).Err(); err != nil {
		conns.Close(context.Background())
		return nil, fmt.Errorf("connexion Redis: %w", err)
	}
	log.Info().Msg("✅ Connecté à Redis")

	// 3. ScyllaDB (multi-keyspaces)
	conns.Scylla = NewScyllaManager(scyllaConfigs(cfg.Scylla))
	if conns.Products, err = conns.Scylla.GetSession(cfg.Scylla.ProductsKeyspace); err != nil {
		conns.Close(context.Background())
		return nil, err
	}
	if conns.Orders, err = conns.Scylla.GetSession(cfg.Scylla.OrdersKeyspace); err != nil {
		conns.Close(context.Background())
		return nil, err
	}

	log.Info().Msg("✅ Toutes les bases de données sont connectées")
	return conns, nil
}

// Close ferme toutes les connexions ouvertes ; les erreurs sont regroupées.
func (c *Connections) Close(ctx context.Context) error {
	var errs []error
	if c.Scylla != nil {
		c.Scylla.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("fermeture Redis: %w", err))
		}
	}
	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("fermeture MongoDB: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ping vérifie MongoDB et Redis (utilisé par /health).
func (c *Connections) Ping(ctx context.Context) error {
	if err := c.Mongo.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// =============================================
// SCYLLA DB (Multi-Keyspaces avec SSL & Rôles)
// =============================================

func NewScyllaManager(configs map[string]ScyllaKeyspaceConfig) *ScyllaManager {
	return &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  configs,
	}
}

func scyllaConfigs(sc config.ScyllaConfig) map[string]ScyllaKeyspaceConfig {
	configs := make(map[string]ScyllaKeyspaceConfig)

	base := ScyllaKeyspaceConfig{
		Hosts:       sc.Hosts,
		SSLEnabled:  sc.SSLEnabled,
		CACertPath:  sc.CACertPath,
		Timeout:     5 * time.Second,
		NumConns:    20,
		Consistency: gocql.Quorum,
	}

	// --- Keyspace Produits ---
	products := base
	products.Keyspace = sc.ProductsKeyspace
	products.Username = sc.ProductsRole
	products.Password = sc.ProductsPassword
	configs[products.Keyspace] = products

	// --- Keyspace Commandes ---
	orders := base
	orders.Keyspace = sc.OrdersKeyspace
	orders.Username = sc.OrdersRole
	orders.Password = sc.OrdersPassword
	configs[orders.Keyspace] = orders

	return configs
}

func createScyllaCluster(cfg ScyllaKeyspaceConfig) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = cfg.Consistency
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = cfg.Timeout
	cluster.NumConns = cfg.NumConns
	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	if cfg.SSLEnabled {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CACertPath != "" {
			caCert, err := os.ReadFile(cfg.CACertPath)
			if err != nil {
				return nil, fmt.Errorf("impossible de lire le certificat CA: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caCert) {
				return nil, errors.New("impossible de parser le certificat CA")
			}
			tlsCfg.RootCAs = pool
		}
		cluster.SslOpts = &gocql.SslOptions{Config: tlsCfg, EnableHostVerification: true}
	}

	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster, nil
}

// GetSession retourne (ou crée) la session d'un keyspace configuré.
func (sm *ScyllaManager) GetSession(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cfg, ok := sm.configs[keyspace]
	if !ok {
		return nil, fmt.Errorf("keyspace '%s' non configuré", keyspace)
	}
	if session, ok := sm.sessions[keyspace]; ok && !session.Closed() {
		return session, nil
	}

	cluster, err := createScyllaCluster(cfg)
	if err != nil {
		return nil, fmt.Errorf("erreur configuration cluster pour %s: %w", keyspace, err)
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", keyspace, err)
	}

	sm.sessions[keyspace] = session
	log.Info().Str("keyspace", keyspace).Str("role", cfg.Username).Msg("✅ Nouvelle session ScyllaDB")
	return session, nil
}

// Close ferme toutes les sessions ScyllaDB.
func (sm *ScyllaManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for keyspace, session := range sm.sessions {
		session.Close()
		delete(sm.sessions, keyspace)
		log.Info().Str("keyspace", keyspace).Msg("🔌 Session ScyllaDB fermée")
	}
}
