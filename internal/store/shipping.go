package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"lumen_back_end/internal/models"
)

const shippingConfigID = "current"

// ShippingStore lit la configuration de livraison active (ks_orders.shipping_config).
type ShippingStore struct {
	session *gocql.Session
}

func NewShippingStore(session *gocql.Session) *ShippingStore {
	return &ShippingStore{session: session}
}

// Active retourne la configuration active, ou les valeurs par défaut si aucune n'est active.
func (s *ShippingStore) Active(ctx context.Context) (models.ShippingConfig, error) {
	var cfg models.ShippingConfig
	err := s.session.Query(
		`SELECT base_shipping_fee, free_shipping_threshold, is_active FROM shipping_config WHERE config_id = ?`,
		shippingConfigID,
	).WithContext(ctx).Scan(&cfg.BaseShippingFee, &cfg.FreeShippingThreshold, &cfg.IsActive)
	if errors.Is(err, gocql.ErrNotFound) {
		return models.DefaultShippingConfig(), nil
	}
	if err != nil {
		return models.ShippingConfig{}, fmt.Errorf("lecture configuration livraison: %w", err)
	}
	if !cfg.IsActive {
		return models.DefaultShippingConfig(), nil
	}
	return cfg, nil
}
