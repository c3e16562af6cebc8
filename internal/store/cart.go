package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"lumen_back_end/internal/models"
)

func cartKey(userID string) string { return "cart:" + userID }

// CartStore lit et vide le panier JSON stocké sous cart:<userId>.
type CartStore struct {
	rdb redis.Cmdable
}

func NewCartStore(rdb redis.Cmdable) *CartStore {
	return &CartStore{rdb: rdb}
}

// Get retourne le panier, vide si la clé n'existe pas.
func (s *CartStore) Get(ctx context.Context, userID string) ([]models.CartItem, error) {
	data, err := s.rdb.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture panier %s: %w", userID, err)
	}

	var cart []models.CartItem
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("panier %s illisible: %w", userID, err)
	}
	return cart, nil
}

func (s *CartStore) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("vidage panier %s: %w", userID, err)
	}
	return nil
}
