package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gocql/gocql"

	"lumen_back_end/internal/models"
)

var ErrPromoExhausted = errors.New("quota du code promo atteint")

// PromoStore lit les codes promo et tient leur compteur d'utilisation dans ks_orders.promo_codes.
type PromoStore struct {
	session *gocql.Session
}

func NewPromoStore(session *gocql.Session) *PromoStore {
	return &PromoStore{session: session}
}

// NormalizeCode met le code au format de stockage (majuscules, sans espaces).
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *PromoStore) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var p models.PromoCode
	err := s.session.Query(`
		SELECT code, description, discount_type, discount_value, min_order_amount,
		       max_discount_amount, usage_limit, used_count, valid_from, valid_until, is_active
		FROM promo_codes WHERE code = ?`, NormalizeCode(code),
	).WithContext(ctx).Scan(
		&p.Code, &p.Description, &p.DiscountType, &p.DiscountValue, &p.MinOrderAmount,
		&p.MaxDiscountAmount, &p.UsageLimit, &p.UsedCount, &p.ValidFrom, &p.ValidUntil, &p.IsActive,
	)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture code promo %s: %w", code, err)
	}
	return &p, nil
}

// IncrementUsage consomme une utilisation du code, sans jamais dépasser usage_limit.
func (s *PromoStore) IncrementUsage(ctx context.Context, code string) error {
	code = NormalizeCode(code)

	var (
		used  int
		limit *int
	)
	err := s.session.Query(`SELECT used_count, usage_limit FROM promo_codes WHERE code = ?`, code).
		WithContext(ctx).Scan(&used, &limit)
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lecture compteur %s: %w", code, err)
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if limit != nil && used >= *limit {
			return ErrPromoExhausted
		}
		applied, err := s.session.Query(
			`UPDATE promo_codes SET used_count = ? WHERE code = ? IF used_count = ?`, used+1, code, used,
		).WithContext(ctx).SerialConsistency(gocql.LocalSerial).ScanCAS(&used)
		if err != nil {
			return fmt.Errorf("incrément compteur %s: %w", code, err)
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("code promo %s: %w", code, errCASContention)
}

// ReleaseUsage rend une utilisation consommée par une commande qui n'a pas pu être créée.
func (s *PromoStore) ReleaseUsage(ctx context.Context, code string) error {
	code = NormalizeCode(code)

	var used int
	err := s.session.Query(`SELECT used_count FROM promo_codes WHERE code = ?`, code).
		WithContext(ctx).Scan(&used)
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lecture compteur %s: %w", code, err)
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if used <= 0 {
			return nil
		}
		applied, err := s.session.Query(
			`UPDATE promo_codes SET used_count = ? WHERE code = ? IF used_count = ?`, used-1, code, used,
		).WithContext(ctx).SerialConsistency(gocql.LocalSerial).ScanCAS(&used)
		if err != nil {
			return fmt.Errorf("décrément compteur %s: %w", code, err)
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("code promo %s: %w", code, errCASContention)
}
