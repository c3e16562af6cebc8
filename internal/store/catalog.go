package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"lumen_back_end/internal/models"
)

var ErrInsufficientStock = errors.New("stock insuffisant")

// maxCASAttempts borne les boucles lire/comparer/écrire sur les LWT.
const maxCASAttempts = 5

var errCASContention = errors.New("trop de conflits concurrents")

// CatalogStore lit les produits et réserve le stock dans ks_products.products.
type CatalogStore struct {
	session *gocql.Session
}

func NewCatalogStore(session *gocql.Session) *CatalogStore {
	return &CatalogStore{session: session}
}

func (s *CatalogStore) Get(ctx context.Context, productID string) (*models.Product, error) {
	id, err := gocql.ParseUUID(productID)
	if err != nil {
		return nil, ErrNotFound
	}

	var p models.Product
	err = s.session.Query(
		`SELECT product_id, name, price, stock, is_available, image_urls FROM products WHERE product_id = ?`, id,
	).WithContext(ctx).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsAvailable, &p.ImageURLs)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lecture produit %s: %w", productID, err)
	}
	return &p, nil
}

// Reserve décrémente le stock de qty via une transaction légère.
func (s *CatalogStore) Reserve(ctx context.Context, productID string, qty int) error {
	return s.adjustStock(ctx, productID, -qty)
}

// Release rend au stock une quantité réservée précédemment.
func (s *CatalogStore) Release(ctx context.Context, productID string, qty int) error {
	return s.adjustStock(ctx, productID, qty)
}

func (s *CatalogStore) adjustStock(ctx context.Context, productID string, delta int) error {
	id, err := gocql.ParseUUID(productID)
	if err != nil {
		return ErrNotFound
	}

	var current int
	err = s.session.Query(`SELECT stock FROM products WHERE product_id = ?`, id).
		WithContext(ctx).Scan(&current)
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lecture stock %s: %w", productID, err)
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		next := current + delta
		if next < 0 {
			return ErrInsufficientStock
		}

		// En cas d'échec, ScanCAS renvoie la valeur actuelle dans current.
		applied, err := s.session.Query(
			`UPDATE products SET stock = ? WHERE product_id = ? IF stock = ?`, next, id, current,
		).WithContext(ctx).SerialConsistency(gocql.LocalSerial).ScanCAS(&current)
		if err != nil {
			return fmt.Errorf("mise à jour stock %s: %w", productID, err)
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("stock %s: %w", productID, errCASContention)
}
