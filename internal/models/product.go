package models

import "github.com/gocql/gocql"

// Product ne contient que les colonnes dont la commande a besoin.
type Product struct {
	ID          gocql.UUID `json:"id" db:"product_id"`
	Name        string     `json:"name" db:"name"`
	Price       float64    `json:"price" db:"price"`
	Stock       int        `json:"stock" db:"stock"`
	IsAvailable bool       `json:"is_available" db:"is_available"`
	ImageURLs   []string   `json:"image_urls" db:"image_urls"`
}

// InStock vérifie la disponibilité pour une quantité donnée.
func (p *Product) InStock(qty int) bool {
	return p.IsAvailable && p.Stock >= qty
}

// FirstImage retourne la première image pour l'aperçu de commande.
func (p *Product) FirstImage() string {
	if len(p.ImageURLs) > 0 {
		return p.ImageURLs[0]
	}
	return ""
}
