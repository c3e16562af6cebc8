package orders

import (
	"errors"
	"fmt"
	"strings"

	"lumen_back_end/internal/store"
	"lumen_back_end/internal/validation"
)

var (
	ErrNotFound            = store.ErrNotFound
	ErrForbidden           = errors.New("accès refusé à cette commande")
	ErrAlreadyPaid         = errors.New("commande déjà payée")
	ErrEmptyCart           = errors.New("panier vide")
	ErrPaymentNotCompleted = errors.New("paiement non finalisé")
	ErrInvalidSignature    = errors.New("signature webhook invalide")
)

// ValidationError détaille les champs refusés.
type ValidationError = validation.Error

// OutOfStockError liste les produits indisponibles dans la quantité demandée.
type OutOfStockError struct {
	Products []string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("stock insuffisant pour: %s", strings.Join(e.Products, ", "))
}
