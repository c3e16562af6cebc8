package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lumen_back_end/internal/orders"
	"lumen_back_end/internal/services/payment"
)

// Envelope est la forme commune de toutes les réponses JSON de l'API.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Envelope{Success: false, Error: msg})
}

// RespondError traduit une erreur métier en réponse HTTP.
func RespondError(c *gin.Context, err error) {
	var (
		vErr   *orders.ValidationError
		stock  *orders.OutOfStockError
		gwErr  *payment.GatewayError
		status int
		msg    string
	)

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: "Données invalides", Errors: vErr.Fields})
		return
	case errors.As(err, &stock):
		c.JSON(http.StatusBadRequest, Envelope{
			Success: false,
			Error:   "Stock insuffisant",
			Data:    gin.H{"products": stock.Products},
		})
		return
	case errors.Is(err, orders.ErrNotFound):
		status, msg = http.StatusNotFound, "Commande introuvable"
	case errors.Is(err, orders.ErrForbidden):
		status, msg = http.StatusForbidden, "Accès refusé"
	case errors.Is(err, orders.ErrAlreadyPaid):
		status, msg = http.StatusBadRequest, "Commande déjà payée"
	case errors.Is(err, orders.ErrEmptyCart):
		status, msg = http.StatusBadRequest, "Panier vide"
	case errors.Is(err, orders.ErrPaymentNotCompleted):
		status, msg = http.StatusBadRequest, "Paiement non finalisé"
	case errors.Is(err, orders.ErrInvalidSignature):
		status, msg = http.StatusUnauthorized, "Signature invalide"
	case errors.As(err, &gwErr):
		log.Error().Err(err).Str("op", gwErr.Op).Int("provider_status", gwErr.StatusCode).Msg("❌ Erreur passerelle de paiement")
		status, msg = http.StatusBadGateway, "Erreur du prestataire de paiement"
		if gwErr.Message != "" {
			msg += " : " + gwErr.Message
		}
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("❌ Erreur interne")
		status, msg = http.StatusInternalServerError, "Erreur interne du serveur"
	}
	Fail(c, status, msg)
}
