package order

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lumen_back_end/internal/handlers"
	"lumen_back_end/internal/orders"
	"lumen_back_end/internal/services/payment"
)

const maxWebhookBody = int64(65536)

// Webhook reçoit les notifications Cashfree. Seule une signature invalide est refusée :
// tout le reste est acquitté en 200 pour éviter les relances inutiles.
func (h *Handler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)

	// Un corps tronqué ne peut pas être authentifié : même réponse qu'une signature invalide.
	payload, err := c.GetRawData()
	if err != nil {
		log.Warn().Err(err).Int64("max_bytes", maxWebhookBody).Msg("🚨 Webhook rejeté : corps illisible ou trop volumineux")
		handlers.Fail(c, http.StatusUnauthorized, "Signature invalide")
		return
	}

	res, err := h.svc.ReconcileFromWebhook(
		c.Request.Context(),
		payload,
		c.GetHeader(payment.HeaderTimestamp),
		c.GetHeader(payment.HeaderSignature),
	)
	switch {
	case errors.Is(err, orders.ErrInvalidSignature):
		handlers.Fail(c, http.StatusUnauthorized, "Signature invalide")
		return
	case err != nil:
		log.Error().Err(err).Str("type", res.EventType).Str("order", res.OrderNumber).Msg("❌ Traitement webhook échoué")
	default:
		log.Info().
			Str("type", res.EventType).
			Str("order", res.OrderNumber).
			Str("outcome", res.Outcome.String()).
			Bool("notified", res.Notified).
			Bool("ignored", res.Ignored).
			Msg("📥 Webhook Cashfree traité")
	}
	c.JSON(http.StatusOK, handlers.Envelope{Success: true})
}
