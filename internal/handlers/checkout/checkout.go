package checkout

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lumen_back_end/internal/handlers"
	"lumen_back_end/internal/models"
)

type Service interface {
	QuotePromo(ctx context.Context, code string, orderAmount float64) (*models.PromoQuote, error)
	ShippingConfig(ctx context.Context) (models.ShippingConfig, error)
	QuoteShipping(ctx context.Context, orderAmount float64) (*models.ShippingQuote, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/promo-codes/validate", h.ValidatePromo)
	api.GET("/shipping-config", h.GetShippingConfig)
	api.POST("/shipping-config/calculate", h.CalculateShipping)
}

type amountRequest struct {
	Code        string  `json:"code"`
	OrderAmount float64 `json:"orderAmount"`
}

// ValidatePromo calcule la remise d'un code sans consommer d'utilisation.
func (h *Handler) ValidatePromo(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Données invalides")
		return
	}

	quote, err := h.svc.QuotePromo(c.Request.Context(), req.Code, req.OrderAmount)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, "Code promo appliqué", quote)
}

func (h *Handler) GetShippingConfig(c *gin.Context) {
	cfg, err := h.svc.ShippingConfig(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, "", cfg)
}

func (h *Handler) CalculateShipping(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Données invalides")
		return
	}

	quote, err := h.svc.QuoteShipping(c.Request.Context(), req.OrderAmount)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, "", quote)
}
