package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lumen_back_end/internal/handlers"
	"lumen_back_end/internal/models"
	"lumen_back_end/internal/orders"
	"lumen_back_end/internal/store"
	"lumen_back_end/internal/validation"
)

type Service interface {
	ListAllOrders(ctx context.Context, f store.OrderFilter) (*orders.OrderPage, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string, deliveryLink *string) (*models.Order, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register monte les routes admin ; le groupe reçu porte déjà JWT + RequireAdmin.
func (h *Handler) Register(grp *gin.RouterGroup) {
	grp.GET("/orders", h.ListOrders)
	grp.GET("/orders/:orderNumber", h.GetOrderByNumber)
	grp.PUT("/orders/:id/status", h.UpdateOrderStatus)
}

const dateLayout = "2006-01-02"

// ListOrders : ?page, limit, orderStatus, paymentStatus, search, startDate, endDate.
func (h *Handler) ListOrders(c *gin.Context) {
	f := store.OrderFilter{
		PaymentStatus: models.PaymentStatus(c.Query("paymentStatus")),
		OrderStatus:   models.OrderStatus(c.Query("orderStatus")),
		Search:        c.Query("search"),
	}

	fields := map[string]string{}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["page"] = "must be a number"
		}
		f.Page = n
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fields["limit"] = "must be a number"
		}
		f.Limit = n
	}
	if v := c.Query("startDate"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			fields["startDate"] = "must be a date (YYYY-MM-DD)"
		}
		f.From = t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			fields["endDate"] = "must be a date (YYYY-MM-DD)"
		} else {
			// jour inclus jusqu'à 23:59:59.999
			f.To = t.Add(24*time.Hour - time.Millisecond)
		}
	}
	if len(fields) > 0 {
		handlers.RespondError(c, &validation.Error{Fields: fields})
		return
	}

	page, err := h.svc.ListAllOrders(c.Request.Context(), f)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if page.Orders == nil {
		page.Orders = []models.Order{}
	}
	handlers.OK(c, http.StatusOK, "", page)
}

func (h *Handler) GetOrderByNumber(c *gin.Context) {
	order, err := h.svc.GetOrderByNumber(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, "", order)
}

// UpdateOrderStatus ne touche jamais au statut de paiement.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		OrderStatus  string  `json:"orderStatus"`
		DeliveryLink *string `json:"deliveryLink"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Données invalides")
		return
	}

	order, err := h.svc.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.OrderStatus, req.DeliveryLink)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, "Statut de commande mis à jour", order)
}
