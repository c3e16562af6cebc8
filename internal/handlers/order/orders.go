package order

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lumen_back_end/internal/handlers"
	"lumen_back_end/internal/middleware"
	"lumen_back_end/internal/models"
	"lumen_back_end/internal/orders"
)

// Service est la partie du contrôleur de commandes utilisée par ces routes.
type Service interface {
	CreateOrder(ctx context.Context, customer models.Customer, in orders.CreateOrderInput) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) ([]models.Order, error)
	GetOrder(ctx context.Context, orderID string, user models.Customer) (*models.Order, error)
	InitiatePayment(ctx context.Context, orderID string, user models.Customer) (*orders.PaymentSession, error)
	ReconcileFromClientPoll(ctx context.Context, orderID string, user models.Customer) (*models.Order, error)
	ReconcileFromWebhook(ctx context.Context, rawBody []byte, timestamp, signature string) (orders.WebhookResult, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterWebhook monte le webhook Cashfree, authentifié par signature et non limité.
func (h *Handler) RegisterWebhook(api *gin.RouterGroup) {
	api.POST("/orders/webhook", h.Webhook)
}

// Register monte les routes client protégées par JWT.
func (h *Handler) Register(api *gin.RouterGroup, auth gin.HandlerFunc) {
	grp := api.Group("/orders", auth)
	grp.POST("", h.Create)
	grp.GET("", h.List)
	grp.GET("/:id", h.Get)
	grp.POST("/:id/payment", h.Payment)
	grp.POST("/:id/verify-payment", h.VerifyPayment)
}

// Create transforme le panier de l'utilisateur en commande en attente.
func (h *Handler) Create(c *gin.Context) {
	var in orders.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		handlers.Fail(c, http.StatusBadRequest, "Données invalides")
		return
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), middleware.CurrentCustomer(c), in)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusCreated, "Commande créée", order)
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.ListOrders(c.Request.Context(), middleware.CurrentCustomer(c).UserID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	handlers.OK(c, http.StatusOK, "", list)
}

func (h *Handler) Get(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"), middleware.CurrentCustomer(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, "", order)
}

// Payment ouvre une session de paiement Cashfree pour une commande en attente.
func (h *Handler) Payment(c *gin.Context) {
	session, err := h.svc.InitiatePayment(c.Request.Context(), c.Param("id"), middleware.CurrentCustomer(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, "Session de paiement créée", session)
}

// VerifyPayment est appelé par le front au retour de Cashfree.
func (h *Handler) VerifyPayment(c *gin.Context) {
	order, err := h.svc.ReconcileFromClientPoll(c.Request.Context(), c.Param("id"), middleware.CurrentCustomer(c))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	handlers.OK(c, http.StatusOK, "Paiement vérifié", order)
}
