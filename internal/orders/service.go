package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lumen_back_end/internal/models"
	"lumen_back_end/internal/services/payment"
	"lumen_back_end/internal/store"
	"lumen_back_end/internal/validation"
)

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, f store.OrderFilter) ([]models.Order, int64, error)
	MarkPaid(ctx context.Context, number, paymentID string) (bool, error)
	MarkFailed(ctx context.Context, number string) (bool, error)
	ClaimNotification(ctx context.Context, number string) (bool, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, deliveryLink *string) (*models.Order, error)
}

type CartStore interface {
	Get(ctx context.Context, userID string) ([]models.CartItem, error)
	Clear(ctx context.Context, userID string) error
}

type CatalogStore interface {
	Get(ctx context.Context, productID string) (*models.Product, error)
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
}

type PromoStore interface {
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	IncrementUsage(ctx context.Context, code string) error
	ReleaseUsage(ctx context.Context, code string) error
}

type ShippingStore interface {
	Active(ctx context.Context) (models.ShippingConfig, error)
}

type Gateway interface {
	CreatePaymentSession(ctx context.Context, orderNumber string, amount float64, customer payment.Customer) (*payment.Session, error)
	ListPayments(ctx context.Context, orderNumber string) ([]payment.Attempt, error)
}

// Notifier ne doit jamais bloquer l'appelant.
type Notifier interface {
	NotifyAdminOrderPlaced(order models.Order)
	NotifyCustomerOrderConfirmed(order models.Order)
}

type Deps struct {
	Orders        OrderStore
	Carts         CartStore
	Catalog       CatalogStore
	Promos        PromoStore
	Shipping      ShippingStore
	Gateway       Gateway
	Notifier      Notifier
	WebhookSecret string
	Now           func() time.Time
	Logger        *zerolog.Logger
}

// Service pilote le cycle de vie d'une commande : création, paiement, rapprochement.
type Service struct {
	orders        OrderStore
	carts         CartStore
	catalog       CatalogStore
	promos        PromoStore
	shipping      ShippingStore
	gateway       Gateway
	notifier      Notifier
	webhookSecret string
	now           func() time.Time
	log           zerolog.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		orders:        d.Orders,
		carts:         d.Carts,
		catalog:       d.Catalog,
		promos:        d.Promos,
		shipping:      d.Shipping,
		gateway:       d.Gateway,
		notifier:      d.Notifier,
		webhookSecret: d.WebhookSecret,
		now:           d.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	base := log.Logger
	if d.Logger != nil {
		base = *d.Logger
	}
	s.log = base.With().Str("component", "orders").Logger()
	return s
}

type CreateOrderInput struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PromoCode       string                 `json:"promoCode"`
}

type PaymentSession struct {
	PaymentSessionID string `json:"paymentSessionId"`
	OrderID          string `json:"orderId"`
}

type OrderPage struct {
	Orders       []models.Order `json:"orders"`
	CurrentPage  int            `json:"currentPage"`
	TotalPages   int            `json:"totalPages"`
	TotalItems   int64          `json:"totalItems"`
	ItemsPerPage int            `json:"itemsPerPage"`
}

type cartLine struct {
	productID string
	name      string
	quantity  int
	imageURL  string
}

// CreateOrder transforme le panier en commande en attente de paiement.
// Le panier n'est vidé qu'au premier paiement confirmé.
func (s *Service) CreateOrder(ctx context.Context, customer models.Customer, in CreateOrderInput) (*models.Order, error) {
	normalizeAddress(&in.ShippingAddress)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	cart, err := s.carts.Get(ctx, customer.UserID)
	if err != nil {
		return nil, fmt.Errorf("lecture panier: %w", err)
	}
	lines, err := mergeCart(cart)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items, err := s.snapshotItems(ctx, lines)
	if err != nil {
		return nil, err
	}

	var promo *models.PromoCode
	if code := store.NormalizeCode(in.PromoCode); code != "" {
		promo, err = s.promos.FindByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return nil, validation.Field("promoCode", "is invalid")
		}
		if err != nil {
			return nil, fmt.Errorf("lecture code promo: %w", err)
		}
	}

	cfg, err := s.shipping.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("lecture configuration livraison: %w", err)
	}
	totals, err := ComputeTotals(items, promo, cfg, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.reserveStock(ctx, items); err != nil {
		return nil, err
	}
	if promo != nil {
		if err := s.promos.IncrementUsage(ctx, promo.Code); err != nil {
			s.releaseStock(ctx, items)
			if errors.Is(err, store.ErrPromoExhausted) {
				return nil, validation.Field("promoCode", "usage limit reached")
			}
			return nil, fmt.Errorf("utilisation code promo: %w", err)
		}
	}

	order := &models.Order{
		UserID:            customer.UserID,
		CustomerEmail:     customer.Email,
		Items:             items,
		Subtotal:          toFloat(totals.Subtotal),
		ShippingFee:       toFloat(totals.ShippingFee),
		PromoCodeDiscount: toFloat(totals.Discount),
		TotalAmount:       toFloat(totals.Total),
		ShippingAddress:   in.ShippingAddress,
		PaymentMethod:     models.DefaultPaymentMethod,
		PaymentStatus:     models.PaymentPending,
		OrderStatus:       models.OrderPending,
	}
	if promo != nil {
		order.PromoCode = promo.Code
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseStock(ctx, items)
		if promo != nil {
			s.releasePromo(ctx, promo.Code)
		}
		return nil, fmt.Errorf("enregistrement commande: %w", err)
	}

	s.log.Info().
		Str("order", order.OrderNumber).
		Str("user_id", order.UserID).
		Float64("total", order.TotalAmount).
		Msg("✅ Commande créée")
	return order, nil
}

func normalizeAddress(a *models.ShippingAddress) {
	a.Name = strings.TrimSpace(a.Name)
	a.PhoneNumber = strings.TrimSpace(a.PhoneNumber)
	if strings.TrimSpace(a.Country) == "" {
		a.Country = "India"
	}
}

// mergeCart regroupe les lignes d'un même produit en gardant l'ordre du panier.
func mergeCart(cart []models.CartItem) ([]cartLine, error) {
	index := make(map[string]int, len(cart))
	lines := make([]cartLine, 0, len(cart))
	for _, it := range cart {
		if it.Quantity < 1 {
			return nil, validation.Field("items", "quantity must be at least 1")
		}
		if i, ok := index[it.ProductID]; ok {
			lines[i].quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(lines)
		lines = append(lines, cartLine{
			productID: it.ProductID,
			name:      it.Name,
			quantity:  it.Quantity,
			imageURL:  it.ImageURL,
		})
	}
	return lines, nil
}

// snapshotItems fige nom, prix et image actuels du catalogue.
func (s *Service) snapshotItems(ctx context.Context, lines []cartLine) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	var unavailable []string
	for _, l := range lines {
		p, err := s.catalog.Get(ctx, l.productID)
		if errors.Is(err, store.ErrNotFound) {
			unavailable = append(unavailable, l.name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lecture produit %s: %w", l.productID, err)
		}
		if !p.InStock(l.quantity) {
			unavailable = append(unavailable, p.Name)
			continue
		}
		image := p.FirstImage()
		if image == "" {
			image = l.imageURL
		}
		items = append(items, models.OrderItem{
			ProductID: l.productID,
			Name:      p.Name,
			Quantity:  l.quantity,
			Price:     p.Price,
			Image:     image,
		})
	}
	if len(unavailable) > 0 {
		return nil, &OutOfStockError{Products: unavailable}
	}
	return items, nil
}

func (s *Service) reserveStock(ctx context.Context, items []models.OrderItem) error {
	for i, it := range items {
		err := s.catalog.Reserve(ctx, it.ProductID, it.Quantity)
		if err == nil {
			continue
		}
		s.releaseStock(ctx, items[:i])
		if errors.Is(err, store.ErrInsufficientStock) || errors.Is(err, store.ErrNotFound) {
			return &OutOfStockError{Products: []string{it.Name}}
		}
		return fmt.Errorf("réservation stock %s: %w", it.ProductID, err)
	}
	return nil
}

// releaseStock s'exécute même si la requête a été annulée.
func (s *Service) releaseStock(ctx context.Context, items []models.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range items {
		if err := s.catalog.Release(ctx, it.ProductID, it.Quantity); err != nil {
			s.log.Error().Err(err).Str("product_id", it.ProductID).Int("qty", it.Quantity).
				Msg("❌ Impossible de rendre le stock réservé")
		}
	}
}

func (s *Service) releasePromo(ctx context.Context, code string) {
	if err := s.promos.ReleaseUsage(context.WithoutCancel(ctx), code); err != nil {
		s.log.Error().Err(err).Str("promo", code).Msg("❌ Impossible de rendre l'utilisation du code promo")
	}
}

func (s *Service) loadOwned(ctx context.Context, orderID string, user models.Customer) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(user.UserID) {
		return nil, ErrForbidden
	}
	return order, nil
}

// InitiatePayment ouvre une session de paiement Cashfree pour une commande non payée.
func (s *Service) InitiatePayment(ctx context.Context, orderID string, user models.Customer) (*PaymentSession, error) {
	order, err := s.loadOwned(ctx, orderID, user)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentCompleted {
		return nil, ErrAlreadyPaid
	}

	email := order.CustomerEmail
	if email == "" {
		email = user.Email
	}
	session, err := s.gateway.CreatePaymentSession(ctx, order.OrderNumber, order.TotalAmount, payment.Customer{
		ID:    order.UserID,
		Email: email,
		Phone: order.ShippingAddress.PhoneNumber,
		Name:  order.ShippingAddress.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("session de paiement %s: %w", order.OrderNumber, err)
	}

	s.log.Info().Str("order", order.OrderNumber).Msg("💳 Session de paiement créée")
	return &PaymentSession{PaymentSessionID: session.SessionID, OrderID: order.OrderNumber}, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string, user models.Customer) (*models.Order, error) {
	return s.loadOwned(ctx, orderID, user)
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAllOrders retourne une page de commandes pour l'administration.
func (s *Service) ListAllOrders(ctx context.Context, f store.OrderFilter) (*OrderPage, error) {
	if f.PaymentStatus != "" && !validPaymentStatus(f.PaymentStatus) {
		return nil, validation.Field("paymentStatus", "must be one of [pending completed failed]")
	}
	if f.OrderStatus != "" {
		if _, ok := models.ParseOrderStatus(string(f.OrderStatus)); !ok {
			return nil, validation.Field("orderStatus", "must be one of [pending processing shipped delivered cancelled]")
		}
	}
	f = f.Normalize()
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	pages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return &OrderPage{
		Orders:       orders,
		CurrentPage:  f.Page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: f.Limit,
	}, nil
}

func validPaymentStatus(st models.PaymentStatus) bool {
	switch st {
	case models.PaymentPending, models.PaymentCompleted, models.PaymentFailed:
		return true
	}
	return false
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return s.orders.FindByNumber(ctx, number)
}

// UpdateOrderStatus (admin) ne modifie jamais les champs de paiement.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, status string, deliveryLink *string) (*models.Order, error) {
	if strings.TrimSpace(status) == "" {
		return nil, validation.Field("orderStatus", "is required")
	}
	st, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, validation.Field("orderStatus", "must be one of [pending processing shipped delivered cancelled]")
	}
	order, err := s.orders.UpdateOrderStatus(ctx, orderID, st, deliveryLink)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("order", order.OrderNumber).Str("status", string(st)).Msg("📦 Statut de commande mis à jour")
	return order, nil
}

// QuotePromo vérifie un code promo pour un montant de panier, sans le consommer.
func (s *Service) QuotePromo(ctx context.Context, code string, orderAmount float64) (*models.PromoQuote, error) {
	code = store.NormalizeCode(code)
	if code == "" {
		return nil, validation.Field("code", "is required")
	}
	if orderAmount < 0 {
		return nil, validation.Field("orderAmount", "must be at least 0")
	}
	promo, err := s.promos.FindByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, validation.Field("promoCode", "is invalid")
	}
	if err != nil {
		return nil, fmt.Errorf("lecture code promo: %w", err)
	}
	discount, err := PromoDiscount(promo, money(orderAmount), s.now())
	if err != nil {
		return nil, err
	}
	return &models.PromoQuote{
		Code:           promo.Code,
		DiscountAmount: toFloat(discount),
		DiscountType:   promo.DiscountType,
		DiscountValue:  promo.DiscountValue,
	}, nil
}

func (s *Service) ShippingConfig(ctx context.Context) (models.ShippingConfig, error) {
	return s.shipping.Active(ctx)
}

func (s *Service) QuoteShipping(ctx context.Context, orderAmount float64) (*models.ShippingQuote, error) {
	if orderAmount < 0 {
		return nil, validation.Field("orderAmount", "must be at least 0")
	}
	cfg, err := s.shipping.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("lecture configuration livraison: %w", err)
	}
	q := shippingQuote(cfg, money(orderAmount))
	return &q, nil
}
