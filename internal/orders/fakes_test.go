package orders

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lumen_back_end/internal/models"
	"lumen_back_end/internal/services/payment"
	"lumen_back_end/internal/store"
)

// memOrders reproduit les compare-and-set du store Mongo sous un mutex.
type memOrders struct {
	mu        sync.Mutex
	byID      map[string]*models.Order
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{byID: map[string]*models.Order{}}
}

func (m *memOrders) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	o.ID = primitive.NewObjectID()
	o.OrderNumber = store.NewOrderNumber(time.Now())
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	m.byID[o.ID.Hex()] = &cp
	return nil
}

// put insère une commande telle quelle (état initial d'un test).
func (m *memOrders) put(o models.Order) *models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = store.NewOrderNumber(time.Now())
	}
	m.byID[o.ID.Hex()] = &o
	cp := o
	return &cp
}

func (m *memOrders) get(id string) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *memOrders) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) byNumber(number string) *models.Order {
	for _, o := range m.byID {
		if o.OrderNumber == number {
			return o
		}
	}
	return nil
}

func (m *memOrders) FindByNumber(_ context.Context, number string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.byNumber(number)
	if o == nil {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memOrders) List(_ context.Context, f store.OrderFilter) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.byID {
		if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
			continue
		}
		if f.OrderStatus != "" && o.OrderStatus != f.OrderStatus {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (m *memOrders) MarkPaid(_ context.Context, number, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.byNumber(number)
	if o == nil {
		return false, store.ErrNotFound
	}
	if o.PaymentStatus == models.PaymentCompleted {
		return false, nil
	}
	o.PaymentStatus = models.PaymentCompleted
	o.PaymentID = paymentID
	if o.OrderStatus == models.OrderPending {
		o.OrderStatus = models.OrderProcessing
	}
	return true, nil
}

func (m *memOrders) MarkFailed(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.byNumber(number)
	if o == nil {
		return false, store.ErrNotFound
	}
	if o.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = models.PaymentFailed
	return true, nil
}

func (m *memOrders) ClaimNotification(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.byNumber(number)
	if o == nil {
		return false, store.ErrNotFound
	}
	if o.PaymentStatus != models.PaymentCompleted || o.NotifiedAt != nil {
		return false, nil
	}
	now := time.Now()
	o.NotifiedAt = &now
	return true, nil
}

func (m *memOrders) UpdateOrderStatus(_ context.Context, id string, st models.OrderStatus, link *string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.OrderStatus = st
	if link != nil {
		o.DeliveryLink = *link
	}
	cp := *o
	return &cp, nil
}

type memCarts struct {
	mu      sync.Mutex
	carts   map[string][]models.CartItem
	cleared map[string]int
}

func newMemCarts() *memCarts {
	return &memCarts{carts: map[string][]models.CartItem{}, cleared: map[string]int{}}
}

func (c *memCarts) Get(_ context.Context, userID string) ([]models.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.CartItem(nil), c.carts[userID]...), nil
}

func (c *memCarts) Clear(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
	c.cleared[userID]++
	return nil
}

func (c *memCarts) clearCount(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared[userID]
}

type memCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
	// reserveErr force une erreur pour un produit donné.
	reserveErr map[string]error
}

func newMemCatalog(products ...models.Product) *memCatalog {
	c := &memCatalog{products: map[string]*models.Product{}, reserveErr: map[string]error{}}
	for i := range products {
		p := products[i]
		c.products[p.ID.String()] = &p
	}
	return c
}

func (c *memCatalog) Get(_ context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (c *memCatalog) Reserve(_ context.Context, id string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reserveErr[id]; err != nil {
		return err
	}
	p, ok := c.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Stock < qty {
		return store.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (c *memCatalog) Release(_ context.Context, id string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Stock += qty
	return nil
}

func (c *memCatalog) stock(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

type memPromos struct {
	mu     sync.Mutex
	codes  map[string]*models.PromoCode
	incErr error
}

func newMemPromos(codes ...models.PromoCode) *memPromos {
	p := &memPromos{codes: map[string]*models.PromoCode{}}
	for i := range codes {
		c := codes[i]
		p.codes[c.Code] = &c
	}
	return p
}

func (p *memPromos) FindByCode(_ context.Context, code string) (*models.PromoCode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.codes[store.NormalizeCode(code)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (p *memPromos) IncrementUsage(_ context.Context, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.incErr != nil {
		return p.incErr
	}
	c := p.codes[code]
	if c.LimitReached() {
		return store.ErrPromoExhausted
	}
	c.UsedCount++
	return nil
}

func (p *memPromos) ReleaseUsage(_ context.Context, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := p.codes[code]; c.UsedCount > 0 {
		c.UsedCount--
	}
	return nil
}

func (p *memPromos) used(code string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.codes[code].UsedCount
}

type staticShipping struct {
	cfg models.ShippingConfig
}

func (s staticShipping) Active(context.Context) (models.ShippingConfig, error) { return s.cfg, nil }

type fakeGateway struct {
	mu       sync.Mutex
	attempts map[string][]payment.Attempt
	sessions []string
	last     payment.Customer
	err      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{attempts: map[string][]payment.Attempt{}}
}

func (g *fakeGateway) CreatePaymentSession(_ context.Context, number string, _ float64, c payment.Customer) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.sessions = append(g.sessions, number)
	g.last = c
	return &payment.Session{SessionID: "session_" + number, OrderID: number}, nil
}

func (g *fakeGateway) ListPayments(_ context.Context, number string) ([]payment.Attempt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g.attempts[number], nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	admin    []string
	customer []string
}

func (n *recordingNotifier) NotifyAdminOrderPlaced(o models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, o.OrderNumber)
}

func (n *recordingNotifier) NotifyCustomerOrderConfirmed(o models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.customer = append(n.customer, o.OrderNumber)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.admin), len(n.customer)
}

const webhookSecret = "whsec_test"

var errBoom = errors.New("boom")

type harness struct {
	svc      *Service
	orders   *memOrders
	carts    *memCarts
	catalog  *memCatalog
	promos   *memPromos
	gateway  *fakeGateway
	notifier *recordingNotifier
}

var (
	lampID  = mustUUID("0b5e1f6a-1c1e-4c2b-9f3d-1a2b3c4d5e6f")
	bulbID  = mustUUID("5f2a7c1e-8d3b-4e6f-a1b2-c3d4e5f60718")
	testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	asha    = models.Customer{UserID: "user-asha", Email: "asha@example.in"}
	ravi    = models.Customer{UserID: "user-ravi", Email: "ravi@example.in"}
)

func mustUUID(s string) gocql.UUID {
	id, err := gocql.ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func newHarness() *harness {
	maxDiscount := 80.0
	limit := 100
	h := &harness{
		orders: newMemOrders(),
		carts:  newMemCarts(),
		catalog: newMemCatalog(
			models.Product{ID: lampID, Name: "Pendant Lamp", Price: 600, Stock: 5, IsAvailable: true, ImageURLs: []string{"lamp.jpg"}},
			models.Product{ID: bulbID, Name: "LED Bulb", Price: 200, Stock: 10, IsAvailable: true},
		),
		promos: newMemPromos(models.PromoCode{
			Code: "DIWALI10", DiscountType: models.DiscountPercentage, DiscountValue: 10,
			MaxDiscountAmount: &maxDiscount, UsageLimit: &limit, IsActive: true,
			ValidFrom: testNow.Add(-24 * time.Hour), ValidUntil: testNow.Add(24 * time.Hour),
		}),
		gateway:  newFakeGateway(),
		notifier: &recordingNotifier{},
	}
	nop := zerolog.Nop()
	h.svc = NewService(Deps{
		Orders:        h.orders,
		Carts:         h.carts,
		Catalog:       h.catalog,
		Promos:        h.promos,
		Shipping:      staticShipping{cfg: models.ShippingConfig{BaseShippingFee: 50, FreeShippingThreshold: 999, IsActive: true}},
		Gateway:       h.gateway,
		Notifier:      h.notifier,
		WebhookSecret: webhookSecret,
		Now:           func() time.Time { return testNow },
		Logger:        &nop,
	})
	return h
}

// pendingOrder insère une commande pending appartenant à asha.
func (h *harness) pendingOrder() *models.Order {
	return h.orders.put(models.Order{
		UserID:        asha.UserID,
		CustomerEmail: asha.Email,
		Items:         []models.OrderItem{{ProductID: lampID.String(), Name: "Pendant Lamp", Quantity: 1, Price: 600}},
		TotalAmount:   650,
		ShippingAddress: models.ShippingAddress{
			Name: "Asha", PhoneNumber: "9876543210", Country: "India",
		},
		PaymentMethod: models.DefaultPaymentMethod,
		PaymentStatus: models.PaymentPending,
		OrderStatus:   models.OrderPending,
	})
}
