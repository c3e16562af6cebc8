package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus valide un statut reçu d'un client (admin).
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return st, true
	}
	return "", false
}

const DefaultPaymentMethod = "Cashfree"

// OrderItem est une photo du produit au moment de la commande, jamais modifiée ensuite.
type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
	Image     string  `bson:"image" json:"image"`
}

type ShippingAddress struct {
	Name        string `bson:"name" json:"name" validate:"required,notblank"`
	PhoneNumber string `bson:"phoneNumber" json:"phoneNumber" validate:"required,notblank"`
	Address     string `bson:"address" json:"address"`
	Street      string `bson:"street" json:"street"`
	City        string `bson:"city" json:"city"`
	State       string `bson:"state" json:"state"`
	Pincode     string `bson:"pincode" json:"pincode"`
	ZipCode     string `bson:"zipCode" json:"zipCode"`
	Country     string `bson:"country" json:"country"`
}

type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber       string             `bson:"orderNumber" json:"orderNumber"`
	UserID            string             `bson:"userId" json:"userId"`
	CustomerEmail     string             `bson:"customerEmail" json:"customerEmail"`
	Items             []OrderItem        `bson:"items" json:"items"`
	Subtotal          float64            `bson:"subtotal" json:"subtotal"`
	ShippingFee       float64            `bson:"shippingFee" json:"shippingFee"`
	PromoCode         string             `bson:"promoCode,omitempty" json:"promoCode,omitempty"`
	PromoCodeDiscount float64            `bson:"promoCodeDiscount" json:"promoCodeDiscount"`
	TotalAmount       float64            `bson:"totalAmount" json:"totalAmount"`
	ShippingAddress   ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod     string             `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus     PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentID         string             `bson:"paymentId" json:"paymentId"`
	OrderStatus       OrderStatus        `bson:"orderStatus" json:"orderStatus"`
	DeliveryLink      string             `bson:"deliveryLink" json:"deliveryLink"`
	NotifiedAt        *time.Time         `bson:"notifiedAt,omitempty" json:"-"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OwnedBy indique si la commande appartient à l'utilisateur.
func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// ItemTotal retourne le total d'une ligne.
func (i OrderItem) ItemTotal() float64 {
	return i.Price * float64(i.Quantity)
}
