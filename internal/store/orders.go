package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lumen_back_end/internal/models"
)

var ErrNotFound = errors.New("ressource introuvable")

const ordersCollection = "orders"

// OrderFilter restreint et pagine la liste admin. Les champs vides ne filtrent pas.
type OrderFilter struct {
	PaymentStatus models.PaymentStatus
	OrderStatus   models.OrderStatus
	Search        string // sous-chaîne du numéro de commande, insensible à la casse
	From          time.Time
	To            time.Time
	Page          int
	Limit         int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Normalize borne la pagination.
func (f OrderFilter) Normalize() OrderFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return f
}

// OrderStore persiste les commandes dans MongoDB.
// Toutes les transitions de paiement passent par un UpdateOne conditionnel :
// MatchedCount == 1 signifie que l'appelant possède la transition.
type OrderStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{col: db.Collection(ordersCollection), now: time.Now}
}

// EnsureIndexes crée l'index unique sur orderNumber et l'index de listing par utilisateur.
func (s *OrderStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_order_number"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("création des index orders: %w", err)
	}
	return nil
}

// NewOrderNumber génère un numéro lisible ORD-<millis>-<8 hex>.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), strings.ToUpper(suffix))
}

// Create attribue l'identifiant, le numéro et les dates puis insère la commande.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	now := s.now().UTC()
	order.ID = primitive.NewObjectID()
	order.OrderNumber = NewOrderNumber(now)
	order.CreatedAt = now
	order.UpdatedAt = now

	if _, err := s.col.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insertion commande %s: %w", order.OrderNumber, err)
	}
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *OrderStore) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"orderNumber": number})
}

func (s *OrderStore) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	if err := s.col.FindOne(ctx, filter).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lecture commande: %w", err)
	}
	return &order, nil
}

// ListByUser retourne les commandes d'un utilisateur, la plus récente d'abord.
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.find(ctx, bson.M{"userId": userID}, 0, 0)
}

// List retourne une page de commandes (admin), la plus récente d'abord, et le total filtré.
func (s *OrderStore) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	f = f.Normalize()
	filter := bson.M{}
	if f.PaymentStatus != "" {
		filter["paymentStatus"] = f.PaymentStatus
	}
	if f.OrderStatus != "" {
		filter["orderStatus"] = f.OrderStatus
	}
	if f.Search != "" {
		filter["orderNumber"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		created := bson.M{}
		if !f.From.IsZero() {
			created["$gte"] = f.From
		}
		if !f.To.IsZero() {
			created["$lte"] = f.To
		}
		filter["createdAt"] = created
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("comptage commandes: %w", err)
	}
	orders, err := s.find(ctx, filter, int64((f.Page-1)*f.Limit), int64(f.Limit))
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *OrderStore) find(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetSkip(skip).SetLimit(limit)
	}
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("recherche commandes: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("décodage commandes: %w", err)
	}
	return orders, nil
}

// MarkPaid passe la commande en completed si elle ne l'est pas déjà.
// orderStatus n'avance vers processing que s'il est encore pending.
func (s *OrderStore) MarkPaid(ctx context.Context, number, paymentID string) (bool, error) {
	filter := bson.M{
		"orderNumber":   number,
		"paymentStatus": bson.M{"$ne": models.PaymentCompleted},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"paymentStatus": models.PaymentCompleted,
			"paymentId":     paymentID,
			"orderStatus": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$orderStatus", models.OrderPending}},
				models.OrderProcessing,
				"$orderStatus",
			}},
			"updatedAt": s.now().UTC(),
		}}},
	}
	return s.conditionalUpdate(ctx, number, filter, update)
}

// MarkFailed passe une commande encore pending en failed.
func (s *OrderStore) MarkFailed(ctx context.Context, number string) (bool, error) {
	filter := bson.M{
		"orderNumber":   number,
		"paymentStatus": models.PaymentPending,
	}
	update := bson.M{"$set": bson.M{
		"paymentStatus": models.PaymentFailed,
		"updatedAt":     s.now().UTC(),
	}}
	return s.conditionalUpdate(ctx, number, filter, update)
}

// ClaimNotification réserve l'envoi des emails de confirmation : un seul appelant gagne.
func (s *OrderStore) ClaimNotification(ctx context.Context, number string) (bool, error) {
	filter := bson.M{
		"orderNumber":   number,
		"paymentStatus": models.PaymentCompleted,
		"notifiedAt":    bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"notifiedAt": s.now().UTC()}}
	return s.conditionalUpdate(ctx, number, filter, update)
}

func (s *OrderStore) conditionalUpdate(ctx context.Context, number string, filter, update any) (bool, error) {
	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mise à jour commande %s: %w", number, err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	n, err := s.col.CountDocuments(ctx, bson.M{"orderNumber": number}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("lecture commande %s: %w", number, err)
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// UpdateOrderStatus change le statut logistique (et le lien de suivi s'il est fourni)
// sans toucher aux champs de paiement.
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus, deliveryLink *string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	set := bson.M{"orderStatus": status, "updatedAt": s.now().UTC()}
	if deliveryLink != nil {
		set["deliveryLink"] = *deliveryLink
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mise à jour statut commande: %w", err)
	}
	return &order, nil
}
