package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
)

const collectionOrders = "orders"

// OrderRepository implements ports.OrderRepository using MongoDB.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(collectionOrders)}
}

// FindByID retrieves an order by its id.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var o domain.Order
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ListAssigned returns all non-terminal orders assigned to the driver,
// newest first.
func (r *OrderRepository) ListAssigned(ctx context.Context, driverID string) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"assigned_driver_id": driverID,
		"shipment_status": bson.M{"$nin": []string{
			string(domain.StatusDelivered),
			string(domain.StatusCancelled),
			string(domain.StatusReturned),
		}},
	}

	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orders []*domain.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ApplyTransition atomically sets the new status plus any transition side
// fields and appends a status history entry.
func (r *OrderRepository) ApplyTransition(ctx context.Context, orderID string, update ports.OrderUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"shipment_status": string(update.Status),
		"updated_at":      update.Timestamp.UTC(),
	}
	if update.CollectedAmount != nil {
		set["collected_amount"] = *update.CollectedAmount
	}
	if update.CancelReason != nil {
		set["cancel_reason"] = *update.CancelReason
	}
	if update.DeliveredAt != nil {
		set["delivered_at"] = update.DeliveredAt.UTC()
	}

	historyEntry := bson.M{
		"status":    string(update.Status),
		"timestamp": update.Timestamp.UTC(),
	}
	if update.Notes != "" {
		historyEntry["notes"] = update.Notes
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{
			"$set":  set,
			"$push": bson.M{"status_history": historyEntry},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// SetCollectedAmount corrects the collected amount on a delivered order.
// No history entry: the delivery already has one.
func (r *OrderRepository) SetCollectedAmount(ctx context.Context, orderID string, amount float64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{
			"collected_amount": amount,
			"updated_at":       time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the orders collection.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "assigned_driver_id", Value: 1}, {Key: "shipment_status", Value: 1}}},
		{Keys: bson.D{{Key: "invoice_number", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
