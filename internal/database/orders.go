package database

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/orders"
)

// Orders is the Mongo order store. Every write touching both an order and its
// items runs in a session transaction.
type Orders struct {
	db *mongo.Database
}

func NewOrders(db *mongo.Database) *Orders {
	return &Orders{db: db}
}

func (s *Orders) CreateOrder(ctx context.Context, order models.Order, items []models.OrderItem) (models.Order, []models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order.ID = newID()
	saved := withItemIDs(order.ID, items)

	err := withTx(ctx, s.db, func(sessCtx mongo.SessionContext) error {
		if _, err := s.db.Collection(colOrders).InsertOne(sessCtx, order); err != nil {
			return err
		}
		return s.insertItems(sessCtx, saved)
	})
	if err != nil {
		return models.Order{}, nil, err
	}
	return order, saved, nil
}

func (s *Orders) GetOrder(ctx context.Context, id string) (models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var o models.Order
	if err := s.db.Collection(colOrders).FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return models.Order{}, notFound(err, "order", id)
	}
	return o, nil
}

func (s *Orders) ListOrders(ctx context.Context, q orders.Query) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	created := bson.M{}
	if !q.Since.IsZero() {
		created["$gte"] = q.Since
	}
	if !q.Until.IsZero() {
		created["$lt"] = q.Until
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.db.Collection(colOrders).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Order{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Orders) OrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := s.db.Collection(colOrderItems).Find(ctx, bson.M{"orderId": orderID}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []models.OrderItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Orders) UpdateOrderStatus(ctx context.Context, from models.OrderStatus, next models.Order) (models.Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var written models.Order
	err := s.db.Collection(colOrders).FindOneAndUpdate(
		ctx,
		bson.M{"_id": next.ID, "status": from},
		bson.M{"$set": bson.M{
			"status":             next.Status,
			"cancellationReason": next.CancellationReason,
			"acceptedAt":         next.AcceptedAt,
			"updatedAt":          next.UpdatedAt,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&written)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, false, nil
	}
	if err != nil {
		return models.Order{}, false, err
	}
	return written, true, nil
}

func (s *Orders) ReplaceOrderItems(ctx context.Context, orderID string, items []models.OrderItem, total decimal.Decimal, updatedAt time.Time) (models.Order, []models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	saved := withItemIDs(orderID, items)
	var updated models.Order

	err := withTx(ctx, s.db, func(sessCtx mongo.SessionContext) error {
		err := s.db.Collection(colOrders).FindOneAndUpdate(
			sessCtx,
			bson.M{"_id": orderID},
			bson.M{"$set": bson.M{"total": total, "updatedAt": updatedAt}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			return notFound(err, "order", orderID)
		}
		if _, err := s.db.Collection(colOrderItems).DeleteMany(sessCtx, bson.M{"orderId": orderID}); err != nil {
			return err
		}
		return s.insertItems(sessCtx, saved)
	})
	if err != nil {
		return models.Order{}, nil, err
	}
	return updated, saved, nil
}

func (s *Orders) DeleteOrder(ctx context.Context, id string, from models.OrderStatus) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	deleted := false
	err := withTx(ctx, s.db, func(sessCtx mongo.SessionContext) error {
		res, err := s.db.Collection(colOrders).DeleteOne(sessCtx, bson.M{"_id": id, "status": from})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return nil
		}
		if _, err := s.db.Collection(colOrderItems).DeleteMany(sessCtx, bson.M{"orderId": id}); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// itemDoc adds the position used to keep items in the order they were saved.
type itemDoc struct {
	models.OrderItem `bson:",inline"`
	Position         int `bson:"position"`
}

func (s *Orders) insertItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(items))
	for i, item := range items {
		docs = append(docs, itemDoc{OrderItem: item, Position: i})
	}
	_, err := s.db.Collection(colOrderItems).InsertMany(ctx, docs)
	return err
}

func withItemIDs(orderID string, items []models.OrderItem) []models.OrderItem {
	out := make([]models.OrderItem, len(items))
	for i, item := range items {
		item.ID = newID()
		item.OrderID = orderID
		out[i] = item
	}
	return out
}

var _ orders.Store = (*Orders)(nil)
