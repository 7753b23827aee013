package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/realtime"
)

// OrderFeed turns the orders change stream into board events. Updates are
// delivered with the full current document.
type OrderFeed struct {
	db *mongo.Database
}

func NewOrderFeed(db *mongo.Database) *OrderFeed {
	return &OrderFeed{db: db}
}

type orderChange struct {
	OperationType string        `bson:"operationType"`
	FullDocument  *models.Order `bson:"fullDocument"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

func (f *OrderFeed) Run(ctx context.Context, ready func(), emit func(realtime.Event)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": []string{"insert", "update", "replace", "delete"}},
		}}},
	}
	stream, err := f.db.Collection(colOrders).Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())
	ready()

	for stream.Next(ctx) {
		var change orderChange
		if err := stream.Decode(&change); err != nil {
			return err
		}
		if ev, ok := change.event(); ok {
			emit(ev)
		}
	}
	return stream.Err()
}

func (c orderChange) event() (realtime.Event, bool) {
	switch c.OperationType {
	case "insert":
		if c.FullDocument == nil {
			return realtime.Event{}, false
		}
		return realtime.Event{Kind: realtime.OrderCreated, Order: *c.FullDocument}, true
	case "update", "replace":
		// the document may already be gone when the lookup runs
		if c.FullDocument == nil {
			return realtime.Event{}, false
		}
		return realtime.Event{Kind: realtime.OrderUpdated, Order: *c.FullDocument}, true
	case "delete":
		return realtime.Event{Kind: realtime.OrderDeleted, Order: models.Order{ID: c.DocumentKey.ID}}, true
	}
	return realtime.Event{}, false
}
