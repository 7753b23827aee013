package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

var indexSpecs = []indexSpec{
	{colOrders, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("status_createdAt"),
	}},
	{colOrders, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	}},
	{colOrderItems, mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().SetName("orderId_index"),
	}},
	{colProducts, mongo.IndexModel{
		Keys:    bson.D{{Key: "categoryId", Value: 1}, {Key: "isActive", Value: 1}},
		Options: options.Index().SetName("category_active"),
	}},
	{colExtrasOptions, mongo.IndexModel{
		Keys:    bson.D{{Key: "groupId", Value: 1}},
		Options: options.Index().SetName("groupId_index"),
	}},
	{colCategories, mongo.IndexModel{
		Keys: bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().
			SetName("slug_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"slug": bson.M{"$gt": ""},
			}),
	}},
	{colCustomers, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}},
	{colCarts, mongo.IndexModel{
		Keys: bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().
			SetName("updatedAt_ttl").
			SetExpireAfterSeconds(int32((30 * 24 * time.Hour).Seconds())),
	}},
}

// EnsureIndexes creates every index the stores rely on. It keeps going after
// a failure and returns the first error.
func EnsureIndexes(db *mongo.Database, log logrus.FieldLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	for _, spec := range indexSpecs {
		name := *spec.model.Options.Name
		entry := log.WithFields(logrus.Fields{"collection": spec.collection, "index": name})

		if _, err := db.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model); err != nil {
			entry.WithError(err).Warn("index not created")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		entry.Debug("index ensured")
	}
	return firstErr
}
