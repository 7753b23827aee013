package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"storefront/internal/apperr"
)

const (
	colProducts      = "products"
	colCategories    = "categories"
	colBanners       = "banners"
	colExtrasGroups  = "extras_groups"
	colExtrasOptions = "extras_options"
	colOrders        = "orders"
	colOrderItems    = "order_items"
	colCarts         = "carts"
	colSettings      = "store_settings"
	colCustomers     = "customers"
)

const opTimeout = 5 * time.Second

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetRegistry(Registry()))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Ping reports whether the primary answers within two seconds.
func Ping(ctx context.Context, db *mongo.Database) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Client().Ping(checkCtx, readpref.Primary())
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// notFound turns mongo.ErrNoDocuments into a NotFoundError.
func notFound(err error, kind, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(kind, id)
	}
	return err
}

// withTx runs fn inside a session transaction.
func withTx(ctx context.Context, db *mongo.Database, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
