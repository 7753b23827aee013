package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/cart"
)

// Carts keeps one document per cart session.
type Carts struct {
	db *mongo.Database
}

func NewCarts(db *mongo.Database) *Carts {
	return &Carts{db: db}
}

func (s *Carts) LoadCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var c cart.Cart
	err := s.db.Collection(colCarts).FindOne(ctx, bson.M{"_id": sessionID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cart.New(sessionID), nil
	}
	if err != nil {
		return nil, err
	}
	if c.Items == nil {
		c.Items = []cart.LineItem{}
	}
	return &c, nil
}

// SaveCart replaces the stored cart only while it is still at c.Version. A
// cart loaded at version 0 may be inserted; documents written before
// versioning have no version field and count as 0.
func (s *Carts) SaveCart(ctx context.Context, c *cart.Cart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	next := *c
	next.Version = c.Version + 1

	filter := bson.M{"_id": c.SessionID, "version": c.Version}
	opts := options.Replace()
	if c.Version == 0 {
		filter["version"] = bson.M{"$in": bson.A{0, nil}}
		opts.SetUpsert(true)
	}

	res, err := s.db.Collection(colCarts).ReplaceOne(ctx, filter, next, opts)
	if mongo.IsDuplicateKeyError(err) {
		return cart.ErrConflict
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return cart.ErrConflict
	}
	c.Version = next.Version
	return nil
}

func (s *Carts) DeleteCart(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.db.Collection(colCarts).DeleteOne(ctx, bson.M{"_id": sessionID})
	return err
}
