package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
)

// Settings stores the single store settings document.
type Settings struct {
	db *mongo.Database
}

func NewSettings(db *mongo.Database) *Settings {
	return &Settings{db: db}
}

// Get returns the settings, creating the defaults on first read.
func (s *Settings) Get(ctx context.Context) (models.StoreSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var st models.StoreSettings
	err := s.db.Collection(colSettings).FindOne(ctx, bson.M{"_id": models.StoreSettingsID}).Decode(&st)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.StoreSettings{}, err
	}

	defaults := models.DefaultStoreSettings()
	defaults.UpdatedAt = time.Now()
	err = s.db.Collection(colSettings).FindOneAndUpdate(
		ctx,
		bson.M{"_id": models.StoreSettingsID},
		bson.M{"$setOnInsert": defaults},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&st)
	if err != nil {
		return models.StoreSettings{}, err
	}
	return st, nil
}

func (s *Settings) Save(ctx context.Context, st models.StoreSettings) (models.StoreSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	st.Normalize()
	st.UpdatedAt = time.Now()
	_, err := s.db.Collection(colSettings).ReplaceOne(
		ctx,
		bson.M{"_id": models.StoreSettingsID},
		st,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return models.StoreSettings{}, err
	}
	return st, nil
}

// IsOpen reports the store's open flag.
func (s *Settings) IsOpen(ctx context.Context) (bool, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	return st.IsOpen, nil
}
