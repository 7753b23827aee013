package database

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// Accounts stores console accounts in the customers collection.
type Accounts struct {
	db *mongo.Database
}

func NewAccounts(db *mongo.Database) *Accounts {
	return &Accounts{db: db}
}

// FindAdmin returns the active admin account with the given email.
func (s *Accounts) FindAdmin(ctx context.Context, email string) (models.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(email))
	var admin models.Customer
	err := s.db.Collection(colCustomers).FindOne(ctx, bson.M{
		"email":    email,
		"role":     models.RoleAdmin,
		"isActive": true,
	}).Decode(&admin)
	if err != nil {
		return models.Customer{}, notFound(err, "admin", email)
	}
	return admin, nil
}

// UpsertAdmin creates the admin account or resets its password.
func (s *Accounts) UpsertAdmin(ctx context.Context, name, email, password string) (models.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return models.Customer{}, apperr.Validation("email", "a valid email is required")
	}
	if len(password) < 8 {
		return models.Customer{}, apperr.Validation("password", "must have at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Customer{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now()
	var admin models.Customer
	err = s.db.Collection(colCustomers).FindOneAndUpdate(
		ctx,
		bson.M{"email": email},
		bson.M{
			"$set": bson.M{
				"name":         strings.TrimSpace(name),
				"passwordHash": string(hash),
				"role":         models.RoleAdmin,
				"isActive":     true,
				"updatedAt":    now,
			},
			"$setOnInsert": bson.M{
				"_id":       newID(),
				"createdAt": now,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&admin)
	if err != nil {
		return models.Customer{}, err
	}
	return admin, nil
}
