package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           string          `bson:"_id" json:"id"`
	Name         string          `bson:"name" json:"name"`
	Description  string          `bson:"description,omitempty" json:"description,omitempty"`
	Price        decimal.Decimal `bson:"price" json:"price"`
	ImageURL     string          `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CategoryID   string          `bson:"categoryId" json:"categoryId"`
	ExtrasGroups IDList          `bson:"extrasGroupIds" json:"extrasGroupIds"`
	IsActive     bool            `bson:"isActive" json:"isActive"`
	IsFeatured   bool            `bson:"isFeatured" json:"isFeatured"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
}
