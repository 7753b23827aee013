package models

import "time"

type Banner struct {
	ID          string    `bson:"_id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL    string    `bson:"imageUrl" json:"imageUrl"`
	IsActive    bool      `bson:"isActive" json:"isActive"`
	Order       int       `bson:"order" json:"order"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
