package models

import "time"

const RoleAdmin = "admin"

// Customer is an account in the customers collection. Only accounts with
// Role == RoleAdmin may sign in to the console.
type Customer struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	IsActive     bool      `bson:"isActive" json:"isActive"`
	Role         string    `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
