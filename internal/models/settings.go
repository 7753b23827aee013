package models

import (
	"strings"
	"time"
)

// StoreSettingsID is the fixed id of the single settings document.
const StoreSettingsID = 1

type StoreSettings struct {
	ID           int       `bson:"_id" json:"-"`
	Name         string    `bson:"name" json:"name"`
	Address      string    `bson:"address" json:"address"`
	Phone        string    `bson:"phone" json:"phone"`
	LogoURL      string    `bson:"logoUrl" json:"logoUrl"`
	IsOpen       bool      `bson:"isOpen" json:"isOpen"`
	OpeningHours string    `bson:"openingHours" json:"openingHours"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

func DefaultStoreSettings() StoreSettings {
	return StoreSettings{
		ID:     StoreSettingsID,
		IsOpen: true,
	}
}

// Normalize trims every free-text field.
func (s *StoreSettings) Normalize() {
	s.ID = StoreSettingsID
	s.Name = strings.TrimSpace(s.Name)
	s.Address = strings.TrimSpace(s.Address)
	s.Phone = strings.TrimSpace(s.Phone)
	s.LogoURL = strings.TrimSpace(s.LogoURL)
	s.OpeningHours = strings.TrimSpace(s.OpeningHours)
}
