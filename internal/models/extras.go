package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ExtrasGroup is a named set of add-on choices attached to products.
// MaxOptions == 1 behaves as an exclusive choice.
type ExtrasGroup struct {
	ID         string         `bson:"_id" json:"id"`
	Name       string         `bson:"name" json:"name"`
	Required   bool           `bson:"required" json:"required"`
	MinOptions int            `bson:"minOptions" json:"minOptions"`
	MaxOptions int            `bson:"maxOptions" json:"maxOptions"`
	Options    []ExtrasOption `bson:"-" json:"options,omitempty"`
}

type ExtrasOption struct {
	ID          string          `bson:"_id" json:"id"`
	GroupID     string          `bson:"groupId" json:"groupId"`
	Name        string          `bson:"name" json:"name"`
	Price       decimal.Decimal `bson:"price" json:"price"`
	IsAvailable bool            `bson:"isAvailable" json:"isAvailable"`
}

// Validate checks the group limits: 1 <= max, 0 <= min <= max, and a required
// group must demand at least one option.
func (g ExtrasGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if g.MaxOptions < 1 {
		return fmt.Errorf("maxOptions must be at least 1")
	}
	if g.MinOptions < 0 {
		return fmt.Errorf("minOptions must be zero or greater")
	}
	if g.MinOptions > g.MaxOptions {
		return fmt.Errorf("minOptions must not exceed maxOptions")
	}
	if g.Required && g.MinOptions < 1 {
		return fmt.Errorf("required group needs minOptions of at least 1")
	}
	return nil
}

// Exclusive reports radio behaviour.
func (g ExtrasGroup) Exclusive() bool {
	return g.MaxOptions == 1
}

// Option finds an option of the group by id.
func (g ExtrasGroup) Option(id string) (ExtrasOption, bool) {
	for _, opt := range g.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return ExtrasOption{}, false
}

func (o ExtrasOption) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if o.Price.IsNegative() {
		return fmt.Errorf("price must be zero or greater")
	}
	return nil
}
