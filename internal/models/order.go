package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCustomer holds the contact details typed at checkout.
type OrderCustomer struct {
	Name    string `bson:"customerName" json:"customerName"`
	Phone   string `bson:"customerPhone" json:"customerPhone"`
	Address string `bson:"deliveryAddress" json:"deliveryAddress"`
}

// Order defines the persisted order document. Total always equals the sum of
// the subtotals of the order's items.
type Order struct {
	ID            string `bson:"_id" json:"id"`
	OrderCustomer `bson:",inline"`

	Observations       string          `bson:"observations" json:"observations"`
	Total              decimal.Decimal `bson:"total" json:"total"`
	Status             OrderStatus     `bson:"status" json:"status"`
	CancellationReason *string         `bson:"cancellationReason" json:"cancellationReason"`
	AcceptedAt         *time.Time      `bson:"acceptedAt" json:"acceptedAt"`
	CreatedAt          time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// OrderItemExtra is the captured add-on chosen for a line item.
type OrderItemExtra struct {
	OptionID  string          `bson:"optionId" json:"optionId"`
	Name      string          `bson:"name" json:"name"`
	Price     decimal.Decimal `bson:"price" json:"price"`
	GroupName string          `bson:"groupName" json:"groupName"`
}

// OrderItem is one persisted line of an order. Name and price are captured at
// order time so later catalog edits never change historical orders.
type OrderItem struct {
	ID           string           `bson:"_id" json:"id"`
	OrderID      string           `bson:"orderId" json:"orderId"`
	ProductID    *string          `bson:"productId" json:"productId"`
	ProductName  string           `bson:"productName" json:"productName"`
	ProductPrice decimal.Decimal  `bson:"productPrice" json:"productPrice"`
	Quantity     int              `bson:"quantity" json:"quantity"`
	Subtotal     decimal.Decimal  `bson:"subtotal" json:"subtotal"`
	Extras       []OrderItemExtra `bson:"extras,omitempty" json:"extras,omitempty"`
}
