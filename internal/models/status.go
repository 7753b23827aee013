package models

import (
	"encoding/json"
	"fmt"
)

// OrderStatus is the fulfilment stage of an order. The string values are the
// ones stored in the database and sent over the wire.
type OrderStatus string

const (
	StatusNew            OrderStatus = "novo"
	StatusInPreparation  OrderStatus = "em_preparo"
	StatusOutForDelivery OrderStatus = "saiu_entrega"
	StatusCompleted      OrderStatus = "finalizado"
	StatusCancelled      OrderStatus = "cancelado"
)

var orderStatuses = []OrderStatus{
	StatusNew,
	StatusInPreparation,
	StatusOutForDelivery,
	StatusCompleted,
	StatusCancelled,
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, s := range orderStatuses {
		if string(s) == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", value)
}

func (s OrderStatus) Valid() bool {
	_, err := ParseOrderStatus(string(s))
	return err == nil
}

// Terminal reports whether automatic processing has finished for the order.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether the SLA clock runs for the order.
func (s OrderStatus) Active() bool {
	return s == StatusInPreparation || s == StatusOutForDelivery
}

// Label is the English name used in logs and notifications.
func (s OrderStatus) Label() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusInPreparation:
		return "in_preparation"
	case StatusOutForDelivery:
		return "out_for_delivery"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return string(s)
	}
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
