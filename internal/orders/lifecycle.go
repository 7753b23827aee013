package orders

import (
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// Event is a staff action applied to an order.
type Event string

const (
	EventAccept   Event = "accept"
	EventDispatch Event = "dispatch"
	EventDeliver  Event = "deliver"
	EventCancel   Event = "cancel"
	EventDelete   Event = "delete"
	EventReopen   Event = "reopen"
)

var nonTerminal = []models.OrderStatus{
	models.StatusNew,
	models.StatusInPreparation,
	models.StatusOutForDelivery,
}

type rule struct {
	from []models.OrderStatus
	to   models.OrderStatus
}

// transitions is the only place order legality is decided. Delete has no
// target status because the row is removed.
var transitions = map[Event]rule{
	EventAccept:   {from: []models.OrderStatus{models.StatusNew}, to: models.StatusInPreparation},
	EventDispatch: {from: []models.OrderStatus{models.StatusInPreparation}, to: models.StatusOutForDelivery},
	EventDeliver:  {from: []models.OrderStatus{models.StatusOutForDelivery}, to: models.StatusCompleted},
	EventCancel:   {from: nonTerminal, to: models.StatusCancelled},
	EventDelete:   {from: nonTerminal},
	EventReopen:   {from: []models.OrderStatus{models.StatusCompleted, models.StatusCancelled}, to: models.StatusNew},
}

func ParseEvent(value string) (Event, bool) {
	e := Event(strings.ToLower(strings.TrimSpace(value)))
	_, ok := transitions[e]
	return e, ok
}

// Allowed reports whether event may be applied to an order in status from.
func Allowed(from models.OrderStatus, event Event) bool {
	r, ok := transitions[event]
	if !ok {
		return false
	}
	for _, s := range r.from {
		if s == from {
			return true
		}
	}
	return false
}

// NextEvents lists the forward events available from status, in table order.
func NextEvents(from models.OrderStatus) []Event {
	var out []Event
	for _, e := range []Event{EventAccept, EventDispatch, EventDeliver, EventCancel, EventReopen} {
		if Allowed(from, e) {
			out = append(out, e)
		}
	}
	return out
}

// Transition applies event to a copy of order and returns it. The input is
// never modified, so a rejected transition has no effect at all.
//
// For EventCancel, reason must be non-blank. For EventDelete the returned
// order is unchanged; removing it is up to the caller.
func Transition(order models.Order, event Event, reason string, now time.Time) (models.Order, error) {
	if event == EventCancel && strings.TrimSpace(reason) == "" {
		return order, apperr.Validation("reason", "cancellation reason is required")
	}
	if !Allowed(order.Status, event) {
		return order, &apperr.InvalidTransitionError{
			OrderID: order.ID,
			From:    order.Status.Label(),
			Event:   string(event),
		}
	}

	next := clone(order)
	if event == EventDelete {
		return next, nil
	}
	next.Status = transitions[event].to
	next.UpdatedAt = now

	switch event {
	case EventAccept:
		at := now
		next.AcceptedAt = &at
	case EventCancel:
		r := strings.TrimSpace(reason)
		next.CancellationReason = &r
	case EventReopen:
		next.CancellationReason = nil
		next.AcceptedAt = nil
	}
	return next, nil
}

func clone(o models.Order) models.Order {
	if o.AcceptedAt != nil {
		at := *o.AcceptedAt
		o.AcceptedAt = &at
	}
	if o.CancellationReason != nil {
		r := *o.CancellationReason
		o.CancellationReason = &r
	}
	return o
}
