package sla

import (
	"context"
	"time"

	"storefront/internal/models"
)

type Bucket string

const (
	OnTrack Bucket = "on_track"
	Warning Bucket = "warning"
	Late    Bucket = "late"
)

// Thresholds split elapsed time into buckets: below WarningAfter is on
// track, below LateAfter is a warning, anything else is late.
type Thresholds struct {
	WarningAfter time.Duration
	LateAfter    time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{WarningAfter: 30 * time.Minute, LateAfter: 60 * time.Minute}
}

func (t Thresholds) Bucket(d time.Duration) Bucket {
	switch {
	case d < t.WarningAfter:
		return OnTrack
	case d < t.LateAfter:
		return Warning
	default:
		return Late
	}
}

// Elapsed returns how long the order has been worked on. It is zero until
// the order is accepted. A completed order reports the frozen duration up to
// its last modification; an order in preparation or out for delivery keeps
// counting.
func Elapsed(o models.Order, now time.Time) time.Duration {
	if o.AcceptedAt == nil {
		return 0
	}
	var d time.Duration
	switch o.Status {
	case models.StatusCompleted:
		d = o.UpdatedAt.Sub(*o.AcceptedAt)
	case models.StatusInPreparation, models.StatusOutForDelivery:
		d = now.Sub(*o.AcceptedAt)
	}
	if d < 0 {
		return 0
	}
	return d
}

// Reading is one published measurement for an order.
type Reading struct {
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
	Elapsed time.Duration      `json:"-"`
	Seconds int64              `json:"elapsedSeconds"`
	Bucket  Bucket             `json:"bucket"`
	Running bool               `json:"running"`
}

func Measure(o models.Order, now time.Time, th Thresholds) Reading {
	d := Elapsed(o, now)
	return Reading{
		OrderID: o.ID,
		Status:  o.Status,
		Elapsed: d,
		Seconds: int64(d / time.Second),
		Bucket:  th.Bucket(d),
		Running: o.AcceptedAt != nil && o.Status.Active(),
	}
}

// MeasureActive returns readings for the orders whose clock is running.
func MeasureActive(orders []models.Order, now time.Time, th Thresholds) []Reading {
	out := make([]Reading, 0, len(orders))
	for _, o := range orders {
		if o.AcceptedAt == nil || !o.Status.Active() {
			continue
		}
		out = append(out, Measure(o, now, th))
	}
	return out
}

// Lookup returns the latest known state of an order, false when it is gone.
type Lookup func(ctx context.Context, id string) (models.Order, bool)

// Watcher publishes a reading for one order on every tick.
type Watcher struct {
	Interval   time.Duration
	Thresholds Thresholds
	Now        func() time.Time
}

func NewWatcher(th Thresholds) *Watcher {
	return &Watcher{Interval: time.Second, Thresholds: th, Now: time.Now}
}

// Watch publishes readings for orderID until the order leaves the active
// statuses, disappears or ctx is done. The last reading published for a
// finished order has Running set to false.
func (w *Watcher) Watch(ctx context.Context, orderID string, lookup Lookup, publish func(Reading)) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		o, ok := lookup(ctx, orderID)
		if !ok {
			return
		}
		r := Measure(o, w.Now(), w.Thresholds)
		publish(r)
		if !r.Running {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
