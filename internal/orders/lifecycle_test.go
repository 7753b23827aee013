package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

var t0 = time.Date(2026, 5, 2, 19, 0, 0, 0, time.UTC)

func TestTransitionTable(t *testing.T) {
	allowed := map[models.OrderStatus]map[Event]models.OrderStatus{
		models.StatusNew: {
			EventAccept: models.StatusInPreparation,
			EventCancel: models.StatusCancelled,
			EventDelete: models.StatusNew,
		},
		models.StatusInPreparation: {
			EventDispatch: models.StatusOutForDelivery,
			EventCancel:   models.StatusCancelled,
			EventDelete:   models.StatusInPreparation,
		},
		models.StatusOutForDelivery: {
			EventDeliver: models.StatusCompleted,
			EventCancel:  models.StatusCancelled,
			EventDelete:  models.StatusOutForDelivery,
		},
		models.StatusCompleted: {EventReopen: models.StatusNew},
		models.StatusCancelled: {EventReopen: models.StatusNew},
	}
	events := []Event{EventAccept, EventDispatch, EventDeliver, EventCancel, EventDelete, EventReopen}

	for _, from := range models.AllStatuses() {
		for _, ev := range events {
			o := models.Order{ID: "o1", Status: from}
			if from == models.StatusCancelled {
				reason := "customer gave up"
				o.CancellationReason = &reason
			}

			got, err := Transition(o, ev, "out of stock", t0)

			want, ok := allowed[from][ev]
			if !ok {
				var tErr *apperr.InvalidTransitionError
				require.True(t, errors.As(err, &tErr), "%s from %s should be rejected", ev, from)
				assert.Equal(t, o, got, "rejected transition must leave the order as is")
				continue
			}
			require.NoError(t, err, "%s from %s", ev, from)
			assert.Equal(t, want, got.Status, "%s from %s", ev, from)
		}
	}
}

func TestAcceptOutForDeliveryFails(t *testing.T) {
	o := models.Order{ID: "o1", Status: models.StatusOutForDelivery}

	got, err := Transition(o, EventAccept, "", t0)

	var tErr *apperr.InvalidTransitionError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, "accept", tErr.Event)
	assert.Equal(t, models.StatusOutForDelivery, got.Status)
}

func TestAcceptedAtSetOnceAndKept(t *testing.T) {
	o := models.Order{ID: "o1", Status: models.StatusNew}

	o, err := Transition(o, EventAccept, "", t0)
	require.NoError(t, err)
	require.NotNil(t, o.AcceptedAt)
	assert.Equal(t, t0, *o.AcceptedAt)

	o, err = Transition(o, EventDispatch, "", t0.Add(10*time.Minute))
	require.NoError(t, err)
	o, err = Transition(o, EventDeliver, "", t0.Add(25*time.Minute))
	require.NoError(t, err)

	require.NotNil(t, o.AcceptedAt)
	assert.Equal(t, t0, *o.AcceptedAt)
	assert.Equal(t, t0.Add(25*time.Minute), o.UpdatedAt)

	o, err = Transition(o, EventReopen, "", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, o.AcceptedAt)
	assert.Equal(t, models.StatusNew, o.Status)
}

func TestTransitionDoesNotAliasInput(t *testing.T) {
	o := models.Order{ID: "o1", Status: models.StatusNew}
	accepted, err := Transition(o, EventAccept, "", t0)
	require.NoError(t, err)

	dispatched, err := Transition(accepted, EventDispatch, "", t0.Add(time.Minute))
	require.NoError(t, err)
	*dispatched.AcceptedAt = t0.Add(time.Hour)

	assert.Equal(t, t0, *accepted.AcceptedAt)
}

func TestCancelRequiresReason(t *testing.T) {
	o := models.Order{ID: "o1", Status: models.StatusInPreparation}

	for _, reason := range []string{"", "   ", "\t\n"} {
		got, err := Transition(o, EventCancel, reason, t0)

		var vErr *apperr.ValidationError
		require.True(t, errors.As(err, &vErr), "reason %q", reason)
		assert.Equal(t, models.StatusInPreparation, got.Status)
		assert.Nil(t, got.CancellationReason)
	}
}

func TestCancelAndReopenReason(t *testing.T) {
	o := models.Order{ID: "o1", Status: models.StatusNew}

	cancelled, err := Transition(o, EventCancel, "  address not found ", t0)
	require.NoError(t, err)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "address not found", *cancelled.CancellationReason)

	reopened, err := Transition(cancelled, EventReopen, "", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, reopened.CancellationReason)
	assert.Equal(t, models.StatusNew, reopened.Status)
}

func TestParseEventAndNextEvents(t *testing.T) {
	ev, ok := ParseEvent(" Dispatch ")
	assert.True(t, ok)
	assert.Equal(t, EventDispatch, ev)

	_, ok = ParseEvent("teleport")
	assert.False(t, ok)

	assert.Equal(t, []Event{EventAccept, EventCancel}, NextEvents(models.StatusNew))
	assert.Equal(t, []Event{EventReopen}, NextEvents(models.StatusCompleted))
}
