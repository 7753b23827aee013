package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func order(id string, status models.OrderStatus, created time.Time) models.Order {
	return models.Order{ID: id, Status: status, CreatedAt: created, UpdatedAt: created}
}

func newBoard() *Board {
	logger, _ := test.NewNullLogger()
	return NewBoard(logger)
}

func ids(orders []models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestResetOrdersMostRecentFirst(t *testing.T) {
	b := newBoard()
	b.Reset([]models.Order{
		order("a", models.StatusNew, base),
		order("c", models.StatusNew, base.Add(2*time.Minute)),
		order("b", models.StatusNew, base.Add(time.Minute)),
	})

	assert.Equal(t, []string{"c", "b", "a"}, ids(b.Orders()))
}

func TestCreatedPrependsAndSignals(t *testing.T) {
	b := newBoard()
	b.Reset([]models.Order{order("a", models.StatusNew, base)})

	var alerted []string
	b.OnNewOrder(func(o models.Order) { alerted = append(alerted, o.ID) })

	assert.True(t, b.Apply(Event{Kind: OrderCreated, Order: order("b", models.StatusNew, base.Add(time.Minute))}))
	assert.Equal(t, []string{"b", "a"}, ids(b.Orders()))
	assert.Equal(t, []string{"b"}, alerted)

	b.Apply(Event{Kind: OrderCreated, Order: order("b", models.StatusNew, base.Add(time.Minute))})
	assert.Equal(t, []string{"b", "a"}, ids(b.Orders()))
	assert.Equal(t, []string{"b"}, alerted, "a known id must not alert twice")
}

func TestUpdateReplacesWholeSnapshot(t *testing.T) {
	b := newBoard()
	original := order("a", models.StatusNew, base)
	original.Observations = "no onions"
	b.Reset([]models.Order{original})

	updated := order("a", models.StatusInPreparation, base)
	updated.UpdatedAt = base.Add(time.Minute)

	require.True(t, b.Apply(Event{Kind: OrderUpdated, Order: updated}))
	got, ok := b.Get("a")
	require.True(t, ok)
	assert.Equal(t, updated, got)
	assert.Empty(t, got.Observations)
}

func TestUpdateIsIdempotent(t *testing.T) {
	b := newBoard()
	b.Reset([]models.Order{order("a", models.StatusNew, base), order("b", models.StatusNew, base.Add(time.Second))})

	updated := order("a", models.StatusInPreparation, base)
	updated.UpdatedAt = base.Add(time.Minute)
	ev := Event{Kind: OrderUpdated, Order: updated}

	b.Apply(ev)
	once := b.Orders()
	b.Apply(ev)

	assert.Equal(t, once, b.Orders())
}

func TestUpdateForUnknownOrderIsIgnored(t *testing.T) {
	b := newBoard()
	b.Reset([]models.Order{order("a", models.StatusNew, base)})

	assert.False(t, b.Apply(Event{Kind: OrderUpdated, Order: order("zzz", models.StatusNew, base)}))
	assert.Equal(t, []string{"a"}, ids(b.Orders()))
}

func TestStaleUpdateIsIgnored(t *testing.T) {
	b := newBoard()
	current := order("a", models.StatusOutForDelivery, base)
	current.UpdatedAt = base.Add(10 * time.Minute)
	b.Reset([]models.Order{current})

	stale := order("a", models.StatusInPreparation, base)
	stale.UpdatedAt = base.Add(5 * time.Minute)

	assert.False(t, b.Apply(Event{Kind: OrderUpdated, Order: stale}))
	got, _ := b.Get("a")
	assert.Equal(t, models.StatusOutForDelivery, got.Status)
}

func TestStoredCopyReplacesFinerLocalCopy(t *testing.T) {
	b := newBoard()
	local := order("a", models.StatusNew, base)
	local.UpdatedAt = base.Add(time.Minute + 1234567*time.Nanosecond)
	b.Reset([]models.Order{local})

	stored := local
	stored.Status = models.StatusInPreparation
	stored.UpdatedAt = local.UpdatedAt.Truncate(time.Millisecond)

	assert.True(t, b.Apply(Event{Kind: OrderUpdated, Order: stored}))
	got, _ := b.Get("a")
	assert.Equal(t, models.StatusInPreparation, got.Status)
}

func TestDeletedRemovesOrder(t *testing.T) {
	b := newBoard()
	b.Reset([]models.Order{order("a", models.StatusNew, base), order("b", models.StatusNew, base.Add(time.Second))})

	assert.True(t, b.Apply(Event{Kind: OrderDeleted, Order: models.Order{ID: "a"}}))
	assert.Equal(t, []string{"b"}, ids(b.Orders()))
}

func TestColumnsSkipTerminalOrders(t *testing.T) {
	b := newBoard()
	b.Reset([]models.Order{
		order("n", models.StatusNew, base),
		order("p", models.StatusInPreparation, base),
		order("d", models.StatusOutForDelivery, base),
		order("f", models.StatusCompleted, base),
		order("x", models.StatusCancelled, base),
	})

	cols := b.Columns()
	assert.Equal(t, []string{"n"}, ids(cols.New))
	assert.Equal(t, []string{"p"}, ids(cols.InPreparation))
	assert.Equal(t, []string{"d"}, ids(cols.OutForDelivery))
}

func TestSubscribersReceiveAppliedEvents(t *testing.T) {
	b := newBoard()
	ch, cancel := b.Subscribe(4)

	b.Apply(Event{Kind: OrderCreated, Order: order("a", models.StatusNew, base)})
	b.Apply(Event{Kind: OrderUpdated, Order: order("missing", models.StatusNew, base)})

	select {
	case ev := <-ch:
		assert.Equal(t, OrderCreated, ev.Kind)
		assert.Equal(t, "a", ev.Order.ID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

type scriptedFeed struct {
	events []Event
	runs   int
}

func (f *scriptedFeed) Run(ctx context.Context, ready func(), emit func(Event)) error {
	f.runs++
	ready()
	for _, ev := range f.events {
		emit(ev)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSyncLoadsThenAppliesFeed(t *testing.T) {
	b := newBoard()
	logger, _ := test.NewNullLogger()
	feed := &scriptedFeed{events: []Event{{Kind: OrderCreated, Order: order("b", models.StatusNew, base.Add(time.Minute))}}}
	load := func(context.Context) ([]models.Order, error) {
		return []models.Order{order("a", models.StatusNew, base)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Sync(ctx, b, load, feed, logger)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(b.Orders()) == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []string{"b", "a"}, ids(b.Orders()))
}

func TestSyncStopsWhenLoadKeepsFailing(t *testing.T) {
	b := newBoard()
	logger, hook := test.NewNullLogger()
	load := func(context.Context) ([]models.Order, error) { return nil, errors.New("db down") }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Sync(ctx, b, load, &scriptedFeed{}, logger)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(hook.AllEntries()) > 0 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	assert.Empty(t, b.Orders())
}

// racingFeed delivers its event while the board is being loaded.
type racingFeed struct {
	ev      Event
	loading chan struct{}
	emitted chan struct{}
}

func (f *racingFeed) Run(ctx context.Context, ready func(), emit func(Event)) error {
	ready()
	select {
	case <-f.loading:
		emit(f.ev)
		close(f.emitted)
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSyncKeepsChangesMadeDuringReload(t *testing.T) {
	b := newBoard()
	logger, _ := test.NewNullLogger()
	feed := &racingFeed{
		ev:      Event{Kind: OrderCreated, Order: order("b", models.StatusNew, base.Add(time.Minute))},
		loading: make(chan struct{}),
		emitted: make(chan struct{}),
	}
	load := func(context.Context) ([]models.Order, error) {
		close(feed.loading)
		<-feed.emitted
		return []models.Order{order("a", models.StatusNew, base)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Sync(ctx, b, load, feed, logger)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(b.Orders()) == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []string{"b", "a"}, ids(b.Orders()))
}

type brokenFeed struct{ runs int }

func (f *brokenFeed) Run(context.Context, func(), func(Event)) error {
	f.runs++
	return errors.New("change streams unsupported")
}

func TestSyncSkipsReloadWhenFeedCannotOpen(t *testing.T) {
	b := newBoard()
	logger, hook := test.NewNullLogger()
	loads := 0
	load := func(context.Context) ([]models.Order, error) {
		loads++
		return []models.Order{order("a", models.StatusNew, base)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Sync(ctx, b, load, &brokenFeed{}, logger)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(hook.AllEntries()) > 0 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	assert.Zero(t, loads)
	assert.Empty(t, b.Orders())
}
