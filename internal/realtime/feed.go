package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/models"
)

// Feed streams order changes from the backing store until ctx is done or the
// underlying connection fails. Run calls ready once the stream is open, so
// every change committed after that point reaches emit.
type Feed interface {
	Run(ctx context.Context, ready func(), emit func(Event)) error
}

// Loader reads the orders the board starts from.
type Loader func(ctx context.Context) ([]models.Order, error)

const reconnectDelay = 5 * time.Second

var errFeedClosed = errors.New("order feed closed before it was ready")

// Sync keeps board in step with feed. On every (re)connect the feed is opened
// first and the board reloaded afterwards; events seen during the reload are
// held back and applied on top of the fresh snapshot.
func Sync(ctx context.Context, board *Board, load Loader, feed Feed, log logrus.FieldLogger) {
	for {
		if err := connect(ctx, board, load, feed, log); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("order feed disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func connect(ctx context.Context, board *Board, load Loader, feed Feed, log logrus.FieldLogger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		live    bool
		pending []Event
	)
	emit := func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if !live {
			pending = append(pending, ev)
			return
		}
		board.Apply(ev)
	}

	opened := make(chan struct{})
	var once sync.Once
	ready := func() { once.Do(func() { close(opened) }) }

	errc := make(chan error, 1)
	go func() { errc <- feed.Run(runCtx, ready, emit) }()

	select {
	case <-opened:
	case err := <-errc:
		if err == nil {
			err = errFeedClosed
		}
		return err
	}

	if err := reload(ctx, board, load); err != nil {
		log.WithError(err).Error("board reload failed")
		cancel()
		<-errc
		return err
	}

	mu.Lock()
	for _, ev := range pending {
		board.Apply(ev)
	}
	pending = nil
	live = true
	mu.Unlock()

	return <-errc
}

func reload(ctx context.Context, board *Board, load Loader) error {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	orders, err := load(loadCtx)
	if err != nil {
		return err
	}
	board.Reset(orders)
	return nil
}
