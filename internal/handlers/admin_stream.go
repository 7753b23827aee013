package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"storefront/internal/realtime"
	"storefront/internal/sla"
)

const streamBuffer = 64

func writeEvent(c *gin.Context, name string, data interface{}) {
	c.Render(-1, sse.Event{Event: name, Data: data})
	c.Writer.Flush()
}

/*
GET /admin/api/orders/stream
- "snapshot" with the board on connect
- order_created / order_updated / order_deleted as they are applied
- "elapsed" with the running clocks every second
*/
func OrderStream(board *realtime.Board, th sla.Thresholds) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/stream"
		defer handlePanic(c, route)

		events, cancel := board.Subscribe(streamBuffer)
		defer cancel()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		writeEvent(c, "snapshot", board.Orders())

		ctx := c.Request.Context()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case ev, ok := <-events:
				if !ok {
					return false
				}
				writeEvent(c, string(ev.Kind), ev.Order)
				return true
			case now := <-ticker.C:
				writeEvent(c, "elapsed", sla.MeasureActive(board.Orders(), now, th))
				return true
			}
		})
	}
}

// OrderTimer streams the elapsed clock of a single order until it stops
// running.
func OrderTimer(board *realtime.Board, watcher *sla.Watcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/:id/timer"
		defer handlePanic(c, route)

		id := c.Param("id")
		if _, ok := board.Get(id); !ok {
			respondWithError(c, http.StatusNotFound, route, "order not on the board")
			return
		}

		c.Header("Cache-Control", "no-cache")
		c.Status(http.StatusOK)
		watcher.Watch(c.Request.Context(), id, orderFromBoard(board), func(r sla.Reading) {
			writeEvent(c, "elapsed", r)
		})
		writeEvent(c, "done", gin.H{"orderId": id})
	}
}
