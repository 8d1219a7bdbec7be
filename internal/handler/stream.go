package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/queue"
)

// Streamer — живые подписки фасада (queue.Facade).
type Streamer interface {
	Subscribe(ctx context.Context, onChange func([]model.Ticket), onError func(error)) func()
	SubscribeToPresence(ctx context.Context, onChange func(map[string]bool), onError func(error)) func()
}

type StreamHandler struct {
	feed Streamer
}

func NewStreamHandler(feed Streamer) *StreamHandler {
	return &StreamHandler{feed: feed}
}

type streamEvent struct {
	name string
	data interface{}
}

// Stream отправляет события SSE: tickets (полный список и разбивка), presence
// и error. Первые tickets и presence приходят сразу после подключения.
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := make(chan streamEvent, 8)
	send := func(ev streamEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}
	onError := func(err error) {
		send(streamEvent{name: "error", data: gin.H{"error": errs.Message(err), "kind": errs.Classify(err).String()}})
	}

	stopTickets := h.feed.Subscribe(ctx, func(items []model.Ticket) {
		send(streamEvent{name: "tickets", data: ticketsResponse{Tickets: items, Views: queue.SplitViews(items)}})
	}, onError)
	defer stopTickets()
	stopPresence := h.feed.SubscribeToPresence(ctx, func(p map[string]bool) {
		send(streamEvent{name: "presence", data: gin.H{"presence": p, "anyOnline": queue.AnyMentorOnline(p)}})
	}, onError)
	defer stopPresence()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			c.SSEvent(ev.name, ev.data)
			c.Writer.Flush()
		}
	}
}
