package notify

import (
	"context"

	"github.com/psds-microservice/mentor-queue/internal/kafka"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Типы событий в топике тикетов.
const (
	EventTicketCreated  = "ticket.created"
	EventTicketReplayed = "ticket.replayed"
)

// KafkaSink публикует событие о новом тикете в топик.
type KafkaSink struct {
	producer kafka.TicketEventProducer
}

func NewKafkaSink(producer kafka.TicketEventProducer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Notify(ctx context.Context, t model.Ticket) error {
	return k.producer.ProduceTicketEvent(ctx, EventTicketCreated, TicketPayload(t))
}

// TicketPayload собирает поля тикета для события.
func TicketPayload(t model.Ticket) map[string]interface{} {
	return map[string]interface{}{
		"ticket_id":    t.ID,
		"student_name": t.StudentName,
		"reason":       t.Reason,
		"availability": t.Availability,
		"status":       string(t.Status),
		"created_at":   t.CreatedAt,
		"created_by":   t.CreatedBy,
	}
}
