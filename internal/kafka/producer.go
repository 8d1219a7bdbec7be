package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// TicketEventProducer отправляет события тикета в Kafka (подменяется моком в тестах).
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) error
}

// Producer пишет события тикетов в топик Kafka.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer создаёт продюсер. Если brokers или topic пусты, методы ничего не делают.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Enabled сообщает, заданы ли брокеры и топик.
func (p *Producer) Enabled() bool { return p.writer != nil }

// ProduceTicketEvent отправляет событие в топик. Ключ сообщения — ticket_id,
// чтобы события одного тикета попадали в одну партицию.
func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) error {
	if p.writer == nil {
		return nil
	}
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafka: marshal ticket event: %w", err)
	}
	var key []byte
	if id, ok := payload["ticket_id"].(string); ok {
		key = []byte(id)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: body}); err != nil {
		return fmt.Errorf("kafka: write ticket event: %w", err)
	}
	return nil
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
