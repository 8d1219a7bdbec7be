package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/store"
)

// Ключи хранилища.
const (
	TicketsKey      = "mentor-queue-tickets"
	StatusKeyPrefix = "mentor-queue-status-"
	// LegacyStatusKey — флаг единственного ментора из первой версии; читается
	// как флаг основного ментора, пока нет собственного ключа.
	LegacyStatusKey = "mentor-queue-status"
	SessionKey      = "mentor-queue-session-id"
)

// События шины внутри процесса.
const (
	EventStorageUpdate store.Topic = "local-storage-update"
	EventStatusUpdate  store.Topic = "local-status-update"
)

// Backend хранит список тикетов одним JSON-значением и флаги присутствия
// отдельными ключами. Правила доступа не применяются.
type Backend struct {
	storage *Storage
	events  *store.Bus
	mentors []string
	primary string

	// mu сериализует чтение-изменение-запись списка внутри процесса.
	mu sync.Mutex
}

var _ store.Backend = (*Backend)(nil)

// New создаёт резервное хранилище. mentorIDs[0] считается основным ментором.
// events может быть общей шиной для нескольких Backend в одном процессе.
func New(storage *Storage, mentorIDs []string, events *store.Bus) *Backend {
	if events == nil {
		events = store.NewBus()
	}
	b := &Backend{storage: storage, events: events, mentors: mentorIDs}
	if len(mentorIDs) > 0 {
		b.primary = mentorIDs[0]
	}
	return b
}

func eventFor(topic store.Topic) store.Topic {
	switch topic {
	case store.TopicTickets:
		return EventStorageUpdate
	case store.TopicPresence:
		return EventStatusUpdate
	}
	return topic
}

func (b *Backend) Publish(ctx context.Context, topic store.Topic) error {
	return b.events.Publish(ctx, eventFor(topic))
}

func (b *Backend) Subscribe(topic store.Topic) (<-chan struct{}, func()) {
	return b.events.Subscribe(eventFor(topic))
}

func (b *Backend) load(ctx context.Context) ([]model.Ticket, error) {
	raw, ok, err := b.storage.GetItem(ctx, TicketsKey)
	if err != nil || !ok || raw == "" {
		return nil, err
	}
	var tickets []model.Ticket
	if err := json.Unmarshal([]byte(raw), &tickets); err != nil {
		return nil, fmt.Errorf("decode %s: %w", TicketsKey, err)
	}
	return tickets, nil
}

func (b *Backend) save(ctx context.Context, tickets []model.Ticket) error {
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	raw, err := json.Marshal(tickets)
	if err != nil {
		return err
	}
	if err := b.storage.SetItem(ctx, TicketsKey, string(raw)); err != nil {
		return err
	}
	return b.events.Publish(ctx, EventStorageUpdate)
}

// ListTickets возвращает список в сохранённом порядке (новые первыми).
func (b *Backend) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	return b.load(ctx)
}

func (b *Backend) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	tickets, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		if tickets[i].ID == id {
			return &tickets[i], nil
		}
	}
	return nil, errs.ErrTicketNotFound
}

// CreateTicket добавляет тикет в начало списка под id клиента.
func (b *Backend) CreateTicket(ctx context.Context, t *model.Ticket) (string, error) {
	if t.ID == "" {
		t.ID = model.NewTicketID()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tickets, err := b.load(ctx)
	if err != nil {
		return "", err
	}
	for _, existing := range tickets {
		if existing.ID == t.ID {
			return "", errs.Invalid("id", fmt.Sprintf("ticket %q already exists", t.ID))
		}
	}
	tickets = append([]model.Ticket{*t}, tickets...)
	if err := b.save(ctx, tickets); err != nil {
		return "", err
	}
	return t.ID, nil
}

func (b *Backend) UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	tickets, err := b.load(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range tickets {
		if tickets[i].ID == id {
			patch.Apply(&tickets[i])
			found = true
			break
		}
	}
	if !found {
		return errs.ErrTicketNotFound
	}
	return b.save(ctx, tickets)
}

func (b *Backend) DeleteTickets(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tickets, err := b.load(ctx)
	if err != nil {
		return err
	}
	kept := tickets[:0]
	for _, t := range tickets {
		if !drop[t.ID] {
			kept = append(kept, t)
		}
	}
	return b.save(ctx, kept)
}

func (b *Backend) GetPresence(ctx context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(b.mentors))
	for _, id := range b.mentors {
		v, ok, err := b.storage.GetItem(ctx, StatusKeyPrefix+id)
		if err != nil {
			return nil, err
		}
		if !ok && id == b.primary {
			if v, ok, err = b.storage.GetItem(ctx, LegacyStatusKey); err != nil {
				return nil, err
			}
		}
		out[id] = ok && v == "true"
	}
	return out, nil
}

func (b *Backend) SetPresence(ctx context.Context, mentorID string, online bool) error {
	value := "false"
	if online {
		value = "true"
	}
	if err := b.storage.SetItem(ctx, StatusKeyPrefix+mentorID, value); err != nil {
		return err
	}
	return b.events.Publish(ctx, EventStatusUpdate)
}
