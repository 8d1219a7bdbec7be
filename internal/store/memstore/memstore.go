// Package memstore — удалённое хранилище в памяти процесса. Используется в
// тестах и в режиме QUEUE_BACKEND=memory.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/store"
)

type Store struct {
	*store.Bus

	mu       sync.RWMutex
	seq      int
	tickets  map[string]model.Ticket
	presence map[string]bool
	chats    map[string]model.TelegramDestination
	email    *model.EmailConfig
}

var _ store.RemoteBackend = (*Store)(nil)

func New() *Store {
	return &Store{
		Bus:      store.NewBus(),
		tickets:  make(map[string]model.Ticket),
		presence: make(map[string]bool),
		chats:    make(map[string]model.TelegramDestination),
	}
}

func (s *Store) ListTickets(_ context.Context) ([]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTicket(_ context.Context, id string) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	return &t, nil
}

// CreateTicket присваивает тикету собственный ключ, как удалённое хранилище.
func (s *Store) CreateTicket(ctx context.Context, t *model.Ticket) (string, error) {
	s.mu.Lock()
	s.seq++
	t.ID = fmt.Sprintf("mem-%06d", s.seq)
	s.tickets[t.ID] = *t
	s.mu.Unlock()
	return t.ID, s.Publish(ctx, store.TopicTickets)
}

func (s *Store) UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) error {
	s.mu.Lock()
	t, ok := s.tickets[id]
	if !ok {
		s.mu.Unlock()
		return errs.ErrTicketNotFound
	}
	patch.Apply(&t)
	s.tickets[id] = t
	s.mu.Unlock()
	return s.Publish(ctx, store.TopicTickets)
}

func (s *Store) DeleteTickets(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, id := range ids {
		delete(s.tickets, id)
	}
	s.mu.Unlock()
	return s.Publish(ctx, store.TopicTickets)
}

func (s *Store) GetPresence(_ context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.presence))
	for k, v := range s.presence {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetPresence(ctx context.Context, mentorID string, online bool) error {
	s.mu.Lock()
	s.presence[mentorID] = online
	s.mu.Unlock()
	return s.Publish(ctx, store.TopicPresence)
}

func (s *Store) ListTelegramDestinations(_ context.Context) ([]model.TelegramDestination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TelegramDestination, 0, len(s.chats))
	for _, d := range s.chats {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (s *Store) PutTelegramDestination(_ context.Context, d model.TelegramDestination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[d.ChatID] = d
	return nil
}

func (s *Store) GetEmailConfig(_ context.Context) (*model.EmailConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.email == nil {
		return nil, nil
	}
	c := *s.email
	return &c, nil
}

func (s *Store) SaveEmailConfig(_ context.Context, c model.EmailConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = &c
	return nil
}
