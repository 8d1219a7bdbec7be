package service_test

import (
	"context"

	"github.com/psds-microservice/mentor-queue/internal/auth"
	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

// mockQueue хранит тикеты в памяти и записывает вызовы.
type mockQueue struct {
	tickets  map[string]*model.Ticket
	presence map[string]bool
	added    []model.Ticket
	patches  map[string][]model.TicketPatch
	cleared  int

	addErr    error
	updateErr error
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		tickets:  map[string]*model.Ticket{},
		presence: map[string]bool{},
		patches:  map[string][]model.TicketPatch{},
	}
}

func (m *mockQueue) Caller(ctx context.Context) *model.Session {
	return auth.SessionFromContext(ctx)
}

func (m *mockQueue) Tickets(_ context.Context) ([]model.Ticket, error) {
	out := make([]model.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockQueue) Ticket(_ context.Context, id string) (*model.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockQueue) AddTicket(ctx context.Context, t model.Ticket) (string, error) {
	if m.addErr != nil {
		return "", m.addErr
	}
	m.added = append(m.added, t)
	t.ID = "generated"
	t.Status = model.TicketStatusPending
	t.CreatedBy = model.AnonymousCreator
	if s := auth.SessionFromContext(ctx); s != nil {
		t.CreatedBy = s.ID
	}
	m.tickets[t.ID] = &t
	return t.ID, nil
}

func (m *mockQueue) UpdateTicket(_ context.Context, id string, patch model.TicketPatch) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	t, ok := m.tickets[id]
	if !ok {
		return errs.ErrTicketNotFound
	}
	patch.Apply(t)
	m.patches[id] = append(m.patches[id], patch)
	return nil
}

func (m *mockQueue) ClearHistory(_ context.Context) (int, error) {
	m.cleared++
	return 0, nil
}

func (m *mockQueue) Presence(_ context.Context) (map[string]bool, error) {
	out := map[string]bool{"muzeira": false, "kayo": false}
	for k, v := range m.presence {
		out[k] = v
	}
	return out, nil
}

func (m *mockQueue) SetPresence(_ context.Context, mentorID string, online bool) error {
	m.presence[mentorID] = online
	return nil
}
