package rules

import (
	"context"
	"errors"

	"github.com/psds-microservice/mentor-queue/internal/auth"
	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/store"
)

// Guarded — удалённое хранилище, проверяющее каждую запись по правилам.
// Сессия вызывающего берётся из контекста (auth.WithSession).
type Guarded struct {
	store.RemoteBackend
	rules *Enforcer
}

var _ store.RemoteBackend = (*Guarded)(nil)

func Guard(inner store.RemoteBackend, rules *Enforcer) *Guarded {
	return &Guarded{RemoteBackend: inner, rules: rules}
}

func (g *Guarded) check(ctx context.Context, obj, act, owner string, exists bool) error {
	return g.rules.Check(Request{
		Session: auth.SessionFromContext(ctx),
		Object:  obj,
		Action:  act,
		Owner:   owner,
		Exists:  exists,
	})
}

func (g *Guarded) CreateTicket(ctx context.Context, t *model.Ticket) (string, error) {
	if err := g.check(ctx, ObjTickets, ActWrite, "", false); err != nil {
		return "", err
	}
	return g.RemoteBackend.CreateTicket(ctx, t)
}

func (g *Guarded) UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) error {
	owner, exists := "", true
	existing, err := g.RemoteBackend.GetTicket(ctx, id)
	switch {
	case errors.Is(err, errs.ErrTicketNotFound):
		exists = false
	case err != nil:
		return err
	default:
		owner = existing.CreatedBy
	}
	if err := g.check(ctx, ObjTickets, ActWrite, owner, exists); err != nil {
		return err
	}
	return g.RemoteBackend.UpdateTicket(ctx, id, patch)
}

func (g *Guarded) DeleteTickets(ctx context.Context, ids []string) error {
	if err := g.check(ctx, ObjTickets, ActDelete, "", true); err != nil {
		return err
	}
	return g.RemoteBackend.DeleteTickets(ctx, ids)
}

func (g *Guarded) SetPresence(ctx context.Context, mentorID string, online bool) error {
	if err := g.check(ctx, ObjPresence, ActWrite, "", true); err != nil {
		return err
	}
	return g.RemoteBackend.SetPresence(ctx, mentorID, online)
}

func (g *Guarded) PutTelegramDestination(ctx context.Context, d model.TelegramDestination) error {
	if err := g.check(ctx, ObjConfig, ActWrite, "", true); err != nil {
		return err
	}
	return g.RemoteBackend.PutTelegramDestination(ctx, d)
}

func (g *Guarded) SaveEmailConfig(ctx context.Context, c model.EmailConfig) error {
	if err := g.check(ctx, ObjConfig, ActWrite, "", true); err != nil {
		return err
	}
	return g.RemoteBackend.SaveEmailConfig(ctx, c)
}
