// Package store определяет контракты хранилищ тикетов, присутствия и настроек
// и общую шину уведомлений об изменениях.
package store

import (
	"context"
	"sort"

	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Topic — класс изменений, о которых оповещает Feed.
type Topic string

const (
	TopicTickets  Topic = "tickets"
	TopicPresence Topic = "presence"
)

// TicketStore хранит тикеты. ListTickets не гарантирует порядок.
type TicketStore interface {
	ListTickets(ctx context.Context) ([]model.Ticket, error)
	GetTicket(ctx context.Context, id string) (*model.Ticket, error)
	// CreateTicket сохраняет тикет и возвращает его id. Хранилище может
	// заменить id клиента своим ключом.
	CreateTicket(ctx context.Context, t *model.Ticket) (string, error)
	UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) error
	// DeleteTickets удаляет тикеты одной пакетной операцией.
	DeleteTickets(ctx context.Context, ids []string) error
}

// PresenceStore хранит флаги доступности менторов.
type PresenceStore interface {
	GetPresence(ctx context.Context) (map[string]bool, error)
	SetPresence(ctx context.Context, mentorID string, online bool) error
}

// ConfigStore хранит настройки уведомлений. Доступен только в удалённом режиме.
type ConfigStore interface {
	ListTelegramDestinations(ctx context.Context) ([]model.TelegramDestination, error)
	PutTelegramDestination(ctx context.Context, d model.TelegramDestination) error
	// GetEmailConfig возвращает nil, nil, если настройка не сохранена.
	GetEmailConfig(ctx context.Context) (*model.EmailConfig, error)
	SaveEmailConfig(ctx context.Context, c model.EmailConfig) error
}

// Feed оповещает подписчиков о том, что данные темы изменились.
// Сигналы могут склеиваться: подписчик перечитывает состояние целиком.
type Feed interface {
	Publish(ctx context.Context, topic Topic) error
	Subscribe(topic Topic) (<-chan struct{}, func())
}

// Backend — хранилище тикетов и присутствия с лентой изменений.
type Backend interface {
	TicketStore
	PresenceStore
	Feed
}

// RemoteBackend дополнительно хранит настройки.
type RemoteBackend interface {
	Backend
	ConfigStore
}

// SortByCreatedDesc упорядочивает тикеты от новых к старым. Порядок равных
// createdAt сохраняется.
func SortByCreatedDesc(tickets []model.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt > tickets[j].CreatedAt
	})
}

// FillPresence дополняет карту присутствия менторами, которых нет в хранилище.
func FillPresence(presence map[string]bool, mentorIDs []string) map[string]bool {
	out := make(map[string]bool, len(mentorIDs))
	for _, id := range mentorIDs {
		out[id] = presence[id]
	}
	for id, online := range presence {
		if _, ok := out[id]; !ok {
			out[id] = online
		}
	}
	return out
}
