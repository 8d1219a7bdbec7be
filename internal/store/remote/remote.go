// Package remote — удалённое хранилище очереди поверх Postgres (gorm).
// Изменения публикуются в Feed после каждой успешной записи.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/store"
)

const emailConfigRowID = 1

type Store struct {
	db   *gorm.DB
	feed store.Feed
	node *snowflake.Node
	log  *logrus.Entry
}

var _ store.RemoteBackend = (*Store)(nil)

// New создаёт хранилище. nodeID задаёт номер узла генератора ключей snowflake (0..1023).
func New(db *gorm.DB, feed store.Feed, nodeID int64, log logrus.FieldLogger) (*Store, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	if feed == nil {
		feed = store.NewBus()
	}
	return &Store{db: db, feed: feed, node: node, log: logging.Component(log, "remote-store")}, nil
}

func (s *Store) Publish(ctx context.Context, topic store.Topic) error {
	return s.feed.Publish(ctx, topic)
}

func (s *Store) Subscribe(topic store.Topic) (<-chan struct{}, func()) {
	return s.feed.Subscribe(topic)
}

// notify публикует изменение. Запись уже прошла, поэтому ошибка только логируется.
func (s *Store) notify(ctx context.Context, topic store.Topic) {
	if err := s.feed.Publish(ctx, topic); err != nil {
		s.log.WithError(err).Warnf("feed: publish %s", topic)
	}
}

func (s *Store) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var items []model.Ticket
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateTicket записывает тикет под новым ключом snowflake; id клиента не используется.
func (s *Store) CreateTicket(ctx context.Context, t *model.Ticket) (string, error) {
	t.ID = s.node.Generate().String()
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return "", err
	}
	s.notify(ctx, store.TopicTickets)
	return t.ID, nil
}

func (s *Store) UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) error {
	changes := patch.Columns()
	if len(changes) == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&model.Ticket{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrTicketNotFound
	}
	s.notify(ctx, store.TopicTickets)
	return nil
}

// DeleteTickets удаляет все ids в одной транзакции.
func (s *Store) DeleteTickets(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("id IN ?", ids).Delete(&model.Ticket{}).Error
	})
	if err != nil {
		return err
	}
	s.notify(ctx, store.TopicTickets)
	return nil
}

func (s *Store) GetPresence(ctx context.Context) (map[string]bool, error) {
	var rows []model.MentorPresence
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.MentorID] = r.Online
	}
	return out, nil
}

func (s *Store) SetPresence(ctx context.Context, mentorID string, online bool) error {
	row := model.MentorPresence{MentorID: mentorID, Online: online, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mentor_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"online", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}
	s.notify(ctx, store.TopicPresence)
	return nil
}

func (s *Store) ListTelegramDestinations(ctx context.Context) ([]model.TelegramDestination, error) {
	var items []model.TelegramDestination
	if err := s.db.WithContext(ctx).Order("connected_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) PutTelegramDestination(ctx context.Context, d model.TelegramDestination) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "connected_at"}),
	}).Create(&d).Error
}

func (s *Store) GetEmailConfig(ctx context.Context) (*model.EmailConfig, error) {
	var c model.EmailConfig
	if err := s.db.WithContext(ctx).Where("id = ?", emailConfigRowID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveEmailConfig(ctx context.Context, c model.EmailConfig) error {
	c.ID = emailConfigRowID
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"service_id", "template_id", "public_key"}),
	}).Create(&c).Error
}

// AutoMigrate создаёт таблицы средствами gorm. Для Postgres используются миграции goose.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Ticket{}, &model.MentorPresence{}, &model.TelegramDestination{}, &model.EmailConfig{})
}
