package queue

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

var chatIDPattern = regexp.MustCompile(`^-?\d+$`)

// CleanChatID убирает пробелы из id чата и проверяет формат.
func CleanChatID(chatID string) (string, error) {
	clean := strings.Join(strings.Fields(chatID), "")
	if !chatIDPattern.MatchString(clean) {
		return "", errs.Invalid("chatId", "must be a number, optionally negative")
	}
	return clean, nil
}

// RegisterTelegramID добавляет чат в список рассылки.
func (f *Facade) RegisterTelegramID(ctx context.Context, chatID, name string) error {
	if f.remote == nil {
		return errs.ErrBackendOffline
	}
	clean, err := CleanChatID(chatID)
	if err != nil {
		return err
	}
	return f.remote.PutTelegramDestination(f.withSession(ctx), model.TelegramDestination{
		ChatID:      clean,
		Name:        name,
		ConnectedAt: f.now().UnixMilli(),
	})
}

func (f *Facade) TelegramDestinations(ctx context.Context) ([]model.TelegramDestination, error) {
	if f.remote == nil {
		return nil, errs.ErrBackendOffline
	}
	return f.remote.ListTelegramDestinations(ctx)
}

// SaveEmailConfig сохраняет идентификаторы EmailJS.
func (f *Facade) SaveEmailConfig(ctx context.Context, cfg model.EmailConfig) error {
	if f.remote == nil {
		return errs.ErrBackendOffline
	}
	cfg.ServiceID = strings.TrimSpace(cfg.ServiceID)
	cfg.TemplateID = strings.TrimSpace(cfg.TemplateID)
	cfg.PublicKey = strings.TrimSpace(cfg.PublicKey)
	return f.remote.SaveEmailConfig(f.withSession(ctx), cfg)
}

// EmailConfig возвращает сохранённую настройку EmailJS или nil.
func (f *Facade) EmailConfig(ctx context.Context) (*model.EmailConfig, error) {
	if f.remote == nil {
		return nil, errs.ErrBackendOffline
	}
	return f.remote.GetEmailConfig(ctx)
}

// SendTestNotification отправляет проверочное сообщение в один чат.
// Хранилище не требуется.
func (f *Facade) SendTestNotification(ctx context.Context, chatID string) error {
	clean := strings.TrimSpace(chatID)
	if clean == "" {
		return errs.Invalid("chatId", "required")
	}
	if f.telegram == nil {
		return fmt.Errorf("telegram: %w", errs.ErrNotConfigured)
	}
	return f.telegram.SendTest(ctx, clean)
}

// SendTestEmail отправляет проверочное письмо на все адреса списка.
func (f *Facade) SendTestEmail(ctx context.Context, cfg model.EmailConfig) error {
	if f.email == nil {
		return fmt.Errorf("emailjs: %w", errs.ErrNotConfigured)
	}
	return f.email.SendTest(ctx, cfg)
}

// DiscoverChatID ищет id чата, который последним написал боту.
func (f *Facade) DiscoverChatID(ctx context.Context) (string, error) {
	if f.telegram == nil {
		return "", fmt.Errorf("telegram: %w", errs.ErrNotConfigured)
	}
	return f.telegram.DiscoverChatID(ctx)
}
