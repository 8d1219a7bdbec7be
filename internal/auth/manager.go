package auth

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Recaller сохраняет id сессии клиента между запусками.
type Recaller interface {
	LoadSessionID(ctx context.Context) (string, error)
	SaveSessionID(ctx context.Context, id string) error
}

// Manager держит текущую сессию одного клиента и оповещает подписчиков о её смене.
type Manager struct {
	auth   *Authenticator
	recall Recaller
	log    *logrus.Entry

	mu      sync.Mutex
	current *model.Session
	next    int
	subs    map[int]func(*model.Session)
}

// NewManager создаёт менеджер. recall может быть nil.
func NewManager(a *Authenticator, recall Recaller, log logrus.FieldLogger) *Manager {
	return &Manager{
		auth:   a,
		recall: recall,
		log:    logging.Component(log, "session"),
		subs:   make(map[int]func(*model.Session)),
	}
}

// Current возвращает текущую сессию или nil.
func (m *Manager) Current() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe вызывает fn с текущей сессией и затем при каждой её смене.
func (m *Manager) Subscribe(fn func(*model.Session)) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = fn
	current := m.current
	m.mu.Unlock()

	fn(current)
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) set(ctx context.Context, s *model.Session) {
	m.mu.Lock()
	m.current = s
	subs := make([]func(*model.Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if m.recall != nil {
		id := ""
		if s != nil {
			id = s.ID
		}
		if err := m.recall.SaveSessionID(ctx, id); err != nil {
			m.log.WithError(err).Warn("session: remember session id")
		}
	}
	for _, fn := range subs {
		fn(s)
	}
}

// Start восстанавливает сохранённую сессию или открывает анонимную.
// Ошибки только логируются: без сессии запись в удалённое хранилище будет отклонена.
func (m *Manager) Start(ctx context.Context) {
	if m.Current() != nil {
		return
	}
	if m.recall != nil {
		if id, err := m.recall.LoadSessionID(ctx); err != nil {
			m.log.WithError(err).Warn("session: load remembered session")
		} else if id != "" {
			if s, err := m.auth.Lookup(ctx, id); err == nil {
				m.set(ctx, s)
				return
			}
		}
	}
	s, err := m.auth.Anonymous(ctx)
	if err != nil {
		m.log.WithError(err).Error("session: anonymous sign-in failed")
		return
	}
	m.set(ctx, s)
}

// Login заменяет текущую сессию сессией ментора.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	s, err := m.auth.Login(ctx, identifier, secret)
	if err != nil {
		return err
	}
	if prev := m.Current(); prev != nil && prev.IsAnonymous {
		if err := m.auth.Logout(ctx, prev.ID); err != nil {
			m.log.WithError(err).Warn("session: drop anonymous session")
		}
	}
	m.set(ctx, s)
	return nil
}

// Logout завершает сессию; подписчики видят nil, затем новую анонимную сессию.
func (m *Manager) Logout(ctx context.Context) error {
	if prev := m.Current(); prev != nil {
		if err := m.auth.Logout(ctx, prev.ID); err != nil {
			return err
		}
	}
	m.set(ctx, nil)
	m.Start(ctx)
	return nil
}
