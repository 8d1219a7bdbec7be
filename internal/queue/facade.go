// Package queue — единая точка входа для клиентов очереди: живые подписки на
// тикеты и присутствие, запись через удалённое или резервное хранилище,
// сессия клиента и настройки уведомлений.
package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/auth"
	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/mentor"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/notify"
	"github.com/psds-microservice/mentor-queue/internal/store"
)

// Enqueuer принимает задачу рассылки о новом тикете (notify.Dispatcher).
type Enqueuer interface {
	Enqueue(t model.Ticket) bool
}

// Deps собирается в application.
type Deps struct {
	// Remote — удалённое хранилище; nil означает резервный режим.
	Remote store.RemoteBackend
	// Local обязателен, если Remote не задан.
	Local     store.Backend
	Sessions  *auth.Manager
	Notifier  Enqueuer
	Directory *mentor.Directory
	Telegram  *notify.Telegram
	Email     *notify.Email
	Log       logrus.FieldLogger
	// Clock задаёт createdAt новых тикетов; по умолчанию time.Now.
	Clock func() time.Time
}

type Facade struct {
	remote   store.RemoteBackend
	local    store.Backend
	sessions *auth.Manager
	notifier Enqueuer
	dir      *mentor.Directory
	telegram *notify.Telegram
	email    *notify.Email
	log      *logrus.Entry
	now      func() time.Time
}

func New(d Deps) (*Facade, error) {
	if d.Remote == nil && d.Local == nil {
		return nil, errors.New("queue: remote or local backend is required")
	}
	if d.Directory == nil {
		d.Directory = mentor.Default()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Facade{
		remote:   d.Remote,
		local:    d.Local,
		sessions: d.Sessions,
		notifier: d.Notifier,
		dir:      d.Directory,
		telegram: d.Telegram,
		email:    d.Email,
		log:      logging.Component(d.Log, "queue"),
		now:      d.Clock,
	}, nil
}

// IsSystemOnline сообщает, настроено ли удалённое хранилище.
func (f *Facade) IsSystemOnline() bool { return f.remote != nil }

func (f *Facade) Directory() *mentor.Directory { return f.dir }

func (f *Facade) backend() store.Backend {
	if f.remote != nil {
		return f.remote
	}
	return f.local
}

// withSession кладёт в контекст текущую сессию менеджера, если вызывающий не
// передал свою.
func (f *Facade) withSession(ctx context.Context) context.Context {
	if auth.SessionFromContext(ctx) != nil || f.sessions == nil {
		return ctx
	}
	if s := f.sessions.Current(); s != nil {
		return auth.WithSession(ctx, s)
	}
	return ctx
}

// Caller возвращает сессию, от имени которой выполняется вызов.
func (f *Facade) Caller(ctx context.Context) *model.Session {
	return auth.SessionFromContext(f.withSession(ctx))
}

// subscribe доставляет данные сразу и затем на каждый сигнал ленты, пока не
// вызвана функция отписки или не отменён ctx.
func (f *Facade) subscribe(ctx context.Context, topic store.Topic, deliver func()) func() {
	ch, cancel := f.backend().Subscribe(topic)
	deliver()

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				deliver()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			cancel()
		})
	}
}

// Subscribe передаёт в onChange полный список тикетов (новые первыми) при
// подписке и после каждого изменения. Ошибки чтения уходят в onError;
// следующая успешная доставка снимает ошибку у клиента.
func (f *Facade) Subscribe(ctx context.Context, onChange func([]model.Ticket), onError func(error)) func() {
	return f.subscribe(ctx, store.TopicTickets, func() {
		tickets, err := f.Tickets(ctx)
		if err != nil {
			f.log.WithError(err).Warn("queue: read tickets")
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(tickets)
	})
}

// Tickets читает текущий список тикетов, новые первыми.
func (f *Facade) Tickets(ctx context.Context) ([]model.Ticket, error) {
	tickets, err := f.backend().ListTickets(ctx)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	store.SortByCreatedDesc(tickets)
	return tickets, nil
}

func (f *Facade) Ticket(ctx context.Context, id string) (*model.Ticket, error) {
	return f.backend().GetTicket(ctx, id)
}

func validateNew(t model.Ticket) error {
	switch {
	case strings.TrimSpace(t.StudentName) == "":
		return errs.Invalid("studentName", "required")
	case strings.TrimSpace(t.Reason) == "":
		return errs.Invalid("reason", "required")
	case strings.TrimSpace(t.Availability) == "":
		return errs.Invalid("availability", "required")
	}
	return nil
}

// AddTicket сохраняет новый тикет в статусе PENDING и возвращает его id.
// createdBy берётся из сессии вызывающего. В удалённом режиме после записи
// ставится задача рассылки; её результат на ответ не влияет.
func (f *Facade) AddTicket(ctx context.Context, t model.Ticket) (string, error) {
	if err := validateNew(t); err != nil {
		return "", err
	}
	ctx = f.withSession(ctx)
	t.Status = model.TicketStatusPending
	t.CreatedAt = f.now().UnixMilli()
	t.ResolvedBy = ""
	t.CreatedBy = model.AnonymousCreator
	if s := auth.SessionFromContext(ctx); s != nil && s.ID != "" {
		t.CreatedBy = s.ID
	}

	if f.remote == nil {
		if t.ID == "" {
			t.ID = model.NewTicketID()
		}
		return f.local.CreateTicket(ctx, &t)
	}

	id, err := f.remote.CreateTicket(ctx, &t)
	if err != nil {
		return "", err
	}
	t.ID = id
	if f.notifier != nil && !f.notifier.Enqueue(t) {
		f.log.WithField("ticket_id", id).Debug("queue: notification not queued")
	}
	return id, nil
}

// UpdateTicket применяет частичное изменение. Допустимость перехода статуса
// проверяет вызывающий; здесь только правила хранилища.
func (f *Facade) UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	return f.backend().UpdateTicket(f.withSession(ctx), id, patch)
}

// ClearHistory удаляет все тикеты не в статусе PENDING одной операцией и
// возвращает их число.
func (f *Facade) ClearHistory(ctx context.Context) (int, error) {
	tickets, err := f.backend().ListTickets(ctx)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, t := range tickets {
		if t.Status != model.TicketStatusPending {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := f.backend().DeleteTickets(f.withSession(ctx), ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
