package queue

import (
	"context"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/model"
	"github.com/psds-microservice/mentor-queue/internal/store"
)

// SubscribeToPresence передаёт полную карту присутствия при подписке и после
// каждого изменения. Менторы справочника без записи считаются offline.
func (f *Facade) SubscribeToPresence(ctx context.Context, onChange func(map[string]bool), onError func(error)) func() {
	return f.subscribe(ctx, store.TopicPresence, func() {
		presence, err := f.Presence(ctx)
		if err != nil {
			f.log.WithError(err).Warn("queue: read presence")
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(presence)
	})
}

func (f *Facade) Presence(ctx context.Context) (map[string]bool, error) {
	presence, err := f.backend().GetPresence(ctx)
	if err != nil {
		return nil, err
	}
	return store.FillPresence(presence, f.dir.IDs()), nil
}

// SetPresence меняет флаг одного ментора. Что ментор меняет только свой флаг,
// проверяет вызывающий.
func (f *Facade) SetPresence(ctx context.Context, mentorID string, online bool) error {
	if _, ok := f.dir.ByID(mentorID); !ok {
		return errs.Invalid("mentorId", "unknown mentor "+mentorID)
	}
	return f.backend().SetPresence(f.withSession(ctx), mentorID, online)
}

// AnyMentorOnline сообщает, есть ли хотя бы один ментор online.
func AnyMentorOnline(presence map[string]bool) bool {
	for _, online := range presence {
		if online {
			return true
		}
	}
	return false
}

// SubscribeToSession вызывает fn с текущей сессией и при каждой её смене.
func (f *Facade) SubscribeToSession(fn func(*model.Session)) func() {
	if f.sessions == nil {
		fn(nil)
		return func() {}
	}
	return f.sessions.Subscribe(fn)
}

// Start открывает сессию клиента при запуске, если её ещё нет.
func (f *Facade) Start(ctx context.Context) {
	if f.sessions != nil {
		f.sessions.Start(ctx)
	}
}

func (f *Facade) Session() *model.Session {
	if f.sessions == nil {
		return nil
	}
	return f.sessions.Current()
}

func (f *Facade) Login(ctx context.Context, identifier, secret string) error {
	if f.sessions == nil {
		return errs.ErrNotConfigured
	}
	return f.sessions.Login(ctx, identifier, secret)
}

func (f *Facade) Logout(ctx context.Context) error {
	if f.sessions == nil {
		return nil
	}
	return f.sessions.Logout(ctx)
}
