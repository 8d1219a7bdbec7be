package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/mentor"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Queue — операции фасада, которыми пользуется сервис (queue.Facade).
type Queue interface {
	Caller(ctx context.Context) *model.Session
	Tickets(ctx context.Context) ([]model.Ticket, error)
	Ticket(ctx context.Context, id string) (*model.Ticket, error)
	AddTicket(ctx context.Context, t model.Ticket) (string, error)
	UpdateTicket(ctx context.Context, id string, patch model.TicketPatch) error
	ClearHistory(ctx context.Context) (int, error)
	Presence(ctx context.Context) (map[string]bool, error)
	SetPresence(ctx context.Context, mentorID string, online bool) error
}

// QueueServicer — интерфейс для HTTP-обработчиков (Dependency Inversion).
type QueueServicer interface {
	Tickets(ctx context.Context) ([]model.Ticket, error)
	CreateTicket(ctx context.Context, in CreateTicketInput) (*model.Ticket, error)
	EditAvailability(ctx context.Context, id, availability string) error
	SelfDiscard(ctx context.Context, id string) error
	ChangeStatus(ctx context.Context, id string, status model.TicketStatus) error
	ClearHistory(ctx context.Context) (int, error)
	Mentors(ctx context.Context) ([]MentorStatus, error)
	Presence(ctx context.Context) (map[string]bool, error)
	SetMyPresence(ctx context.Context, online bool) error
	TogglePresence(ctx context.Context) (bool, error)
	MentorProfile(s *model.Session) *mentor.Profile
}

// QueueService — действия студентов и менторов над очередью. Проверяет то,
// что хранилище не проверяет: допустимость перехода, статус PENDING для правок
// студента, право очистки истории.
type QueueService struct {
	q   Queue
	dir *mentor.Directory
}

var _ QueueServicer = (*QueueService)(nil)

func NewQueueService(q Queue, dir *mentor.Directory) *QueueService {
	if dir == nil {
		dir = mentor.Default()
	}
	return &QueueService{q: q, dir: dir}
}

// CreateTicketInput — заявка из формы студента.
type CreateTicketInput struct {
	// ID сгенерирован клиентом и используется только резервным хранилищем.
	ID           string
	StudentName  string
	Category     string
	Details      string
	Availability string
}

func (s *QueueService) Tickets(ctx context.Context) ([]model.Ticket, error) {
	return s.q.Tickets(ctx)
}

func (s *QueueService) CreateTicket(ctx context.Context, in CreateTicketInput) (*model.Ticket, error) {
	if strings.TrimSpace(in.Details) == "" {
		return nil, errs.Invalid("details", "required")
	}
	id, err := s.q.AddTicket(ctx, model.Ticket{
		ID:           in.ID,
		StudentName:  strings.TrimSpace(in.StudentName),
		Reason:       ComposeReason(in.Category, in.Details),
		Availability: strings.TrimSpace(in.Availability),
	})
	if err != nil {
		return nil, err
	}
	return s.q.Ticket(ctx, id)
}

// owns сообщает, создан ли тикет сессией вызывающего.
func owns(caller *model.Session, t *model.Ticket) bool {
	id := model.AnonymousCreator
	if caller != nil && caller.ID != "" {
		id = caller.ID
	}
	return t.CreatedBy == id
}

// studentTicket загружает тикет для правки его автором.
func (s *QueueService) studentTicket(ctx context.Context, id string) (*model.Ticket, error) {
	t, err := s.q.Ticket(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(s.q.Caller(ctx), t) {
		return nil, fmt.Errorf("ticket %s belongs to another session: %w", id, errs.ErrPermissionDenied)
	}
	if t.Status != model.TicketStatusPending {
		return nil, fmt.Errorf("ticket %s is %s: %w", id, t.Status, errs.ErrIllegalTransition)
	}
	return t, nil
}

// EditAvailability меняет время, удобное студенту, пока тикет в очереди.
func (s *QueueService) EditAvailability(ctx context.Context, id, availability string) error {
	availability = strings.TrimSpace(availability)
	if availability == "" {
		return errs.Invalid("availability", "required")
	}
	if _, err := s.studentTicket(ctx, id); err != nil {
		return err
	}
	return s.q.UpdateTicket(ctx, id, model.AvailabilityPatch(availability))
}

// SelfDiscard: студент сам убирает свой тикет из очереди. resolvedBy не ставится.
func (s *QueueService) SelfDiscard(ctx context.Context, id string) error {
	if _, err := s.studentTicket(ctx, id); err != nil {
		return err
	}
	return s.q.UpdateTicket(ctx, id, model.StatusPatch(model.TicketStatusDiscarded))
}

// mentorProfile возвращает профиль ментора вызывающего или ErrPermissionDenied.
func (s *QueueService) mentorProfile(ctx context.Context) (mentor.Profile, error) {
	p := s.MentorProfile(s.q.Caller(ctx))
	if p == nil {
		return mentor.Profile{}, fmt.Errorf("mentor session required: %w", errs.ErrPermissionDenied)
	}
	return *p, nil
}

// MentorProfile возвращает профиль ментора для сессии или nil для студента.
func (s *QueueService) MentorProfile(sess *model.Session) *mentor.Profile {
	if sess == nil || sess.IsAnonymous || !s.dir.IsMentorEmail(sess.Email) {
		return nil
	}
	p := s.dir.ProfileForEmail(sess.Email)
	return &p
}

// ChangeStatus переводит тикет ментором. На RESOLVED и DISCARDED
// записывается имя ментора.
func (s *QueueService) ChangeStatus(ctx context.Context, id string, status model.TicketStatus) error {
	if !status.Valid() {
		return errs.Invalid("status", fmt.Sprintf("unknown value %q", status))
	}
	profile, err := s.mentorProfile(ctx)
	if err != nil {
		return err
	}
	t, err := s.q.Ticket(ctx, id)
	if err != nil {
		return err
	}
	if !model.CanTransition(t.Status, status) {
		return fmt.Errorf("%s -> %s: %w", t.Status, status, errs.ErrIllegalTransition)
	}
	patch := model.StatusPatch(status)
	if status.Terminal() {
		patch.ResolvedBy = &profile.Name
	}
	return s.q.UpdateTicket(ctx, id, patch)
}

// ClearHistory доступна только ментору с правом очистки.
func (s *QueueService) ClearHistory(ctx context.Context) (int, error) {
	profile, err := s.mentorProfile(ctx)
	if err != nil {
		return 0, err
	}
	if !profile.CanClearHistory {
		return 0, fmt.Errorf("mentor %s cannot clear history: %w", profile.ID, errs.ErrPermissionDenied)
	}
	return s.q.ClearHistory(ctx)
}

func (s *QueueService) Presence(ctx context.Context) (map[string]bool, error) {
	return s.q.Presence(ctx)
}

// MentorStatus — карточка ментора для стартовой страницы.
type MentorStatus struct {
	mentor.Profile
	Online bool `json:"isOnline"`
}

func (s *QueueService) Mentors(ctx context.Context) ([]MentorStatus, error) {
	presence, err := s.q.Presence(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MentorStatus, 0, len(s.dir.Profiles))
	for _, p := range s.dir.Profiles {
		out = append(out, MentorStatus{Profile: p, Online: presence[p.ID]})
	}
	return out, nil
}

// SetMyPresence меняет флаг ментора текущей сессии.
func (s *QueueService) SetMyPresence(ctx context.Context, online bool) error {
	profile, err := s.mentorProfile(ctx)
	if err != nil {
		return err
	}
	return s.q.SetPresence(ctx, profile.ID, online)
}

// TogglePresence инвертирует флаг ментора текущей сессии и возвращает новое значение.
func (s *QueueService) TogglePresence(ctx context.Context) (bool, error) {
	profile, err := s.mentorProfile(ctx)
	if err != nil {
		return false, err
	}
	presence, err := s.q.Presence(ctx)
	if err != nil {
		return false, err
	}
	next := !presence[profile.ID]
	if err := s.q.SetPresence(ctx, profile.ID, next); err != nil {
		return false, err
	}
	return next, nil
}
