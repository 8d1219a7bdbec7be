package model

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/psds-microservice/mentor-queue/internal/errs"
)

// TicketPatch описывает частичное обновление тикета. Поля, равные nil, не меняются.
// Остальные поля Ticket через патч не изменяются.
type TicketPatch struct {
	Availability *string       `json:"availability,omitempty"`
	Status       *TicketStatus `json:"status,omitempty"`
	ResolvedBy   *string       `json:"resolvedBy,omitempty"`
}

// DecodeTicketPatch читает патч из JSON и отклоняет неизвестные поля.
func DecodeTicketPatch(r io.Reader) (TicketPatch, error) {
	var p TicketPatch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return TicketPatch{}, errs.Invalid("patch", err.Error())
	}
	return p, p.Validate()
}

func (p TicketPatch) IsEmpty() bool {
	return p.Availability == nil && p.Status == nil && p.ResolvedBy == nil
}

func (p TicketPatch) Validate() error {
	if p.IsEmpty() {
		return errs.Invalid("patch", "no changes")
	}
	if p.Availability != nil && strings.TrimSpace(*p.Availability) == "" {
		return errs.Invalid("availability", "must not be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return errs.Invalid("status", fmt.Sprintf("unknown value %q", *p.Status))
	}
	return nil
}

// Apply переносит изменения на тикет.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Availability != nil {
		t.Availability = *p.Availability
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ResolvedBy != nil {
		t.ResolvedBy = *p.ResolvedBy
	}
}

// Columns возвращает изменения в виде колонок для gorm Updates.
func (p TicketPatch) Columns() map[string]interface{} {
	changes := make(map[string]interface{})
	if p.Availability != nil {
		changes["availability"] = *p.Availability
	}
	if p.Status != nil {
		changes["status"] = string(*p.Status)
	}
	if p.ResolvedBy != nil {
		changes["resolved_by"] = *p.ResolvedBy
	}
	return changes
}

func StatusPatch(status TicketStatus) TicketPatch {
	return TicketPatch{Status: &status}
}

func AvailabilityPatch(availability string) TicketPatch {
	return TicketPatch{Availability: &availability}
}
