package model

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusDiscarded  TicketStatus = "DISCARDED"
)

// AnonymousCreator — значение createdBy, когда у клиента нет сессии.
const AnonymousCreator = "anonymous"

// Valid сообщает, входит ли значение в перечисление статусов.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusDiscarded:
		return true
	}
	return false
}

// Terminal сообщает, закрыт ли тикет навсегда.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusDiscarded
}

var transitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:    {TicketStatusInProgress, TicketStatusResolved, TicketStatusDiscarded},
	TicketStatusInProgress: {TicketStatusResolved},
}

// CanTransition проверяет ребро графа жизненного цикла from -> to.
func CanTransition(from, to TicketStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Ticket — запрос студента в очереди.
type Ticket struct {
	ID           string       `gorm:"primaryKey;type:varchar(64)" json:"id"`
	StudentName  string       `gorm:"type:varchar(255);not null" json:"studentName"`
	Reason       string       `gorm:"type:text;not null" json:"reason"`
	Availability string       `gorm:"type:varchar(255);not null" json:"availability"`
	Status       TicketStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	CreatedAt    int64        `gorm:"autoCreateTime:false;index;not null" json:"createdAt"`
	CreatedBy    string       `gorm:"type:varchar(128);index" json:"createdBy,omitempty"`
	ResolvedBy   string       `gorm:"type:varchar(255)" json:"resolvedBy,omitempty"`
}

// NewTicketID генерирует клиентский идентификатор. Если генератор UUID недоступен,
// используется случайная строка в base36.
func NewTicketID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	var b strings.Builder
	for i := 0; i < 3; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(1<<40))
		if err != nil {
			break
		}
		b.WriteString(strconv.FormatInt(n.Int64(), 36))
	}
	if b.Len() == 0 {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return b.String()
}
