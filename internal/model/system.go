package model

import "time"

// Session — идентичность клиента, выданная провайдером.
type Session struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// MentorPresence хранит флаг доступности одного ментора.
type MentorPresence struct {
	MentorID  string    `gorm:"primaryKey;type:varchar(64)" json:"mentorId"`
	Online    bool      `gorm:"not null;default:false" json:"online"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (MentorPresence) TableName() string { return "mentor_presence" }

// TelegramDestination — чат, получающий уведомления о новых тикетах.
type TelegramDestination struct {
	ChatID      string `gorm:"primaryKey;type:varchar(64)" json:"chatId"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	ConnectedAt int64  `gorm:"not null" json:"connectedAt"`
}

// EmailConfig: идентификаторы EmailJS, хранятся одной строкой.
type EmailConfig struct {
	ID         int    `gorm:"primaryKey" json:"-"`
	ServiceID  string `gorm:"type:varchar(128)" json:"serviceId"`
	TemplateID string `gorm:"type:varchar(128)" json:"templateId"`
	PublicKey  string `gorm:"type:varchar(128)" json:"publicKey"`
}

func (EmailConfig) TableName() string { return "email_config" }

// Complete сообщает, заданы ли все три идентификатора.
func (c EmailConfig) Complete() bool {
	return c.ServiceID != "" && c.TemplateID != "" && c.PublicKey != ""
}
