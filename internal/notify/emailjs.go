package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

const emailJSURL = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSClient отправляет письма через REST API EmailJS.
type EmailJSClient struct {
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

func NewEmailJSClient() *EmailJSClient {
	return &EmailJSClient{
		endpoint:   emailJSURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// WithEndpoint меняет адрес API (для тестов).
func (c *EmailJSClient) WithEndpoint(u string) *EmailJSClient {
	c.endpoint = u
	return c
}

type emailJSPayload struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// EmailContent — данные письма до раскладки по переменным шаблона.
type EmailContent struct {
	ToName       string
	ReplyTo      string
	StudentName  string
	Title        string
	Message      string
	Reason       string
	Availability string
}

// templateParams раскладывает письмо по всем именам переменных, которые
// встречаются в шаблонах EmailJS.
func (c *EmailJSClient) templateParams(to string, e EmailContent) map[string]string {
	date := c.now().Format("02/01/2006, 15:04:05")
	return map[string]string{
		"to_email": to,
		"to_name":  e.ToName,
		"reply_to": e.ReplyTo,

		"name": e.StudentName,
		"Name": e.StudentName,
		"nome": e.StudentName,

		"student_name":  e.StudentName,
		"studentName":   e.StudentName,
		"nome_do_aluno": e.StudentName,
		"aluno":         e.StudentName,

		"title":    e.Title,
		"message":  e.Message,
		"mensagem": e.Message,
		"reason":   e.Reason,
		"assunto":  e.Reason,

		"availability":    e.Availability,
		"disponibilidade": e.Availability,
		"horario":         e.Availability,

		"date": date,
		"data": date,
	}
}

// Send отправляет одно письмо на адрес to.
func (c *EmailJSClient) Send(ctx context.Context, cfg model.EmailConfig, to string, e EmailContent) error {
	body, err := json.Marshal(emailJSPayload{
		ServiceID:      cfg.ServiceID,
		TemplateID:     cfg.TemplateID,
		UserID:         cfg.PublicKey,
		TemplateParams: c.templateParams(to, e),
	})
	if err != nil {
		return fmt.Errorf("emailjs: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emailjs: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("emailjs: status %d: %s [service %s, template %s]",
			resp.StatusCode, strings.TrimSpace(string(text)), cfg.ServiceID, cfg.TemplateID)
	}
	return nil
}

// EmailConfigSource отдаёт сохранённые идентификаторы EmailJS.
type EmailConfigSource interface {
	GetEmailConfig(ctx context.Context) (*model.EmailConfig, error)
}

// Email рассылает новый тикет на адреса списка уведомлений.
type Email struct {
	client     *EmailJSClient
	configs    EmailConfigSource
	recipients []string
	log        *logrus.Entry
}

func NewEmail(client *EmailJSClient, configs EmailConfigSource, recipients []string, log logrus.FieldLogger) *Email {
	return &Email{client: client, configs: configs, recipients: recipients, log: logging.Component(log, "emailjs")}
}

func (e *Email) Name() string { return "email" }

// Notify пропускает рассылку, если настройка EmailJS не сохранена или неполна.
func (e *Email) Notify(ctx context.Context, t model.Ticket) error {
	if e.configs == nil || len(e.recipients) == 0 {
		return nil
	}
	cfg, err := e.configs.GetEmailConfig(ctx)
	if err != nil {
		return fmt.Errorf("load email config: %w", err)
	}
	if cfg == nil || !cfg.Complete() {
		e.log.Debug("emailjs: not configured, skipping")
		return nil
	}
	content := EmailContent{
		ToName:       "Mentor",
		ReplyTo:      t.StudentName,
		StudentName:  t.StudentName,
		Title:        t.Reason,
		Message:      t.Reason,
		Reason:       t.Reason,
		Availability: t.Availability,
	}
	for _, to := range e.recipients {
		if err := e.client.Send(ctx, *cfg, to, content); err != nil {
			e.log.WithError(err).WithField("to", to).Warn("emailjs: send failed")
			continue
		}
		e.log.WithField("to", to).Debug("emailjs: sent")
	}
	return nil
}

// SendTest отправляет проверочное письмо на все адреса. Ошибка возвращается,
// только если не дошло ни одно письмо; в ней перечислены причины по адресам.
func (e *Email) SendTest(ctx context.Context, cfg model.EmailConfig) error {
	if !cfg.Complete() {
		return errs.Invalid("emailConfig", "serviceId, templateId and publicKey are required")
	}
	if len(e.recipients) == 0 {
		return fmt.Errorf("emailjs: no recipients: %w", errs.ErrNotConfigured)
	}
	content := EmailContent{
		ToName:       "Mentor (Teste)",
		ReplyTo:      "Sistema de Teste",
		StudentName:  "Teste de Sistema",
		Title:        "Teste de Funcionamento",
		Message:      "Este é um e-mail de verificação.",
		Reason:       "Teste",
		Availability: "Agora",
	}
	var failures []error
	for _, to := range e.recipients {
		if err := e.client.Send(ctx, cfg, to, content); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", to, err))
		}
	}
	if len(failures) == len(e.recipients) {
		return fmt.Errorf("emailjs: every test email failed: %w", errors.Join(failures...))
	}
	return nil
}
