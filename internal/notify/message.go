package notify

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/psds-microservice/mentor-queue/internal/model"
)

var funcMap = template.FuncMap{
	// md экранирует символы разметки Telegram Markdown.
	"md": func(s string) string {
		return strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[").Replace(s)
	},
}

func createTemplate(name, tmpl string) *template.Template {
	return template.Must(template.New(name).Funcs(funcMap).Parse(tmpl))
}

var newTicketTmpl = createTemplate("new-ticket", `🚨 *NOVA MENTORIA NA FILA!* 🚨

👤 *Aluno:* {{md .StudentName}}
📝 *Assunto:* {{md .Reason}}
⏰ *Horário:* {{md .Availability}}

_Corre lá pra atender!_ 🚀`)

const testMessage = "✅ *TESTE DE NOTIFICAÇÃO*\n\nSe você recebeu isso, as notificações estão funcionando!\n\n_Fila de mentoria_"

// NewTicketMessage строит Markdown-текст уведомления о новом тикете.
func NewTicketMessage(t model.Ticket) (string, error) {
	var buf bytes.Buffer
	if err := newTicketTmpl.Execute(&buf, t); err != nil {
		return "", err
	}
	return buf.String(), nil
}
