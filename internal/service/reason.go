// Package service выполняет прикладные действия над очередью поверх queue.Facade.
package service

import (
	"fmt"
	"strings"
)

// Categories — темы заявок, которые предлагаются в форме.
var Categories = []string{
	"Tráfego Pago (Facebook Ads)",
	"Tráfego Orgânico",
	"Validação de Criativos",
	"Copywriting / VSL",
	"Estrutura / Contingência",
	"Outros",
}

// ComposeReason собирает reason "[Категория] детали". Для свободной темы
// ("Outros" / "Other") и пустой категории остаются только детали.
func ComposeReason(category, details string) string {
	category = strings.TrimSpace(category)
	details = strings.TrimSpace(details)
	switch strings.ToLower(category) {
	case "", "outros", "other":
		return details
	}
	return fmt.Sprintf("[%s] %s", category, details)
}
