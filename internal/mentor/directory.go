// Package mentor описывает фиксированный набор менторов и правила, по которым
// логин и email сессии сопоставляются с профилем ментора.
package mentor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile — карточка ментора.
type Profile struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Email           string   `yaml:"email" json:"email"`
	Photo           string   `yaml:"photo" json:"photo,omitempty"`
	Title           string   `yaml:"title" json:"title"`
	CanClearHistory bool     `yaml:"can_clear_history" json:"canClearHistory"`
	Aliases         []string `yaml:"aliases" json:"-"`
}

// Directory — политика сопоставления логинов и адресов с менторами.
type Directory struct {
	// Domain — домен логинов менторов ("<identifier>@<domain>").
	Domain string `yaml:"domain"`
	// Primary: id профиля по умолчанию для неизвестных адресов.
	Primary  string    `yaml:"primary"`
	Profiles []Profile `yaml:"mentors"`
}

// Default возвращает встроенный справочник из двух менторов.
func Default() *Directory {
	return &Directory{
		Domain:  "mentor.com",
		Primary: "muzeira",
		Profiles: []Profile{
			{
				ID:              "muzeira",
				Name:            "Muzeira",
				Email:           "muzeira@mentor.com",
				Title:           "Mentor Principal",
				CanClearHistory: true,
				Aliases:         []string{"muzeira", "murilo"},
			},
			{
				ID:      "kayo",
				Name:    "Tocha 🔥",
				Email:   "kayo@mentor.com",
				Title:   "Suporte Técnico",
				Aliases: []string{"kayo", "tocha"},
			},
		},
	}
}

// Load читает справочник из YAML. Для пустого пути возвращается встроенный справочник.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mentor directory: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML справочника и проверяет его.
func Parse(data []byte) (*Directory, error) {
	var d Directory
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse mentor directory: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Directory) Validate() error {
	if d.Domain == "" {
		return fmt.Errorf("mentor directory: domain is required")
	}
	if len(d.Profiles) == 0 {
		return fmt.Errorf("mentor directory: at least one mentor is required")
	}
	seen := make(map[string]bool, len(d.Profiles))
	for _, p := range d.Profiles {
		if p.ID == "" || p.Email == "" {
			return fmt.Errorf("mentor directory: mentor id and email are required")
		}
		if seen[p.ID] {
			return fmt.Errorf("mentor directory: duplicate mentor %q", p.ID)
		}
		seen[p.ID] = true
	}
	if d.Primary == "" {
		d.Primary = d.Profiles[0].ID
	}
	if !seen[d.Primary] {
		return fmt.Errorf("mentor directory: primary mentor %q is not listed", d.Primary)
	}
	return nil
}

// IDs возвращает id менторов в порядке справочника.
func (d *Directory) IDs() []string {
	ids := make([]string, 0, len(d.Profiles))
	for _, p := range d.Profiles {
		ids = append(ids, p.ID)
	}
	return ids
}

func (d *Directory) ByID(id string) (Profile, bool) {
	for _, p := range d.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// PrimaryProfile возвращает профиль по умолчанию.
func (d *Directory) PrimaryProfile() Profile {
	if p, ok := d.ByID(d.Primary); ok {
		return p
	}
	return d.Profiles[0]
}

// NormalizeLogin превращает короткий логин в адрес. Адрес с "@" не меняется;
// иначе ищется вхождение alias ментора, затем подставляется домен.
func (d *Directory) NormalizeLogin(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return identifier
	}
	lower := strings.ToLower(identifier)
	for _, p := range d.Profiles {
		for _, alias := range p.Aliases {
			if alias != "" && strings.Contains(lower, strings.ToLower(alias)) {
				return p.Email
			}
		}
	}
	return identifier + "@" + d.Domain
}

// ProfileForEmail выбирает профиль по точному совпадению email.
// Неизвестные адреса получают основной профиль.
func (d *Directory) ProfileForEmail(email string) Profile {
	for _, p := range d.Profiles {
		if p.Email == email {
			return p
		}
	}
	return d.PrimaryProfile()
}

// IsMentorEmail — членство в списке менторов: точный адрес из справочника
// или адрес в домене менторов.
func (d *Directory) IsMentorEmail(email string) bool {
	if email == "" {
		return false
	}
	email = strings.ToLower(email)
	for _, p := range d.Profiles {
		if strings.ToLower(p.Email) == email {
			return true
		}
	}
	return strings.HasSuffix(email, "@"+strings.ToLower(d.Domain))
}
