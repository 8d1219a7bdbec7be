// Package rules задаёт правила доступа к хранилищу очереди, описанные моделью casbin.
package rules

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"github.com/psds-microservice/mentor-queue/internal/errs"
	"github.com/psds-microservice/mentor-queue/internal/mentor"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Объекты и действия правил.
const (
	ObjTickets  = "tickets"
	ObjPresence = "presence"
	ObjConfig   = "config"

	ActRead   = "read"
	ActWrite  = "write"
	ActDelete = "delete"
)

// Роли вызывающего.
const (
	RoleNone   = "none"
	RoleUser   = "user"
	RoleMentor = "mentor"
)

// Состояние записи, к которой относится запрос.
const (
	StateAbsent  = "absent"
	StatePresent = "present"
)

// cond политики: any — всегда; absent — записи ещё нет; creator — запись
// создана этой же сессией.
const modelText = `
[request_definition]
r = sub, role, obj, act, owner, state

[policy_definition]
p = role, obj, act, cond

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (p.role == "*" || r.role == p.role) && r.obj == p.obj && r.act == p.act && (p.cond == "any" || p.cond == r.state || (p.cond == "creator" && r.state == "present" && r.owner == r.sub))
`

var policies = [][]string{
	{"*", ObjTickets, ActRead, "any"},
	{"*", ObjPresence, ActRead, "any"},
	{"*", ObjConfig, ActRead, "any"},
	{RoleUser, ObjTickets, ActWrite, StateAbsent},
	{RoleUser, ObjTickets, ActWrite, "creator"},
	{RoleMentor, ObjTickets, ActWrite, "any"},
	{RoleMentor, ObjTickets, ActDelete, "any"},
	{RoleMentor, ObjPresence, ActWrite, "any"},
	{RoleMentor, ObjConfig, ActWrite, "any"},
}

// Request — проверяемая операция.
type Request struct {
	Session *model.Session
	Object  string
	Action  string
	// createdBy существующей записи
	Owner  string
	Exists bool
}

// Enforcer проверяет запросы по правилам.
type Enforcer struct {
	enforcer *casbin.Enforcer
	dir      *mentor.Directory
}

func NewEnforcer(dir *mentor.Directory) (*Enforcer, error) {
	m, err := casbinmodel.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("rules model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rules enforcer: %w", err)
	}
	if _, err := e.AddPolicies(policies); err != nil {
		return nil, fmt.Errorf("rules policies: %w", err)
	}
	return &Enforcer{enforcer: e, dir: dir}, nil
}

// Role определяет роль сессии: без сессии — none; вход по паролю на адрес
// из справочника менторов — mentor; остальные — user.
func (e *Enforcer) Role(s *model.Session) string {
	switch {
	case s == nil || s.ID == "":
		return RoleNone
	case !s.IsAnonymous && e.dir.IsMentorEmail(s.Email):
		return RoleMentor
	default:
		return RoleUser
	}
}

// Check возвращает errs.ErrPermissionDenied, если правила запрещают запрос.
func (e *Enforcer) Check(req Request) error {
	sub := ""
	if req.Session != nil {
		sub = req.Session.ID
	}
	state := StateAbsent
	if req.Exists {
		state = StatePresent
	}
	ok, err := e.enforcer.Enforce(sub, e.Role(req.Session), req.Object, req.Action, req.Owner, state)
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s %s: %w", req.Action, req.Object, errs.ErrPermissionDenied)
	}
	return nil
}
