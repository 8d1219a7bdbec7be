package queue

import "github.com/psds-microservice/mentor-queue/internal/model"

// RecentHistory: сколько последних закрытых тикетов показывает история.
const RecentHistory = 5

// Views — список тикетов, разложенный для экрана.
type Views struct {
	Pending []model.Ticket `json:"pending"`
	// History — закрытые и взятые в работу тикеты, не больше RecentHistory.
	History []model.Ticket `json:"history"`
	// HistoryTotal: число тикетов истории до обрезки.
	HistoryTotal int `json:"historyTotal"`
}

// SplitViews делит отсортированный список на очередь и историю, сохраняя порядок.
func SplitViews(tickets []model.Ticket) Views {
	v := Views{Pending: []model.Ticket{}, History: []model.Ticket{}}
	for _, t := range tickets {
		if t.Status == model.TicketStatusPending {
			v.Pending = append(v.Pending, t)
			continue
		}
		v.HistoryTotal++
		if len(v.History) < RecentHistory {
			v.History = append(v.History, t)
		}
	}
	return v
}

// ResolvedBy считает тикеты, закрытые ментором с именем name.
func ResolvedBy(tickets []model.Ticket, name string) int {
	n := 0
	for _, t := range tickets {
		if t.Status == model.TicketStatusResolved && t.ResolvedBy == name {
			n++
		}
	}
	return n
}
