// Package notify рассылает уведомления о новых тикетах: Telegram, EmailJS, Kafka.
// Доставка best-effort: не более одного раза, без повторов, ошибки только в лог.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/model"
)

// Notifier — один канал уведомлений.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, t model.Ticket) error
}

type DispatcherConfig struct {
	Workers int
	Buffer  int
	// Timeout ограничивает обработку одного тикета одним каналом.
	Timeout time.Duration
}

// Dispatcher — пул воркеров с ограниченной очередью. При заполненной очереди
// задача отбрасывается, создание тикета не ждёт рассылки.
type Dispatcher struct {
	cfg       DispatcherConfig
	notifiers []Notifier
	tasks     chan model.Ticket
	log       *logrus.Entry

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, log logrus.FieldLogger, notifiers ...Notifier) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:       cfg,
		notifiers: notifiers,
		tasks:     make(chan model.Ticket, cfg.Buffer),
		log:       logging.Component(log, "notify"),
	}
}

// Start запускает воркеры. Повторный вызов ничего не делает.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.dispatch(t)
	}
}

func (d *Dispatcher) dispatch(t model.Ticket) {
	for _, n := range d.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		if err := n.Notify(ctx, t); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{"notifier": n.Name(), "ticket_id": t.ID}).
				Warn("notify: delivery failed")
		}
		cancel()
	}
}

// Enqueue ставит тикет в очередь рассылки. Возвращает false, если задача отброшена.
func (d *Dispatcher) Enqueue(t model.Ticket) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed || len(d.notifiers) == 0 {
		return false
	}
	select {
	case d.tasks <- t:
		return true
	default:
		d.log.WithField("ticket_id", t.ID).Warn("notify: queue full, dropping task")
		return false
	}
}

// Close перестаёт принимать задачи и ждёт, пока воркеры разберут очередь.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	started := d.started
	d.mu.Unlock()
	if started {
		d.wg.Wait()
	}
}
