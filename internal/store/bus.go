package store

import (
	"context"
	"sync"
)

// Bus — Feed внутри процесса. Каждый подписчик получает буферизованный канал
// ёмкостью 1; сигналы, пришедшие до чтения, склеиваются.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[Topic]map[int]chan struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]chan struct{})}
}

func (b *Bus) Publish(_ context.Context, topic Topic) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *Bus) Subscribe(topic Topic) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan struct{})
	}
	b.subs[topic][id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
