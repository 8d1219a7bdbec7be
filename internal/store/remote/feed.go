package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/logging"
	"github.com/psds-microservice/mentor-queue/internal/store"
)

// RedisFeed рассылает сигналы изменений между процессами через Redis pub/sub.
// В сообщении канала передаётся имя темы.
type RedisFeed struct {
	client  *redis.Client
	channel string
	log     *logrus.Entry
}

func NewRedisFeed(client *redis.Client, channel string, log logrus.FieldLogger) *RedisFeed {
	return &RedisFeed{client: client, channel: channel, log: logging.Component(log, "redis-feed")}
}

// DialRedis разбирает REDIS_URL и проверяет соединение.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (f *RedisFeed) Publish(ctx context.Context, topic store.Topic) error {
	return f.client.Publish(ctx, f.channel, string(topic)).Err()
}

func (f *RedisFeed) Subscribe(topic store.Topic) (<-chan struct{}, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := f.client.Subscribe(ctx, f.channel)
	out := make(chan struct{}, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if msg.Payload != string(topic) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				f.log.WithError(err).Warn("redis: close subscription")
			}
			wg.Wait()
		})
	}
}
