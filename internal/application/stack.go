package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/psds-microservice/mentor-queue/internal/auth"
	"github.com/psds-microservice/mentor-queue/internal/config"
	"github.com/psds-microservice/mentor-queue/internal/database"
	"github.com/psds-microservice/mentor-queue/internal/kafka"
	"github.com/psds-microservice/mentor-queue/internal/mentor"
	"github.com/psds-microservice/mentor-queue/internal/notify"
	"github.com/psds-microservice/mentor-queue/internal/queue"
	"github.com/psds-microservice/mentor-queue/internal/rules"
	"github.com/psds-microservice/mentor-queue/internal/service"
	"github.com/psds-microservice/mentor-queue/internal/store"
	"github.com/psds-microservice/mentor-queue/internal/store/local"
	"github.com/psds-microservice/mentor-queue/internal/store/memstore"
	"github.com/psds-microservice/mentor-queue/internal/store/remote"
)

// Stack — собранные зависимости очереди, общие для API и команд CLI.
type Stack struct {
	Config     *config.Config
	Log        *logrus.Logger
	Directory  *mentor.Directory
	Auth       *auth.Authenticator
	Sessions   *auth.Manager
	Dispatcher *notify.Dispatcher
	Facade     *queue.Facade
	Service    *service.QueueService

	ready   func(ctx context.Context) error
	closers []func() error
}

// backends: хранилища выбранного режима.
type backends struct {
	remote store.RemoteBackend
	local  store.Backend
	authDB *gorm.DB
	recall auth.Recaller
}

// Build собирает хранилище выбранного режима, провайдера входа, рассылку и фасад.
func Build(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	dir, err := mentor.Load(cfg.MentorDirectoryFile)
	if err != nil {
		return nil, err
	}
	s := &Stack{Config: cfg, Log: log, Directory: dir}

	b, err := s.openBackends(ctx, dir)
	if err != nil {
		s.Close()
		return nil, err
	}

	var provider auth.Provider
	if cfg.AuthProvider == config.AuthWorkOS {
		provider = auth.NewWorkOSProvider(auth.WorkOSConfig{APIKey: cfg.WorkOSAPIKey, ClientID: cfg.WorkOSClientID}, b.authDB)
	} else {
		provider = auth.NewLocalProvider(b.authDB)
	}
	s.Auth = auth.NewAuthenticator(provider, dir, log)
	s.Sessions = auth.NewManager(s.Auth, b.recall, log)

	var (
		dests   notify.DestinationSource
		configs notify.EmailConfigSource
	)
	if b.remote != nil {
		dests, configs = b.remote, b.remote
	}
	telegram := notify.NewTelegram(notify.NewTelegramClient(cfg.TelegramBotToken), dests, log)
	email := notify.NewEmail(notify.NewEmailJSClient(), configs, cfg.NotifyEmails, log)
	notifiers := []notify.Notifier{telegram, email}
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
	if producer.Enabled() {
		notifiers = append(notifiers, notify.NewKafkaSink(producer))
	}
	s.closers = append(s.closers, producer.Close)
	s.Dispatcher = notify.NewDispatcher(notify.DispatcherConfig{
		Workers: cfg.NotifyWorkers,
		Buffer:  cfg.NotifyBuffer,
	}, log, notifiers...)
	s.Dispatcher.Start()
	s.closers = append(s.closers, func() error { s.Dispatcher.Close(); return nil })

	s.Facade, err = queue.New(queue.Deps{
		Remote:    b.remote,
		Local:     b.local,
		Sessions:  s.Sessions,
		Notifier:  s.Dispatcher,
		Directory: dir,
		Telegram:  telegram,
		Email:     email,
		Log:       log,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Service = service.NewQueueService(s.Facade, dir)
	log.WithFields(logrus.Fields{"backend": cfg.Backend(), "auth": cfg.AuthProvider}).Info("queue: ready")
	return s, nil
}

func (s *Stack) openBackends(ctx context.Context, dir *mentor.Directory) (backends, error) {
	cfg, log := s.Config, s.Log
	switch cfg.Backend() {
	case config.BackendRemote:
		if err := database.MigrateUp(cfg.DatabaseURL(), log); err != nil {
			return backends{}, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.DSN(), log)
		if err != nil {
			return backends{}, fmt.Errorf("database: %w", err)
		}
		s.closers = append(s.closers, func() error { return database.Close(db) })
		s.ready = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}

		var feed store.Feed
		if cfg.RedisURL != "" {
			client, err := remote.DialRedis(ctx, cfg.RedisURL)
			if err != nil {
				return backends{}, fmt.Errorf("redis: %w", err)
			}
			s.closers = append(s.closers, client.Close)
			feed = remote.NewRedisFeed(client, cfg.RedisChannel, log)
		}
		st, err := remote.New(db, feed, cfg.SnowflakeNode, log)
		if err != nil {
			return backends{}, err
		}
		guarded, err := guard(st, dir)
		if err != nil {
			return backends{}, err
		}
		return backends{remote: guarded, authDB: db}, nil

	case config.BackendMemory:
		db, err := database.OpenLocal(":memory:", log)
		if err != nil {
			return backends{}, err
		}
		s.closers = append(s.closers, func() error { return database.Close(db) })
		if err := auth.AutoMigrate(db); err != nil {
			return backends{}, fmt.Errorf("auth tables: %w", err)
		}
		guarded, err := guard(memstore.New(), dir)
		if err != nil {
			return backends{}, err
		}
		return backends{remote: guarded, authDB: db}, nil

	case config.BackendLocal:
		db, err := database.OpenLocal(cfg.LocalStoragePath, log)
		if err != nil {
			return backends{}, err
		}
		s.closers = append(s.closers, func() error { return database.Close(db) })
		storage, err := local.OpenStorage(db)
		if err != nil {
			return backends{}, err
		}
		if err := auth.AutoMigrate(db); err != nil {
			return backends{}, fmt.Errorf("auth tables: %w", err)
		}
		log.WithField("path", cfg.LocalStoragePath).Warn("queue: remote backend not configured, using local storage")
		return backends{
			local:  local.New(storage, dir.IDs(), nil),
			authDB: db,
			recall: local.NewSessionRecall(storage),
		}, nil
	}
	return backends{}, fmt.Errorf("unknown queue backend %q", cfg.Backend())
}

func guard(inner store.RemoteBackend, dir *mentor.Directory) (*rules.Guarded, error) {
	enforcer, err := rules.NewEnforcer(dir)
	if err != nil {
		return nil, err
	}
	return rules.Guard(inner, enforcer), nil
}

// Ready проверяет доступность хранилища.
func (s *Stack) Ready(ctx context.Context) error {
	if s.ready == nil {
		return nil
	}
	return s.ready(ctx)
}

// Close останавливает рассылку и закрывает соединения в обратном порядке.
func (s *Stack) Close() error {
	var errList []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errList = append(errList, err)
		}
	}
	s.closers = nil
	return errors.Join(errList...)
}
