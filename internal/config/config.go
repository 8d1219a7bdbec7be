package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendAuto   = "auto"
	BackendRemote = "remote"
	BackendLocal  = "local"
	BackendMemory = "memory"

	AuthLocal  = "local"
	AuthWorkOS = "workos"
)

type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// QueueBackend — auto|remote|local|memory. В режиме auto удалённое хранилище
	// используется, если задан DB_HOST.
	QueueBackend string

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	}

	// Если RedisURL задан, изменения тикетов и присутствия рассылаются через Redis pub/sub.
	RedisURL     string
	RedisChannel string

	// LocalStoragePath: sqlite-файл локального резервного хранилища.
	LocalStoragePath string

	KafkaBrokers     []string
	KafkaTopicTicket string

	TelegramBotToken string
	NotifyEmails     []string
	NotifyWorkers    int
	NotifyBuffer     int

	MentorDirectoryFile string

	AuthProvider   string
	WorkOSAPIKey   string
	WorkOSClientID string

	SnowflakeNode int64
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:             getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:            firstEnv("APP_PORT", "HTTP_PORT", "8098"),
		AppEnv:              getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		QueueBackend:        strings.ToLower(getEnv("QUEUE_BACKEND", BackendAuto)),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisChannel:        getEnv("REDIS_CHANNEL", "mentor-queue:changes"),
		LocalStoragePath:    getEnv("LOCAL_STORAGE_PATH", "mentor-queue.db"),
		KafkaBrokers:        splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopicTicket:    getEnv("KAFKA_TOPIC_TICKET", "mentor-queue.tickets"),
		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		NotifyEmails:        splitList(getEnv("NOTIFY_EMAILS", "")),
		MentorDirectoryFile: getEnv("MENTOR_DIRECTORY_FILE", ""),
		AuthProvider:        strings.ToLower(getEnv("AUTH_PROVIDER", AuthLocal)),
		WorkOSAPIKey:        getEnv("WORKOS_API_KEY", ""),
		WorkOSClientID:      getEnv("WORKOS_CLIENT_ID", ""),
	}
	cfg.DB.Host = getEnv("DB_HOST", "")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "mentor_queue")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	var err error
	if cfg.NotifyWorkers, err = getEnvInt("NOTIFY_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.NotifyBuffer, err = getEnvInt("NOTIFY_BUFFER", 64); err != nil {
		return nil, err
	}
	node, err := getEnvInt("SNOWFLAKE_NODE", 1)
	if err != nil {
		return nil, err
	}
	cfg.SnowflakeNode = int64(node)
	return cfg, nil
}

// Backend возвращает фактический режим хранилища с учётом auto.
func (c *Config) Backend() string {
	if c.QueueBackend == BackendAuto || c.QueueBackend == "" {
		if c.DB.Host != "" {
			return BackendRemote
		}
		return BackendLocal
	}
	return c.QueueBackend
}

// RemoteConfigured сообщает, работает ли удалённое хранилище.
func (c *Config) RemoteConfigured() bool {
	return c.Backend() == BackendRemote
}

func (c *Config) Validate() error {
	switch c.Backend() {
	case BackendRemote:
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required for the remote backend")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	case BackendLocal:
		if c.LocalStoragePath == "" {
			return errors.New("config: LOCAL_STORAGE_PATH is required for the local backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown QUEUE_BACKEND %q", c.QueueBackend)
	}
	switch c.AuthProvider {
	case AuthLocal:
	case AuthWorkOS:
		if c.WorkOSAPIKey == "" || c.WorkOSClientID == "" {
			return errors.New("config: WORKOS_API_KEY and WORKOS_CLIENT_ID are required for AUTH_PROVIDER=workos")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	if c.NotifyWorkers < 1 {
		return errors.New("config: NOTIFY_WORKERS must be positive")
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return errors.New("config: SNOWFLAKE_NODE must be between 0 and 1023")
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

// splitList разбивает "a,b , c" на слайс без пустых элементов.
func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
