// Package logging настраивает logrus для сервиса и адаптирует его под gorm.
package logging

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// New создаёт логгер: текст в development, JSON в остальных окружениях.
func New(level, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Discard возвращает логгер для тестов.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Component возвращает запись с полем component.
func Component(log logrus.FieldLogger, name string) *logrus.Entry {
	if log == nil {
		log = Discard()
	}
	return log.WithField("component", name)
}

// Gorm реализует gorm logger.Interface поверх logrus.
type Gorm struct {
	entry         *logrus.Entry
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGorm(log logrus.FieldLogger) *Gorm {
	return &Gorm{
		entry:         Component(log, "gorm"),
		level:         gormlogger.Warn,
		slowThreshold: 500 * time.Millisecond,
	}
}

func (g *Gorm) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *Gorm) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.entry.WithContext(ctx).Infof(msg, args...)
	}
}

func (g *Gorm) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.entry.WithContext(ctx).Warnf(msg, args...)
	}
}

func (g *Gorm) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.entry.WithContext(ctx).Errorf(msg, args...)
	}
}

func (g *Gorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := logrus.Fields{"elapsed": elapsed.String(), "rows": rows, "sql": sql}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		g.entry.WithContext(ctx).WithFields(fields).WithError(err).Error("gorm: query failed")
	case elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		g.entry.WithContext(ctx).WithFields(fields).Warn("gorm: slow query")
	case g.level >= gormlogger.Info:
		g.entry.WithContext(ctx).WithFields(fields).Debug("gorm: query")
	}
}
