package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/psds-microservice/mentor-queue/internal/logging"
)

// Open подключается к удалённому Postgres.
func Open(dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logging.NewGorm(log)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// OpenLocal открывает sqlite-файл локального хранилища, создавая каталог.
// Путь ":memory:" открывает новую in-memory базу со своим именем, общую только
// для соединений этого пула.
func OpenLocal(path string, log logrus.FieldLogger) (*gorm.DB, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file:mem-" + uuid.NewString() + "?mode=memory&cache=shared"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create local storage dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logging.NewGorm(log)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite допускает одного писателя
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Close закрывает пул соединений gorm.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
