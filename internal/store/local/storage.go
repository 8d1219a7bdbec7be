// Package local — резервное хранилище на случай, когда удалённое не настроено.
// Данные лежат в таблице ключ/значение sqlite, как в localStorage браузера.
package local

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type item struct {
	Key   string `gorm:"column:item_key;primaryKey;type:varchar(255)"`
	Value string `gorm:"type:text;not null"`
}

func (item) TableName() string { return "local_storage" }

// Storage хранит строки по ключам.
type Storage struct {
	db *gorm.DB
}

func OpenStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&item{}); err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// GetItem возвращает значение и признак его наличия.
func (s *Storage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var it item
	if err := s.db.WithContext(ctx).Where("item_key = ?", key).First(&it).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return it.Value, true, nil
}

func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&item{Key: key, Value: value}).Error
}

func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("item_key = ?", key).Delete(&item{}).Error
}
