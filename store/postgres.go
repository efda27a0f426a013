package store

import (
	"context"
	"errors"
	"time"

	"ecoecho-core/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore keeps documents in the kv_entries table.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects with the given DSN and migrates kv_entries.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, wrap("connect", "", err)
	}
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return nil, wrap("migrate", "", err)
	}
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry models.KVEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", key, err)
	}
	return entry.Value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	entry := models.KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	return wrap("set", key, err)
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KVEntry{}).Error
	return wrap("remove", key, err)
}

func (s *PostgresStore) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&models.KVEntry{}).Order("key ASC").Pluck("key", &keys).Error; err != nil {
		return nil, wrap("list", "", err)
	}
	return keys, nil
}
