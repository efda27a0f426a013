// models/kv_entry.go
package models

import "time"

// KVEntry is one row of the postgres-backed local store.
// Table name: kv_entries
type KVEntry struct {
	Key       string    `gorm:"primaryKey;type:varchar(255);not null" json:"key"`
	Value     []byte    `gorm:"type:bytea;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
