package models

import "time"

// SchemaMigration is one applied migration file. MigrationName is unique, so a
// file is recorded at most once.
type SchemaMigration struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MigrationName string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"migration_name"`
	ExecutedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"executed_at"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
