package database

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillRoomLastSeq = "2026-10-01_backfill_room_last_seq"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

var migrations = []migrationDefinition{
	{name: migrationBackfillRoomLastSeq, apply: backfillRoomLastSeq},
}

// applyMigrations runs every pending migration in its own transaction together with its
// db_migrations record, so a failed migration is retried on the next start.
func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var applied []migrationRecord
	if err := db.Find(&applied).Error; err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}
	done := lo.SliceToMap(applied, func(record migrationRecord) (string, bool) {
		return record.Name, true
	})

	pending := lo.Filter(migrations, func(migration migrationDefinition, _ int) bool {
		return !done[migration.name]
	})
	for _, migration := range pending {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			return tx.Create(&migrationRecord{
				Name:             migration.name,
				AppliedAtSeconds: time.Now().UTC().Unix(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", migration.name, err)
		}
		logger.Info("database migration applied", zap.String("migration", migration.name))
	}
	return nil
}

// backfillRoomLastSeq raises each room's watermark to the highest stored seq, for message
// tables that predate the last_seq column.
func backfillRoomLastSeq(db *gorm.DB) error {
	return db.Exec(`UPDATE rooms SET last_seq = (
		SELECT COALESCE(MAX(messages.seq), 0) FROM messages WHERE messages.room_id = rooms.id
	) WHERE last_seq < (
		SELECT COALESCE(MAX(messages.seq), 0) FROM messages WHERE messages.room_id = rooms.id
	)`).Error
}
