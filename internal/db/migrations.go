package db

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/sirupsen/logrus"
	"github.com/suPer8Hu/dispensary/internal/auth"
	"github.com/suPer8Hu/dispensary/internal/chat"
	"github.com/suPer8Hu/dispensary/internal/knowledge"
	"github.com/suPer8Hu/dispensary/internal/usage"
	"gorm.io/gorm"
)

func models() []any {
	return []any{
		&chat.Session{},
		&chat.Message{},
		&chat.SpecialOrder{},
		&usage.Record{},
		&knowledge.Entry{},
		&auth.AdminUser{},
	}
}

const sessionStatusIndex = "idx_chat_sessions_status_updated"

func Migrator(gdb *gorm.DB, log *logrus.Logger) *gormigrate.Gormigrate {
	if log == nil {
		log = logrus.New()
	}
	m := gormigrate.New(gdb, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0001_initial",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(models()...)
			},
			Rollback: func(tx *gorm.DB) error {
				ms := models()
				for i := len(ms) - 1; i >= 0; i-- {
					if err := tx.Migrator().DropTable(ms[i]); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			// admin console lists sessions by status, newest activity first
			ID: "0002_session_status_index",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasIndex(&chat.Session{}, sessionStatusIndex) {
					return nil
				}
				return tx.Migrator().CreateIndex(&chat.Session{}, sessionStatusIndex)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropIndex(&chat.Session{}, sessionStatusIndex)
			},
		},
	})

	m.InitSchema(func(tx *gorm.DB) error {
		log.Info("clean database detected, running full schema initialization")
		if name := tx.Dialector.Name(); name == "sqlite" || name == "sqlite3" {
			if err := tx.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				log.WithError(err).Warn("could not enable sqlite foreign keys")
			}
		}
		return tx.AutoMigrate(models()...)
	})
	return m
}

// Migrate brings the schema up to date.
func Migrate(gdb *gorm.DB, log *logrus.Logger) error {
	return Migrator(gdb, log).Migrate()
}
