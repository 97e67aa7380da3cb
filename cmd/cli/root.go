package main

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/dispensary/internal/config"
	"github.com/suPer8Hu/dispensary/internal/db"
	"gorm.io/gorm"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dispensary",
		Short:        "Operator tools for the dispensary chat back end",
		SilenceUsage: true,
	}
	cmd.AddCommand(newMigrateCmd(), newAdminCmd(), newTokenCmd(), newUsageCmd())
	return cmd
}

type env struct {
	cfg config.Config
	log *logrus.Logger
	db  *gorm.DB
}

// bootstrap loads config and opens the database.
func bootstrap() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	// keep stdout for command output
	log.SetOutput(os.Stderr)
	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: gdb}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
