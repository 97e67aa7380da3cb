package main

import (
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/dispensary/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap()
			if err != nil {
				return err
			}
			defer e.close()

			if rollback {
				if err := db.Migrator(e.db, e.log).RollbackLast(); err != nil {
					return err
				}
				e.log.Info("rolled back last migration")
				return nil
			}
			if err := db.Migrate(e.db, e.log); err != nil {
				return err
			}
			e.log.Info("migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Roll back the most recent migration")
	return cmd
}
