package main

import (
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/dispensary/internal/usage"
)

func newUsageCmd() *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Print daily and monthly AI and search usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bootstrap()
			if err != nil {
				return err
			}
			defer e.close()

			store := usage.NewGormStore(e.db)
			sum, err := usage.NewLedger(store, e.cfg.Quota, e.log).Summary(cmd.Context())
			if err != nil {
				return err
			}
			out := struct {
				*usage.Summary
				Recent []usage.Record `json:"recent,omitempty"`
			}{Summary: sum}
			if recent > 0 {
				if out.Recent, err = store.Recent(cmd.Context(), recent); err != nil {
					return err
				}
			}
			return writeJSON(out)
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 0, "Also list the N most recent usage records")
	return cmd
}
