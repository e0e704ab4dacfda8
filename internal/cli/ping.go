package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()

			db, registry, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := registry.Executor().Ping(ctx); err != nil {
				return err
			}

			stats := registry.Executor().Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "%s database reachable in %s (open connections: %d/%d)\n",
				a.cfg.Database.Driver,
				time.Since(start).Round(time.Millisecond),
				stats.OpenConnections,
				stats.MaxOpenConnections,
			)
			return nil
		},
	}
}
