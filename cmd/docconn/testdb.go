package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/syntrixbase/docconn/pkg/connection"
	"github.com/syntrixbase/docconn/pkg/mongotest"
)

// testdbCmd drops test databases left behind by interrupted test runs.
func (a *app) testdbCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:   "testdb",
		Short: "Manage the throwaway test database",
	}
	parent.AddCommand(&cobra.Command{
		Use:   "drop",
		Short: "Drop test_<testing.database_name> on the testing alias",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tc := a.cfg.Testing
			s, ok := a.registry.Settings(tc.Alias)
			if !ok {
				_, err := a.registry.GetConnection(cmd.Context(), tc.Alias)
				return err
			}
			if tc.DatabaseName == "" {
				tc.DatabaseName = s.Name
			}
			s.Secondaries = nil

			runner := mongotest.NewRunner(mongotest.Config{
				DatabaseName: tc.DatabaseName,
				Alias:        tc.Alias,
				Settings:     s,
				Registry:     connection.NewRegistry(slog.Default()),
				Logger:       slog.Default(),
				Timeout:      tc.Timeout,
			})

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			name, err := runner.SetupDatabases(ctx)
			if err != nil {
				return err
			}
			if err := runner.TeardownDatabases(ctx, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", name)
			return nil
		},
	})
	return parent
}
