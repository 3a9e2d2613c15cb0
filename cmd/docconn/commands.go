package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/syntrixbase/docconn/pkg/connection"
)

func (a *app) aliasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aliases",
		Short: "List configured connection aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, alias := range a.registry.Aliases() {
				s, _ := a.registry.Settings(alias)
				fmt.Fprintf(out, "%s\t%s\t%s%s\n", alias, s.Name, target(s), roles(s))
			}
			return nil
		},
	}
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping <alias>",
		Short: "Connect to an alias and its secondaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			db, err := a.registry.GetDB(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (database %s, %d secondaries)\n",
				args[0], db.Name(), len(db.Connection().Secondaries()))
			return nil
		},
	}
}

func (a *app) collectionsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "collections <alias>",
		Short: "List collections of the alias database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			db, err := a.registry.GetDB(ctx, args[0])
			if err != nil {
				return err
			}
			list := db.UserCollectionNames
			if all {
				list = db.CollectionNames
			}
			names, err := list(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include system.* collections")
	return cmd
}

func (a *app) dropCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "drop <alias>",
		Short: "Drop the database of an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := args[0]
			s, ok := a.registry.Settings(alias)
			if !ok {
				_, err := a.registry.GetConnection(cmd.Context(), alias)
				return err
			}
			if !force {
				return fmt.Errorf("refusing to drop database %q of alias %q without --force", s.Name, alias)
			}

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			db, err := a.registry.GetDB(ctx, alias)
			if err != nil {
				return err
			}
			if err := db.Drop(ctx); err != nil {
				return fmt.Errorf("drop database %s: %w", s.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", s.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm dropping the database")
	return cmd
}

func target(s connection.Settings) string {
	if s.URI != "" {
		return s.URI
	}
	return s.Address()
}

func roles(s connection.Settings) string {
	var parts []string
	if s.Secondary {
		parts = append(parts, "secondary")
	}
	if len(s.Secondaries) > 0 {
		parts = append(parts, "reads:"+strings.Join(s.Secondaries, ","))
	}
	if len(parts) == 0 {
		return ""
	}
	return "\t" + strings.Join(parts, " ")
}
