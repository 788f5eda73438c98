package main

import (
	"fmt"

	"github.com/Rrens/flexy-chat/internal/repository/sqlite"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the local store schema",
	}

	open := func(cmd *cobra.Command) (*sqlite.DB, error) {
		return sqlite.Open(cmd.Context(), c.cfg.Store.Path)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open(cmd)
				if err != nil {
					return err
				}
				defer db.Close()
				return sqlite.RunMigrations(db)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations, dropping the journal and stored credentials",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open(cmd)
				if err != nil {
					return err
				}
				defer db.Close()
				return sqlite.RollbackMigrations(db)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open(cmd)
				if err != nil {
					return err
				}
				defer db.Close()

				version, dirty, err := sqlite.MigrationVersion(db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			},
		},
	)

	return cmd
}
