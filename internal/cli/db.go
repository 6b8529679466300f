package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/augment/internal/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Run ledger database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cleanup, err := openDB(ledgerDSN())
		if err != nil {
			return err
		}
		defer cleanup()
		fmt.Fprintln(cmd.OutOrStdout(), "Run ledger schema is up to date.")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDB(ledgerDSN())
		if err != nil {
			return err
		}
		defer cleanup()
		if err := d.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Run ledger reset.")
		return nil
	},
}

// openDB opens and migrates the ledger at dsn, or at the default SQLite
// path when dsn is empty.
func openDB(dsn string) (*db.DB, func(), error) {
	if dsn == "" {
		var err error
		if dsn, err = db.DefaultDBPath(); err != nil {
			return nil, nil, err
		}
	}
	d, err := db.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
}
