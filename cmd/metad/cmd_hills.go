package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csadorf/metadynamics-plugin/internal/store"
)

func newHillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hills",
		Short: "Work with deposition logs",
	}
	cmd.AddCommand(newHillsImportCmd())
	return cmd
}

func newHillsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <hills-file> <database>",
		Short: "Import a tab-separated deposition log into a SQLite history",
		Long: `Import a tab-separated deposition log into a SQLite history.

The database keeps the deposition order and the variable set of the
log. Importing into an existing database requires the same variable
set; records are appended after the existing history.

Examples:
  metad hills import hills.log history.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, names, err := store.ReadHillsFile(args[0])
			if err != nil {
				return err
			}

			db, err := store.NewSQLiteHillLog(args[1], names)
			if err != nil {
				return err
			}
			defer db.Close()

			for i, rec := range records {
				if err := db.Append(rec); err != nil {
					return fmt.Errorf("importing hill %d (step %d): %w", i, rec.Step, err)
				}
			}

			fmt.Printf("imported %d hills into %s\n", len(records), args[1])
			return nil
		},
	}
}
