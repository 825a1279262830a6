package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/backend"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/snapshot"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/store"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

const importLockTTL = 5 * time.Minute

func (c *cli) importCmd() *cobra.Command {
	var (
		cfg  backend.Config
		name string
	)
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CSV export into a database backend",
		Long: `Import stores one CSV export as a table of a database backend so that
nia-d can load its snapshot from there. Report exports are recognised by
their header; topology tables need --table (ospf, wan or agg).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.IsDatabase() {
				return fmt.Errorf("source %q is not a database backend", cfg.Kind)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			t, err := table.ReadCSV(filepath.Base(args[0]), f)
			if err != nil {
				return err
			}

			if name == "" {
				class, ok := dataset.Detect(t.Columns())
				if !ok {
					return fmt.Errorf("cannot tell which table %s is, pass --table", args[0])
				}
				name = snapshot.TableNames.Report(class)
			}

			tables, err := backend.OpenTables(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer tables.Close()

			if err := store.Import(cmd.Context(), tables.Store, tables.Locker, t.Renamed(name), uuid.NewString(), importLockTTL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", t.Len(), name)
			return nil
		},
	}
	addBackendFlags(cmd.Flags(), &cfg)
	cmd.Flags().StringVar(&name, "table", "", "target table name (default: detected report table)")
	return cmd
}
