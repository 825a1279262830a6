package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/backend"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/drill"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/snapshot"
)

var errDrillFailed = errors.New("drill failed")

func (c *cli) drillCmd() *cobra.Command {
	var (
		cfg   backend.Config
		local bool
	)
	cmd := &cobra.Command{
		Use:   "drill <scenario.yaml>",
		Short: "Replay planned failures and check invariants",
		Long: `Drill runs every case of a scenario and checks its invariants. By
default the scenario is sent to nia-d; with --local the snapshot is loaded
from the given backend instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			scenario, err := drill.LoadScenario(f)
			f.Close()
			if err != nil {
				return err
			}

			var result drill.Result
			if local {
				result, err = runLocalDrill(cmd, cfg, scenario)
				if err != nil {
					return err
				}
			} else {
				raw, err := c.client().Drill(cmd.Context(), scenario)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(raw, &result); err != nil {
					return err
				}
			}

			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return errDrillFailed
			}
			return nil
		},
	}
	addBackendFlags(cmd.Flags(), &cfg)
	cmd.Flags().BoolVar(&local, "local", false, "load the snapshot from the backend instead of calling nia-d")
	return cmd
}

func runLocalDrill(cmd *cobra.Command, cfg backend.Config, scenario drill.Scenario) (drill.Result, error) {
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))

	src, closeSource, err := backend.OpenSource(cmd.Context(), cfg)
	if err != nil {
		return drill.Result{}, err
	}
	defer closeSource()

	snap, err := snapshot.Load(cmd.Context(), src, cfg.DefaultNames())
	if err != nil {
		return drill.Result{}, err
	}
	runner, err := snap.Analyzers(logger)
	if err != nil {
		return drill.Result{}, err
	}
	return drill.Run(cmd.Context(), runner, scenario, logger)
}
