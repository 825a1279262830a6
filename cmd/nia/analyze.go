package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/client"
)

func (c *cli) analyzeCmd() *cobra.Command {
	var (
		req     client.Request
		asCSV   bool
		summary bool
		class   string
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "analyze <identifier>",
		Short: "Analyse the failure of a node or exchange",
		Example: `  nia analyze CAI-NASR-DIST-01 --type node
  nia analyze CAI.NASR --csv --out reports/
  nia analyze CAI.NASR --summary --out reports/
  nia analyze CAI-NASR-DIST-01 --filter 'row.Impact == "Isolated"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Identifier = args[0]
			var (
				d   client.Download
				err error
			)
			switch {
			case asCSV && summary:
				return fmt.Errorf("--csv and --summary are mutually exclusive")
			case asCSV:
				d, err = c.client().AnalyzeCSV(cmd.Context(), req, class)
			case summary:
				d, err = c.client().AnalyzeSummary(cmd.Context(), req)
			default:
				resp, err := c.client().Analyze(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if err != nil {
				return err
			}
			if d.Filename == "" {
				return fmt.Errorf("response carries no filename")
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(outDir, filepath.Base(d.Filename))
			if err := os.WriteFile(path, d.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(d.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.IdentifierType, "type", "t", "auto", "identifier type: node|exchange|auto")
	cmd.Flags().StringVar(&req.Filter, "filter", "", "CEL expression over row")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "download annotated rows instead of the summary")
	cmd.Flags().StringVar(&class, "class", "", "with --csv, a single dataset (we|others) instead of a zip")
	cmd.Flags().BoolVar(&summary, "summary", false, "download the combined JSON summary")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "with --csv or --summary, directory to write the download to")
	return cmd
}
