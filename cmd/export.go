package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcard/internal/archive"
	"github.com/lehigh-university-libraries/snapcard/internal/ui"
)

func newExportCmd() *cobra.Command {
	var (
		dir    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved card analyses to a Parquet file",
		Long: `Collects every *_analysis.json file in the output directory and writes
one Parquet row per card for offline review.`,
		Example: `  snapcard export --output cards.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Output.Dir
			}

			rows, err := archive.Collect(dir)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				ui.Warning("No analysis files in %s", dir)
				return nil
			}

			if err := archive.Write(output, rows); err != nil {
				return err
			}
			ui.Success("Exported %d cards to %s", len(rows), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of analysis files (default output.dir)")
	cmd.Flags().StringVarP(&output, "output", "o", "cards.parquet", "Parquet file to write")

	return cmd
}
