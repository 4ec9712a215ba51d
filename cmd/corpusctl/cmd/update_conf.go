package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusctl/internal/index"
	"github.com/Aman-CERP/corpusctl/internal/output"
)

func newUpdateConfCmd() *cobra.Command {
	var (
		indexes string
		rebuild bool
	)

	cmd := &cobra.Command{
		Use:   "update-conf",
		Short: "Create or reconfigure indexes from their settings files",
		Long: `Create or update each index with its settings and mappings.

The settings document of index <name> is read from <name>.conf.json in
engine.config_dir, with its "settings" key replaced by the content of
_global.conf.json. Without engine.config_dir, the settings built into
corpusctl are used.

With --rebuild, each index is deleted first; its documents are lost.`,
		Example: `  # Apply settings to the document and collection indexes
  corpusctl update-conf

  # Recreate the document index from scratch
  corpusctl update-conf --indexes encpos__document --rebuild`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			runner, err := s.runner(nil)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			report, err := runner.UpdateSettings(cmd.Context(), index.ParseIndexes(indexes, s.cfg.AllIndexes()), rebuild)
			if report != nil {
				for _, name := range report.Updated {
					out.Successf("Updated %s", name)
				}
				for _, f := range report.Failures {
					out.Errorf("%s: %v", f.ID, f.Err)
				}
			}
			if err != nil {
				return err
			}
			return report.Err()
		},
	}

	cmd.Flags().StringVar(&indexes, "indexes", "", "Comma-separated indexes to update (default: document and collection indexes)")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Delete each index before applying its settings")

	return cmd
}
