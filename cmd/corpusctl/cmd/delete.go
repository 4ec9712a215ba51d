package cmd

import (
	"github.com/spf13/cobra"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
	"github.com/Aman-CERP/corpusctl/internal/index"
	"github.com/Aman-CERP/corpusctl/internal/output"
)

func newDeleteCmd() *cobra.Command {
	var indexes string

	cmd := &cobra.Command{
		Use:     "delete",
		Short:   "Delete indexes",
		Long:    `Delete the given indexes and every document they hold.`,
		Example: `  corpusctl delete --indexes encpos__document,encpos__collection`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := index.ParseIndexes(indexes, nil)
			if len(names) == 0 {
				return cerrors.ValidationError("--indexes must name at least one index", nil)
			}

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
			deleted, err := runner.DeleteIndexes(cmd.Context(), names)
			for _, name := range deleted {
				out.Successf("Deleted %s", name)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&indexes, "indexes", "", "Comma-separated indexes to delete (required)")
	_ = cmd.MarkFlagRequired("indexes")

	return cmd
}
