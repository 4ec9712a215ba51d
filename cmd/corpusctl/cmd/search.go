package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusctl/internal/index"
	"github.com/Aman-CERP/corpusctl/internal/output"
	"github.com/Aman-CERP/corpusctl/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var (
		indexes string
		term    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus indexes",
		Long: `Send a search request to the engine and print its JSON response.

The query is a raw JSON request body. With --term it is a query string,
wrapped as {"query":{"bool":{"must":[{"query_string":{"query":...}}]}}}.

The document and collection indexes are searched unless --indexes is given.`,
		Example: `  # Search a term
  corpusctl search -t "diplomatique"

  # Send a raw query to the document index
  corpusctl search --indexes encpos__document '{"query":{"match_all":{}},"size":3}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := index.BuildSearchBody(args[0], term)
			if err != nil {
				return err
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

			resp, err := runner.Search(cmd.Context(), index.ParseIndexes(indexes, s.cfg.AllIndexes()), body)
			if err != nil {
				return err
			}

			out := output.NewColor(cmd.OutOrStdout(), ui.Interactive(cmd.OutOrStdout()) && !ui.NoColorRequested())
			out.Banner("result")
			return out.JSON(resp)
		},
	}

	cmd.Flags().StringVar(&indexes, "indexes", "", "Comma-separated indexes to search (default: document and collection indexes)")
	cmd.Flags().BoolVarP(&term, "term", "t", false, "Treat the query as a search term")

	return cmd
}
