package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusctl/internal/selection"
	"github.com/Aman-CERP/corpusctl/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		years string
		noTUI bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index corpus documents into the document index",
		Long: `Index the corpus documents of a range of promotion years.

For each document id selected from the metadata table, the document is
fetched from the DTS text service, its <body> is extracted and stripped
of markup, and {content, metadata} is written to the document index.
Indexing a document again replaces it.

A document that cannot be fetched or written is reported and skipped;
the command then exits with an error once the batch is done.`,
		Example: `  # Index every year of the corpus
  corpusctl index

  # Index the theses of 1900 to 1905
  corpusctl index --years 1900-1905

  # Plain progress output
  corpusctl index --years 1849-1860 --no-tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Ctrl+C stops the loop between documents and aborts the request in flight.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			renderer := ui.NewRenderer(ui.Options{
				Output:    cmd.OutOrStdout(),
				Plain:     noTUI,
				NoColor:   ui.NoColorRequested(),
				Target:    s.target(),
				Interrupt: stop,
			})
			if err := renderer.Start(ctx); err != nil {
				slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
			}
			defer func() { _ = renderer.Stop() }()

			runner, err := s.runner(renderer)
			if err != nil {
				return err
			}

			report, err := runner.Run(ctx, years)
			if err != nil {
				return err
			}
			return report.Err()
		},
	}

	cmd.Flags().StringVar(&years, "years", selection.AllYears, `Promotion years to index: "<start>-<end>" or "all"`)
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")

	return cmd
}
