package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var resetIndex bool

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf-path|url]",
	Short: "Build the NG12 passage index",
	Long: `Ingest downloads (or reads) the NG12 guideline, splits it into
passages, embeds them and writes them to the vector store.

Downloads honor robots.txt, the rate limit and proxy settings.

Example:
  ng12agent ingest
  ng12agent ingest ./ng12.pdf --reset`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		source := a.Config.Ingest.Source
		if len(args) == 1 {
			source = args[0]
		}
		if source == "" {
			return fmt.Errorf("no source given and ingest.source is empty")
		}

		fmt.Fprintf(os.Stderr, "⚙️  Ingesting %s\n", source)
		stats, err := a.Ingester(resetIndex).Run(cmd.Context(), source)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "✓ %d pages, %d passages (%d with criteria), %d batches in %v\n",
			stats.Pages, stats.Chunks, stats.WithCriteria, stats.Batches, stats.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(os.Stderr, "  Index: %s\n", a.Config.VectorStore.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&resetIndex, "reset", false, "clear the index before writing")
}
