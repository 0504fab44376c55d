package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyon-labs/ragchat/internal/loader"
)

var ingestCollection string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest documents into a collection",
	Long: `Splits the given file or directory of documents into chunks, embeds
them and stores the vectors in the configured collection.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "default", "target collection")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	docs, err := loader.New(cfg.Watch.Extensions).LoadPath(args[0])
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	stats, err := pipelineService.Ingest(cmd.Context(), ingestCollection, docs)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Ingested %d documents (%d chunks, %d vectors) into %q\n",
		stats.Documents, stats.Chunks, stats.Upserted, ingestCollection)
	if stats.FailedBatches > 0 {
		cmd.Printf("Warning: %d batches failed\n", stats.FailedBatches)
	}
	return nil
}
