package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var (
	askCollection    string
	askStream        bool
	askTopK          int
	askMinSimilarity float64
	askShowSources   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about ingested documents",
	Long: `Retrieves the passages most similar to the question and generates a
grounded answer with the configured model.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCollection, "collection", "c", "default", "collection to search")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer as it is generated")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve")
	askCmd.Flags().Float64Var(&askMinSimilarity, "min-similarity", 0, "similarity floor for retrieved passages")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print the retrieved passages before the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}

	question := args[0]
	ctx := cmd.Context()

	if askShowSources {
		matches, err := pipelineService.Retrieve(ctx, askCollection, question, askTopK, askMinSimilarity)
		if err != nil {
			return fmt.Errorf("retrieve failed: %w", err)
		}
		for i, m := range matches {
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, m.Metadata["source"], m.Similarity)
		}
		cmd.Println()
	}

	if !askStream {
		answer, err := pipelineService.Answer(ctx, askCollection, question)
		if err != nil {
			return fmt.Errorf("answer failed: %w", err)
		}
		cmd.Println(answer)
		return nil
	}

	stream, err := pipelineService.AnswerStream(ctx, askCollection, question)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}
	defer stream.Close()

	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("stream failed: %w", err)
		}
		cmd.Print(frag)
	}
	cmd.Println()
	return nil
}
