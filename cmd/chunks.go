package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/folio/internal/orchestrator"
)

var (
	chunksQuery string
	chunksTop   int
)

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Show the raw chunks a query retrieves",
	Long: `Embed a query and run it against every book index, printing the matching
chunks without generating an answer. Useful for checking what the model would
be given as context.

Examples:
  folio chunks
  folio chunks --query "Who is Captain Ahab?" --top 3`,
	Args: cobra.NoArgs,
	RunE: runChunks,
}

func init() {
	rootCmd.AddCommand(chunksCmd)
	chunksCmd.Flags().StringVar(&chunksQuery, "query", "What Books are Available to read?", "Query to embed and search for")
	chunksCmd.Flags().IntVar(&chunksTop, "top", 5, "Chunks to retrieve from each index")
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := orchestrator.NewPipeline(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("%s Failed to create RAG pipeline: %w", errorStyle.Render("Error:"), err)
	}
	defer pipeline.Close(context.Background())

	result, err := pipeline.Chunks(ctx, chunksQuery, chunksTop)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(headerStyle.Render("Query:"))
	fmt.Println(questionStyle.Render(chunksQuery))
	fmt.Println()
	fmt.Println(contextStyle.Render(orchestrator.VisualizeEmbedding(result.Vector, 5)))
	fmt.Println()

	for i, entry := range result.Results {
		fmt.Println(headerStyle.Render(fmt.Sprintf("%d. %s", i+1, entry.Title)))
		fmt.Println(contextStyle.Render(entry.SourceIndex))
		fmt.Println(answerStyle.Render(preview(entry.Content, 300)))
		fmt.Println()
	}
	success("Found %d documents across all indexes", len(result.Results))
	return nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
