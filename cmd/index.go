package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/folio/internal/orchestrator"
)

var (
	indexTextFile string
	indexAllBooks bool
	indexName     string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Create search indexes from plain-text books",
	Long: `Split a book into paragraph chunks, embed them and replace the book's index.

With --text-file a single book is indexed, under --index-name when given or
"<prefix>-<book name>" otherwise. With --all-books every .txt file in the
assets directory gets its own index.

Examples:
  folio index --text-file assets/frankenstein.txt
  folio index --text-file assets/emma.txt --index-name classic-emma
  folio index --all-books --assets-dir ./assets`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexTextFile, "text-file", "", "Path to plain text file (e.g., a book) for indexing")
	indexCmd.Flags().BoolVar(&indexAllBooks, "all-books", false, "Create indexes for all books in the assets directory")
	indexCmd.Flags().String("assets-dir", "assets", "Directory containing book files")
	indexCmd.Flags().StringVar(&indexName, "index-name", "", "Index name for --text-file (default derived from the file name)")
	indexCmd.MarkFlagsMutuallyExclusive("text-file", "all-books")
	indexCmd.MarkFlagsOneRequired("text-file", "all-books")
}

func runIndex(cmd *cobra.Command, args []string) error {
	// serve binds the same key, so the binding is made once the command is known.
	_ = v.BindPFlag("server.assets_dir", cmd.Flags().Lookup("assets-dir"))
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

	if indexTextFile != "" {
		name := indexName
		if name == "" {
			name = pipeline.DefaultIndexName(indexTextFile)
		}
		progress("Indexing %s into %s...", indexTextFile, name)
		n, err := pipeline.IndexBook(ctx, indexTextFile, name)
		if err != nil {
			return fmt.Errorf("%s Failed to index %s: %w", errorStyle.Render("Error:"), indexTextFile, err)
		}
		success("Uploaded %d chunks to '%s'", n, name)
		return nil
	}

	progress("Indexing every book in %s...", cfg.Server.AssetsDir)
	results, err := pipeline.IndexAll(ctx, cfg.Server.AssetsDir)
	for _, r := range results {
		if r.Err != nil {
			failure("%s: %v", filepath.Base(r.Path), r.Err)
			continue
		}
		success("Uploaded %d chunks to '%s'", r.Documents, r.Index)
	}
	if err != nil {
		return fmt.Errorf("%s Some books could not be indexed: %w", errorStyle.Render("Error:"), err)
	}
	return nil
}
