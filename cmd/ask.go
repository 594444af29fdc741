package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/folio/internal/config"
	"github.com/Yates-Labs/folio/internal/logging"
	"github.com/Yates-Labs/folio/internal/narrative"
	"github.com/Yates-Labs/folio/internal/orchestrator"
	"github.com/Yates-Labs/folio/internal/telemetry"
	"github.com/Yates-Labs/folio/internal/tui"
)

var (
	askQuery        string
	askIndex        string
	askPersonality  string
	enableTelemetry bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about the indexed books",
	Long: `Ask a natural language question about the indexed books using RAG (Retrieval-Augmented Generation).

With --query the answer is printed and the command exits. Without it an
interactive session starts, where you can type questions, "indexes" to choose
which books to search, and "exit" or "quit" to leave.

A question that names a book (for example "Tell me about Frankenstein") only
searches that book's index.

Examples:
  folio ask --query "What is the opening line of Moby Dick?"
  folio ask --query "Who is Elizabeth Bennet?" --index classic-pride-and-prejudice
  folio ask --personality storyteller
  folio ask --enable-telemetry`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askQuery, "query", "", "Question to answer; starts an interactive session when empty")
	askCmd.Flags().StringVar(&askIndex, "index", "", "Search only this index")
	askCmd.Flags().StringVar(&askPersonality, "personality", string(narrative.DefaultPersonality),
		"Answer personality (classic_literature, philosopher, storyteller, critic)")
	askCmd.Flags().BoolVar(&enableTelemetry, "enable-telemetry", false, "Serve metrics and log at debug level")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(enableTelemetry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *telemetry.Metrics
	if enableTelemetry || cfg.Telemetry.Enabled {
		metrics = telemetry.New()
		go func() {
			if err := metrics.Serve(ctx, cfg.Telemetry.MetricsAddr); err != nil {
				log.Warn().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	personality, ok := narrative.ParsePersonality(askPersonality)
	if !ok {
		log.Warn().Str("personality", askPersonality).Msg("Unknown personality, using default")
		personality = narrative.DefaultPersonality
	}

	progress("Initializing RAG pipeline...")
	pipeline, err := orchestrator.NewPipeline(ctx, cfg, metrics)
	if err != nil {
		return fmt.Errorf("%s Failed to create RAG pipeline: %w", errorStyle.Render("Error:"), err)
	}
	defer pipeline.Close(context.Background())

	if cmd.Flags().Changed("query") {
		return askOnce(ctx, cfg, pipeline, personality)
	}
	return askInteractive(ctx, cfg, pipeline, personality)
}

func askOnce(ctx context.Context, cfg *config.Config, pipeline *orchestrator.Pipeline, personality narrative.Personality) error {
	fmt.Println()
	fmt.Println(headerStyle.Render("Question:"))
	fmt.Println(questionStyle.Render(askQuery))
	fmt.Println()

	progress("Retrieving relevant context and generating answer...")
	result, err := pipeline.Answer(ctx, orchestrator.AnswerRequest{
		Query:       askQuery,
		Index:       askIndex,
		Limit:       cfg.Retrieval.CLILimit,
		Personality: personality,
	})
	if err != nil {
		return fmt.Errorf("%s Failed to generate answer: %w", errorStyle.Render("Error:"), err)
	}

	if result.Focused != "" {
		fmt.Println(contextStyle.Render(fmt.Sprintf("Query specifically mentions %s, focusing on that index.", result.Focused)))
	}
	if result.Answer == nil {
		fmt.Println(errorStyle.Render(result.Message))
		return nil
	}
	if verbose {
		success("Retrieved %d passages from %s", len(result.Results), strings.Join(result.IndexesSearched, ", "))
	}

	fmt.Println(headerStyle.Render("Answer:"))
	fmt.Println()
	fmt.Println(answerStyle.Render(strings.TrimSpace(result.Answer.Text)))
	fmt.Println()
	return nil
}

func askInteractive(ctx context.Context, cfg *config.Config, pipeline *orchestrator.Pipeline, personality narrative.Personality) error {
	indexes, err := pipeline.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("%s Failed to list book indexes: %w", errorStyle.Render("Error:"), err)
	}
	if len(indexes) == 0 {
		fmt.Println(errorStyle.Render(orchestrator.NoIndexesMessage))
		return nil
	}

	// Log lines would tear the full-screen view, so they go to a file or
	// nowhere while the session runs.
	var sink io.Writer = io.Discard
	if verbose || enableTelemetry {
		f, err := os.OpenFile("folio.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		sink = f
	}
	logging.SetupWriter(sink, logLevel(cfg), "json")
	defer logging.Setup(logLevel(cfg), cfg.Log.Format)

	session := tui.NewSession(pipeline, indexes, cfg.Retrieval.InteractiveLimit, personality)
	p := tea.NewProgram(tui.New(ctx, session), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	if m, ok := final.(tui.Model); ok {
		fmt.Println(m.Transcript())
	}
	return nil
}

func logLevel(cfg *config.Config) string {
	if verbose || enableTelemetry {
		return "debug"
	}
	return cfg.Log.Level
}
