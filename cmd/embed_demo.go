package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/folio/internal/orchestrator"
	"github.com/Yates-Labs/folio/internal/rag"
)

var embedOut string

var sampleQuestions = []string{
	"What is Frankenstein about?",
	"Tell me about Mary Shelley's novel",
	"Who is the monster in Frankenstein?",
	"What happens in Moby Dick?",
	"Tell me about whale hunting in literature",
}

// sampleEmbedding is the file written for the first question.
type sampleEmbedding struct {
	Question   string    `json:"question"`
	Model      string    `json:"model"`
	Embedding  []float32 `json:"embedding"`
	Dimensions int       `json:"dimensions"`
}

var embedDemoCmd = &cobra.Command{
	Use:   "embed-demo",
	Short: "Show how questions turn into embedding vectors",
	Long: `Embed a handful of sample questions with the configured embedding model and
print each vector's size, first dimensions and basic statistics. The full
vector of the first question is written to --out.`,
	Args: cobra.NoArgs,
	RunE: runEmbedDemo,
}

func init() {
	rootCmd.AddCommand(embedDemoCmd)
	embedDemoCmd.Flags().StringVar(&embedOut, "out", "sample_embedding.json", "File the first embedding is saved to")
}

func runEmbedDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	embedder, err := orchestrator.NewEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rule := strings.Repeat("=", 50)
	fmt.Println()
	fmt.Println(headerStyle.Render(rule))
	fmt.Println(headerStyle.Render("EMBEDDINGS MODEL DEMONSTRATION"))
	fmt.Println(contextStyle.Render("Using model: " + embedder.GetModel()))
	fmt.Println(headerStyle.Render(rule))

	for i, question := range sampleQuestions {
		fmt.Println()
		fmt.Println(questionStyle.Render(fmt.Sprintf("Question %d: '%s'", i+1, question)))

		vector, err := rag.EmbedOne(ctx, embedder, question)
		if err != nil {
			return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
		}

		stats := orchestrator.Stats(vector)
		fmt.Printf("Vector dimensions: %d\n", stats.Dimensions)
		fmt.Printf("Vector sample (first 5 dimensions): [%s, ...]\n", formatSample(vector, 5))
		fmt.Println("Vector statistics:")
		fmt.Printf("  - Max value: %.6f\n", stats.Max)
		fmt.Printf("  - Min value: %.6f\n", stats.Min)
		fmt.Printf("  - Average value: %.6f\n", stats.Avg)

		if i == 0 {
			if err := saveEmbedding(embedOut, sampleEmbedding{
				Question:   question,
				Model:      embedder.GetModel(),
				Embedding:  vector,
				Dimensions: len(vector),
			}); err != nil {
				return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
			}
			success("Full embedding saved to '%s'", embedOut)
		}
		fmt.Println(contextStyle.Render(strings.Repeat("-", 40)))
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Embedding Demo Complete!"))
	fmt.Println("This demo shows how the embedding model converts text questions into")
	fmt.Println("vector representations that can be used for semantic search.")
	return nil
}

func formatSample(vector []float32, n int) string {
	if n > len(vector) {
		n = len(vector)
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%.6f", vector[i])
	}
	return strings.Join(parts, ", ")
}

func saveEmbedding(path string, sample sampleEmbedding) error {
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
