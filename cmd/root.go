package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/folio/internal/config"
	"github.com/Yates-Labs/folio/internal/logging"
)

var (
	cfgFile string
	verbose bool

	v = config.NewViper()
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio - Ask questions about classic books",
	Long: `Folio indexes plain-text books into a search service and answers questions
about them with retrieval-augmented generation.

Books are split into paragraph chunks, embedded, and stored one index per book.
Questions are embedded, matched against the relevant indexes and answered by a
chat model in one of several personalities.

Settings come from an optional folio.yaml, FOLIO_* environment variables and a
.env file in the working directory.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default ./folio.yaml or ./config/folio.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console or json)")
	flags.String("search-backend", "azure", "Search backend (azure, milvus or local)")
	flags.String("index-prefix", "classic", "Prefix shared by every book index")
	flags.BoolVar(&verbose, "verbose", false, "Show detailed progress")

	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindPFlag("search.backend", flags.Lookup("search-backend"))
	_ = v.BindPFlag("search.index_prefix", flags.Lookup("index-prefix"))
}

// loadConfig reads the settings and configures logging. debug forces the
// debug level regardless of log.level.
func loadConfig(debug bool) (*config.Config, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if debug || verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.Log.Format)
	return cfg, nil
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
