package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/folio/internal/orchestrator"
	"github.com/Yates-Labs/folio/internal/server"
	"github.com/Yates-Labs/folio/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API and landing page.

Endpoints:
  POST /upload-book    upload a .txt book and index it in the background
  GET  /jobs/:id       status of a background indexing job
  GET  /book-indexes   list the book indexes
  POST /search-books   answer a question from the indexed books
  GET  /health         liveness probe
  GET  /metrics        Prometheus metrics

Examples:
  folio serve
  folio serve --addr :8080 --search-backend local`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8000", "Address to listen on")
	serveCmd.Flags().String("assets-dir", "assets", "Directory uploaded books are saved to")
	serveCmd.Flags().String("static-dir", "static", "Directory holding index.html and static assets")
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("server.assets_dir", cmd.Flags().Lookup("assets-dir"))
	_ = v.BindPFlag("server.static_dir", cmd.Flags().Lookup("static-dir"))
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.New()
	pipeline, err := orchestrator.NewPipeline(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	log.Info().Str("settings", cfg.Describe()).Msg("Pipeline ready")

	srv := server.New(pipeline, server.Options{
		AssetsDir:    cfg.Server.AssetsDir,
		StaticDir:    cfg.Server.StaticDir,
		DefaultLimit: cfg.Retrieval.DefaultLimit,
		Metrics:      metrics,
	})
	runErr := srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := pipeline.Close(closeCtx); err != nil {
		log.Warn().Err(err).Msg("Pipeline did not close cleanly")
	}
	return runErr
}
