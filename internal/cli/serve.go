package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adamancini/sn2n/internal/config"
	"github.com/adamancini/sn2n/internal/log"
	"github.com/adamancini/sn2n/internal/notion"
	"github.com/adamancini/sn2n/internal/pipeline"
	"github.com/adamancini/sn2n/internal/server"
	"github.com/adamancini/sn2n/internal/validate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP conversion service",
	Long: `Start the HTTP conversion service.

The service exposes the conversion API (POST /api/W2N and friends) and
runs until interrupted. SIGINT and SIGTERM trigger a graceful shutdown
that lets in-flight conversions finish.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Server.Verbose = true
	}

	logCfg := log.FromEnv()
	if cfg.Server.Verbose {
		logCfg.Level = "debug"
	}
	logger := log.New(logCfg)

	client := notion.New(cfg.Notion.Token,
		notion.WithRateLimit(cfg.Notion.RequestsPerSecond),
		notion.WithBatchSize(cfg.Notion.BatchSize),
		notion.WithNotionVersion(cfg.Notion.Version),
		notion.WithLogger(log.WithComponent(logger, "notion")),
	)

	uploader := pipeline.New(client,
		pipeline.WithLogger(log.WithComponent(logger, "pipeline")),
		pipeline.WithStrictOrder(cfg.Convert.StrictOrder),
	)

	comparator := validate.New(client, validate.Options{
		Method:            validate.Method(cfg.Validation.Method),
		CoverageThreshold: cfg.Validation.CoverageThreshold,
		MaxMissing:        cfg.Validation.MaxMissing,
		Logger:            log.WithComponent(logger, "validate"),
	})

	srv := server.New(server.Config{
		Addr:    cfg.Addr(),
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Logger:  log.WithComponent(logger, "server"),
	}, uploader, comparator, client)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
