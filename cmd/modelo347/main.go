package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/modelo347/cmd/modelo347/cli"
	"github.com/odyssey-erp/modelo347/internal/app"
	modelo347http "github.com/odyssey-erp/modelo347/internal/modelo347/http"
	"github.com/odyssey-erp/modelo347/internal/observability"
	"github.com/odyssey-erp/modelo347/jobs"
	"github.com/odyssey-erp/modelo347/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "modelo347",
		Short:         "Spanish annual third-party operations declaration (Modelo 347)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		cli.NewExportCommand(),
		cli.NewJobsCommand(),
		cli.NewCacheCommand(),
	)
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Default().Error("modelo347", slog.Any("error", err))
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	if app.SkipRuntime(nil, "http server") {
		return nil
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg)

	rt, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := os.MkdirAll(cfg.ExportDir, 0o750); err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	exportMetrics := observability.NewExportMetrics(metrics.Registerer())

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)
	declarationHandler := modelo347http.NewHandler(logger, rt.Service, reportClient, exportMetrics, cfg.ExportDir)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Modelo347Handler: declarationHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("http server", slog.Any("error", err))
		return err
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
