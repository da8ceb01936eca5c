package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/modelo347/cmd/modelo347/cli"
	"github.com/odyssey-erp/modelo347/internal/app"
	jobmetrics "github.com/odyssey-erp/modelo347/internal/jobs"
	"github.com/odyssey-erp/modelo347/jobs"
)

func main() {
	if app.SkipRuntime(nil, "worker") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	rt, err := cli.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open runtime", slog.Any("error", err))
		os.Exit(1)
	}
	defer rt.Close()

	auditJob := jobs.NewAuditJob(rt.Service, logger, jobmetrics.NewMetrics(nil))

	var cron []jobs.CronRegistration
	if cfg.AuditCron != "" {
		auditTask, err := jobs.NewAuditTask(jobs.AuditPayload{})
		if err != nil {
			logger.Error("build audit task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.AuditCron,
			Task:    auditTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskModelo347Audit, Handler: auditJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
