package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/modelo347/internal/jobs"
	"github.com/odyssey-erp/modelo347/internal/modelo347"
)

const auditTimeout = 2 * time.Minute

// Auditor is the part of the declaration service the audit job needs.
type Auditor interface {
	Resolve(ctx context.Context, p modelo347.Params) (modelo347.DeclarationContext, error)
	Build(ctx context.Context, dc modelo347.DeclarationContext) (modelo347.Report, error)
}

// AuditJob rebuilds a declaration in the background and records its
// advisory warnings.
type AuditJob struct {
	Service Auditor
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAuditJob wires dependencies for the audit handler.
func NewAuditJob(service Auditor, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditJob {
	return &AuditJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskModelo347Audit tasks.
func (j *AuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("modelo347 audit: handler not configured")
	}
	var payload AuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := j.Run(ctx, payload)
	if errors.Is(err, modelo347.ErrInvalidParams) || errors.Is(err, modelo347.ErrExerciseNotFound) {
		return errors.Join(err, asynq.SkipRetry)
	}
	return err
}

// Run builds the declaration described by payload and returns its warnings.
func (j *AuditJob) Run(ctx context.Context, payload AuditPayload) (warnings []modelo347.Warning, resultErr error) {
	tracker := j.Metrics.Track(TaskModelo347Audit)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	ctx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()

	start := j.now()
	logger := j.logger().With(slog.String("exercise", payload.Exercise))
	logger.Info("starting modelo347 audit")

	dc, err := j.Service.Resolve(ctx, modelo347.Params{
		Exercise:    payload.Exercise,
		Examine:     payload.Examine,
		Grouping:    payload.Grouping,
		Amount:      payload.Amount,
		ExcludeIRPF: payload.ExcludeIRPF,
	})
	if err != nil {
		logger.Error("resolve audit parameters", slog.Any("error", err))
		return nil, err
	}
	report, err := j.Service.Build(ctx, dc)
	if err != nil {
		logger.Error("build declaration", slog.String("exercise", dc.ExerciseCode), slog.Any("error", err))
		return nil, err
	}

	counts := make(map[string]int)
	for _, w := range report.Warnings {
		counts[w.Key]++
	}
	for key, n := range counts {
		j.Metrics.AddWarnings(key, dc.ExerciseCode, n)
	}

	logger.Info("completed modelo347 audit",
		slog.String("exercise", dc.ExerciseCode),
		slog.Int("customers", len(report.Customers.Rows)),
		slog.Int("suppliers", len(report.Suppliers.Rows)),
		slog.Int("warnings", len(report.Warnings)),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return report.Warnings, nil
}

func (j *AuditJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AuditJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
