package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/modelo347/internal/app"
	"github.com/odyssey-erp/modelo347/jobs"
)

// Enqueuer submits tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueInspector reads queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector QueueInspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []io.Closer{inspector, client}}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Trigger enqueues a supported job by name.
func (c *JobsCLI) Trigger(ctx context.Context, name string, payload jobs.AuditPayload) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	switch name {
	case jobs.TaskModelo347Audit:
		task, err := jobs.NewAuditTask(payload)
		if err != nil {
			return nil, err
		}
		return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// NewJobsCommand returns the `jobs` command tree.
func NewJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background declaration audits",
	}

	var payload jobs.AuditPayload
	trigger := &cobra.Command{
		Use:   "trigger [task]",
		Short: "Enqueue a task (default " + jobs.TaskModelo347Audit + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := jobs.TaskModelo347Audit
			if len(args) == 1 {
				name = args[0]
			}
			c, err := jobsFromEnv()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			info, err := c.Trigger(cmd.Context(), name, payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().StringVar(&payload.Exercise, "exercise", "", "exercise code (default: newest open exercise)")
	trigger.Flags().StringVar(&payload.Examine, "examine", "", "data source: invoices or accounting")
	trigger.Flags().StringVar(&payload.Grouping, "grouping", "", "grouping: customer-supplier or cifnif")

	var scheduled int
	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := jobsFromEnv()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			return printInspect(cmd.OutOrStdout(), c, scheduled)
		},
	}
	inspect.Flags().IntVar(&scheduled, "scheduled", 0, "also list up to N scheduled tasks")

	cmd.AddCommand(trigger, inspect)
	return cmd
}

func printInspect(w io.Writer, c *JobsCLI, scheduled int) error {
	stats, err := c.InspectQueue()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	if scheduled <= 0 {
		return nil
	}
	tasks, err := c.ListScheduled(scheduled)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "%s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

func jobsFromEnv() (*JobsCLI, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewJobsCLI(cfg.RedisAddr), nil
}
