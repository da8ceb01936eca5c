package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/modelo347/internal/jobs"
	"github.com/odyssey-erp/modelo347/internal/modelo347"
	_ "github.com/odyssey-erp/modelo347/testing"
)

type stubAuditor struct {
	params     modelo347.Params
	report     modelo347.Report
	resolveErr error
	buildErr   error
}

func (s *stubAuditor) Resolve(_ context.Context, p modelo347.Params) (modelo347.DeclarationContext, error) {
	s.params = p
	if s.resolveErr != nil {
		return modelo347.DeclarationContext{}, s.resolveErr
	}
	return modelo347.DeclarationContext{ExerciseCode: "2023"}, nil
}

func (s *stubAuditor) Build(context.Context, modelo347.DeclarationContext) (modelo347.Report, error) {
	if s.buildErr != nil {
		return modelo347.Report{}, s.buildErr
	}
	return s.report, nil
}

func TestAuditPayloadRoundTrip(t *testing.T) {
	task, err := NewAuditTask(AuditPayload{Exercise: "2023", Grouping: "cifnif", ExcludeIRPF: true})
	require.NoError(t, err)
	require.Equal(t, TaskModelo347Audit, task.Type())
	require.JSONEq(t, `{"exercise":"2023","grouping":"cifnif","exclude_irpf":true}`, string(task.Payload()))
}

func TestAuditJobReturnsWarnings(t *testing.T) {
	auditor := &stubAuditor{report: modelo347.Report{Warnings: []modelo347.Warning{
		{Key: "347-no-country"}, {Key: "347-no-country"}, {Key: "company-phone-no-data"},
	}}}
	job := NewAuditJob(auditor, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	warnings, err := job.Run(context.Background(), AuditPayload{Exercise: "2023", Examine: "accounting"})
	require.NoError(t, err)
	require.Len(t, warnings, 3)
	require.Equal(t, "accounting", auditor.params.Examine)
}

func TestAuditJobHandle(t *testing.T) {
	job := NewAuditJob(&stubAuditor{}, nil, nil)
	task, err := NewAuditTask(AuditPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	err = job.Handle(context.Background(), asynq.NewTask(TaskModelo347Audit, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAuditJobSkipsRetryOnBadParams(t *testing.T) {
	job := NewAuditJob(&stubAuditor{resolveErr: modelo347.ErrExerciseNotFound}, nil, nil)
	task, err := NewAuditTask(AuditPayload{Exercise: "1999"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, modelo347.ErrExerciseNotFound)
}

func TestAuditJobRetriesOnBuildFailure(t *testing.T) {
	boom := errors.New("connection reset")
	job := NewAuditJob(&stubAuditor{buildErr: boom}, nil, nil)
	task, err := NewAuditTask(AuditPayload{})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func serveHealth(t *testing.T, h *Handler) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rec
}

func TestHealthReportsQueue(t *testing.T) {
	rec := serveHealth(t, NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Retry: 1}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, queueHealth{Queue: "default", Pending: 4, Retry: 1}, body)
}

func TestHealthWithoutInspector(t *testing.T) {
	rec := serveHealth(t, NewHandler(nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0}`, rec.Body.String())
}

func TestHealthInspectorFailure(t *testing.T) {
	rec := serveHealth(t, NewHandler(stubInspector{err: errors.New("redis down")}, nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
