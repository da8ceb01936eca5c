package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskModelo347Audit builds a declaration and records its advisory warnings.
	TaskModelo347Audit = "modelo347:audit"
)

// AuditPayload selects the declaration to audit. Empty fields fall back to the
// same defaults as the HTTP preview.
type AuditPayload struct {
	Exercise    string `json:"exercise,omitempty"`
	Examine     string `json:"examine,omitempty"`
	Grouping    string `json:"grouping,omitempty"`
	Amount      string `json:"amount,omitempty"`
	ExcludeIRPF bool   `json:"exclude_irpf,omitempty"`
}

// NewAuditTask constructs an Asynq task.
func NewAuditTask(payload AuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskModelo347Audit, data), nil
}
