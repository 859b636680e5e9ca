// Package jobs hosts the background workers that keep the portal's
// cached OTIF metrics warm.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOTIFWarmup recomputes cached OTIF metrics for active suppliers.
	TaskOTIFWarmup = "otif:warmup"
)

// OTIFWarmupPayload scopes a warmup run. An empty SupplierID warms every
// active supplier.
type OTIFWarmupPayload struct {
	SupplierID int64 `json:"supplier_id,omitempty"`
}

// NewOTIFWarmupTask constructs an Asynq task for an OTIF warmup run.
func NewOTIFWarmupTask(payload OTIFWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOTIFWarmup, data), nil
}
