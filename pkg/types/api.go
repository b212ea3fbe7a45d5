package types

import "time"

// ReportRequest is the request body for POST /api/reports
type ReportRequest struct {
	ReportType string            `json:"report_type"`
	UserID     string            `json:"user_id"`
	Params     map[string]string `json:"params,omitempty"`
	Format     string            `json:"format"`
	BlobKey    string            `json:"blob_key"`
	Reference  string            `json:"reference,omitempty"` // Optional caller reference kept in the job id
}

// ReportAcceptedData is the data payload for POST /api/reports response
type ReportAcceptedData struct {
	JobID  string   `json:"job_id"`
	Status JobState `json:"status"`
}

// JobState is the lifecycle state of a report job
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Terminal reports whether the job will not change state again
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// JobStatus is the stored state of a report job, returned by GET /api/reports/status
type JobStatus struct {
	ID         string     `json:"id"`
	ReportType string     `json:"report_type"`
	UserID     string     `json:"user_id"`
	Format     string     `json:"format"`
	BlobKey    string     `json:"blob_key"`
	State      JobState   `json:"state"`
	Error      string     `json:"error,omitempty"`
	SizeBytes  int        `json:"size_bytes,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CacheKeyRequest is the request body for POST /internal/cache/invalidate
type CacheKeyRequest struct {
	DistributorID string `json:"distributor_id"`
	OrderCycleID  string `json:"order_cycle_id"`
}

// CacheEntryData describes one products cache entry (GET /internal/cache/entry)
type CacheEntryData struct {
	Key       string `json:"key"`
	State     string `json:"state"` // absent, negative, populated
	SizeBytes int    `json:"size_bytes"`
}

// HealthData is the data payload for GET /health
type HealthData struct {
	Status           string `json:"status"`
	Environment      string `json:"environment"`
	Cache            string `json:"cache"`
	ReportQueueDepth int    `json:"report_queue_depth"`
}
