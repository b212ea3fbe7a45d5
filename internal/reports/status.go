package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/edgecomet/catalog/internal/common/redis"
	"github.com/edgecomet/catalog/pkg/types"
)

// StatusKeyPrefix starts every job status hash key
const StatusKeyPrefix = "report-job:"

// ErrJobNotFound is returned for unknown or expired job ids
var ErrJobNotFound = errors.New("report job not found")

// StatusStore keeps job status in Redis hashes that expire after ttl
type StatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusStore(client *redis.Client, ttl time.Duration) *StatusStore {
	return &StatusStore{client: client, ttl: ttl}
}

// StatusKey returns report-job:{id}
func StatusKey(id string) string {
	return StatusKeyPrefix + id
}

// Save writes every field of st and refreshes the expiry
func (s *StatusStore) Save(ctx context.Context, st types.JobStatus) error {
	fields := []interface{}{
		"id", st.ID,
		"report_type", st.ReportType,
		"user_id", st.UserID,
		"format", st.Format,
		"blob_key", st.BlobKey,
		"state", string(st.State),
		"error", st.Error,
		"size_bytes", strconv.Itoa(st.SizeBytes),
		"enqueued_at", formatTime(&st.EnqueuedAt),
		"started_at", formatTime(st.StartedAt),
		"finished_at", formatTime(st.FinishedAt),
	}
	return s.client.HSetWithExpire(ctx, StatusKey(st.ID), s.ttl, fields...)
}

func (s *StatusStore) Get(ctx context.Context, id string) (types.JobStatus, error) {
	values, err := s.client.HGetAll(ctx, StatusKey(id))
	if err != nil {
		return types.JobStatus{}, err
	}
	if len(values) == 0 {
		return types.JobStatus{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	st := types.JobStatus{
		ID:         values["id"],
		ReportType: values["report_type"],
		UserID:     values["user_id"],
		Format:     values["format"],
		BlobKey:    values["blob_key"],
		State:      types.JobState(values["state"]),
		Error:      values["error"],
	}
	if v := values["size_bytes"]; v != "" {
		if st.SizeBytes, err = strconv.Atoi(v); err != nil {
			return types.JobStatus{}, fmt.Errorf("job %s: bad size_bytes %q", id, v)
		}
	}
	if t := parseTime(values["enqueued_at"]); t != nil {
		st.EnqueuedAt = *t
	}
	st.StartedAt = parseTime(values["started_at"])
	st.FinishedAt = parseTime(values["finished_at"])
	return st, nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}
