package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
	"github.com/edgecomet/catalog/internal/common/redis"
	"github.com/edgecomet/catalog/pkg/types"
)

type fakeJobRecorder struct {
	mu        sync.Mutex
	jobs      map[string]int
	durations map[string]int
	depth     int
}

func newFakeJobRecorder() *fakeJobRecorder {
	return &fakeJobRecorder{jobs: map[string]int{}, durations: map[string]int{}}
}

func (r *fakeJobRecorder) RecordJob(reportType, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[reportType+"/"+status]++
}

func (r *fakeJobRecorder) RecordJobDuration(format string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[format]++
}

func (r *fakeJobRecorder) UpdateQueueDepth(depth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.depth = depth
}

func (r *fakeJobRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[key]
}

// blockingReport waits for release or context cancellation
type blockingReport struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingReport) RenderAs(ctx context.Context, _ Format) ([]byte, error) {
	close(r.started)
	select {
	case <-r.release:
		return []byte("late"), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func setupStatusStore(t *testing.T, ttl time.Duration) (*StatusStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient(&configtypes.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewStatusStore(client, ttl), mr
}

type runnerFixture struct {
	runner   *Runner
	registry *Registry
	blobs    *FilesystemBlobStore
	recorder *fakeJobRecorder
	mr       *miniredis.Miniredis
}

func setupRunner(t *testing.T, cfg RunnerConfig) *runnerFixture {
	t.Helper()
	statuses, mr := setupStatusStore(t, time.Hour)

	blobs, err := NewFilesystemBlobStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	registry := NewRegistry()
	require.NoError(t, registry.Register("static", staticFactory("body")))
	require.NoError(t, registry.Register("broken", func(string, map[string]string) (Report, error) {
		return staticReport{err: errors.New("query failed")}, nil
	}))
	require.NoError(t, registry.Register("invalid", func(string, map[string]string) (Report, error) {
		return nil, ErrInvalidParams
	}))

	recorder := newFakeJobRecorder()
	return &runnerFixture{
		runner:   NewRunner(cfg, registry, blobs, statuses, recorder, zap.NewNop()),
		registry: registry,
		blobs:    blobs,
		recorder: recorder,
		mr:       mr,
	}
}

func waitForState(t *testing.T, runner *Runner, id string) types.JobStatus {
	t.Helper()
	var st types.JobStatus
	require.Eventually(t, func() bool {
		var err error
		st, err = runner.Status(context.Background(), id)
		return err == nil && st.State.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return st
}

func TestRunner_RendersIntoBlobStore(t *testing.T) {
	f := setupRunner(t, RunnerConfig{Workers: 2})
	f.runner.Start()
	t.Cleanup(func() { f.runner.Shutdown(context.Background()) })

	job, err := f.runner.Submit(context.Background(), types.ReportRequest{
		ReportType: "static",
		UserID:     "user-7",
		Format:     "csv",
		BlobKey:    "exports/user-7/static.csv",
		Reference:  "nightly",
	})
	require.NoError(t, err)
	assert.Contains(t, job.ID, "-nightly")
	assert.Equal(t, FormatCSV, job.Format)

	st := waitForState(t, f.runner, job.ID)
	assert.Equal(t, types.JobDone, st.State)
	assert.Equal(t, "user-7", st.UserID)
	assert.Equal(t, len("csv:body"), st.SizeBytes)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.StartedAt)
	require.NotNil(t, st.FinishedAt)
	assert.False(t, st.FinishedAt.Before(*st.StartedAt))

	data, err := f.blobs.Fetch(context.Background(), "exports/user-7/static.csv")
	require.NoError(t, err)
	assert.Equal(t, "csv:body", string(data))

	assert.Equal(t, 1, f.recorder.count("static/queued"))
	assert.Equal(t, 1, f.recorder.count("static/done"))
}

func TestRunner_FailedRenderStoresNothing(t *testing.T) {
	f := setupRunner(t, RunnerConfig{Workers: 1})
	f.runner.Start()
	t.Cleanup(func() { f.runner.Shutdown(context.Background()) })

	job, err := f.runner.Submit(context.Background(), types.ReportRequest{
		ReportType: "broken", Format: "json", BlobKey: "broken.json",
	})
	require.NoError(t, err)

	st := waitForState(t, f.runner, job.ID)
	assert.Equal(t, types.JobFailed, st.State)
	assert.Contains(t, st.Error, "query failed")

	_, err = f.blobs.Fetch(context.Background(), "broken.json")
	assert.True(t, errors.Is(err, ErrBlobNotFound))
	assert.Equal(t, 1, f.recorder.count("broken/failed"))
}

func TestRunner_FactoryErrorFailsJob(t *testing.T) {
	f := setupRunner(t, RunnerConfig{Workers: 1})
	f.runner.Start()
	t.Cleanup(func() { f.runner.Shutdown(context.Background()) })

	job, err := f.runner.Submit(context.Background(), types.ReportRequest{
		ReportType: "invalid", Format: "csv", BlobKey: "x.csv",
	})
	require.NoError(t, err)

	st := waitForState(t, f.runner, job.ID)
	assert.Equal(t, types.JobFailed, st.State)
	assert.Contains(t, st.Error, "build report")
}

func TestRunner_SubmitValidation(t *testing.T) {
	f := setupRunner(t, RunnerConfig{Workers: 1})

	tests := []struct {
		name    string
		req     types.ReportRequest
		wantErr error
	}{
		{"unknown type", types.ReportRequest{ReportType: "orders", Format: "csv", BlobKey: "a.csv"}, ErrUnknownReport},
		{"bad format", types.ReportRequest{ReportType: "static", Format: "xlsx", BlobKey: "a.xlsx"}, ErrUnsupportedFormat},
		{"missing blob key", types.ReportRequest{ReportType: "static", Format: "csv"}, ErrInvalidParams},
		{"escaping blob key", types.ReportRequest{ReportType: "static", Format: "csv", BlobKey: "../a.csv"}, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.runner.Submit(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}
	assert.Equal(t, 0, f.runner.QueueDepth())
}

func TestRunner_QueueFull(t *testing.T) {
	// not started, so nothing drains the queue
	f := setupRunner(t, RunnerConfig{Workers: 1, QueueSize: 1})
	req := types.ReportRequest{ReportType: "static", Format: "csv", BlobKey: "a.csv"}

	first, err := f.runner.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, f.runner.QueueDepth())

	rejected, err := f.runner.Submit(context.Background(), req)
	assert.True(t, errors.Is(err, ErrQueueFull))
	require.NotEmpty(t, rejected.ID)

	st, err := f.runner.Status(context.Background(), rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, st.State)
	assert.Equal(t, ErrQueueFull.Error(), st.Error)

	st, err = f.runner.Status(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobQueued, st.State)
	assert.Equal(t, 1, f.recorder.count("static/rejected"))
}

func TestRunner_StatusUnknown(t *testing.T) {
	f := setupRunner(t, RunnerConfig{Workers: 1})

	_, err := f.runner.Status(context.Background(), "abcde-missing")
	assert.True(t, errors.Is(err, ErrJobNotFound))

	_, err = f.runner.Status(context.Background(), "bad id!")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestRunner_ShutdownDrainsQueue(t *testing.T) {
	f := setupRunner(t, RunnerConfig{Workers: 1, QueueSize: 10})

	var ids []string
	for i := 0; i < 5; i++ {
		job, err := f.runner.Submit(context.Background(), types.ReportRequest{
			ReportType: "static", Format: "html", BlobKey: "drain.html",
		})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	f.runner.Start()
	require.NoError(t, f.runner.Shutdown(context.Background()))

	for _, id := range ids {
		st, err := f.runner.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, types.JobDone, st.State)
	}

	_, err := f.runner.Submit(context.Background(), types.ReportRequest{
		ReportType: "static", Format: "csv", BlobKey: "late.csv",
	})
	assert.True(t, errors.Is(err, ErrRunnerStopped))

	// second shutdown is a no-op
	assert.NoError(t, f.runner.Shutdown(context.Background()))
}

func TestRunner_ShutdownTimeoutCancelsRunningJob(t *testing.T) {
	f := setupRunner(t, RunnerConfig{Workers: 1})
	blocking := &blockingReport{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, f.registry.Register("slow", func(string, map[string]string) (Report, error) {
		return blocking, nil
	}))

	f.runner.Start()
	job, err := f.runner.Submit(context.Background(), types.ReportRequest{
		ReportType: "slow", Format: "csv", BlobKey: "slow.csv",
	})
	require.NoError(t, err)
	<-blocking.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = f.runner.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	st, err := f.runner.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, st.State)
	assert.Contains(t, st.Error, "context canceled")
}

func TestRunner_JobTimeout(t *testing.T) {
	f := setupRunner(t, RunnerConfig{Workers: 1, JobTimeout: 50 * time.Millisecond})
	blocking := &blockingReport{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, f.registry.Register("slow", func(string, map[string]string) (Report, error) {
		return blocking, nil
	}))

	f.runner.Start()
	t.Cleanup(func() { f.runner.Shutdown(context.Background()) })

	job, err := f.runner.Submit(context.Background(), types.ReportRequest{
		ReportType: "slow", Format: "csv", BlobKey: "slow.csv",
	})
	require.NoError(t, err)

	st := waitForState(t, f.runner, job.ID)
	assert.Equal(t, types.JobFailed, st.State)
	assert.Contains(t, st.Error, "deadline exceeded")
}
