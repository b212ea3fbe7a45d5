package reports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/requestid"
	"github.com/edgecomet/catalog/pkg/types"
)

var (
	ErrQueueFull     = errors.New("report queue is full")
	ErrRunnerStopped = errors.New("report runner is stopped")
)

const (
	DefaultQueueSize  = 100
	DefaultJobTimeout = 5 * time.Minute
)

// Job is one queued report render
type Job struct {
	ID         string
	ReportType string
	UserID     string
	Params     map[string]string
	Format     Format
	BlobKey    string
	EnqueuedAt time.Time
}

func (j Job) status(state types.JobState) types.JobStatus {
	return types.JobStatus{
		ID:         j.ID,
		ReportType: j.ReportType,
		UserID:     j.UserID,
		Format:     string(j.Format),
		BlobKey:    j.BlobKey,
		State:      state,
		EnqueuedAt: j.EnqueuedAt,
	}
}

// Recorder receives job outcomes and queue depth
type Recorder interface {
	RecordJob(reportType, status string)
	RecordJobDuration(format string, duration time.Duration)
	UpdateQueueDepth(depth int)
}

type nopRecorder struct{}

func (nopRecorder) RecordJob(string, string)                {}
func (nopRecorder) RecordJobDuration(string, time.Duration) {}
func (nopRecorder) UpdateQueueDepth(int)                    {}

type RunnerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// Runner executes report jobs on a fixed pool of workers.
type Runner struct {
	config   RunnerConfig
	registry *Registry
	blobs    BlobStore
	statuses *StatusStore
	recorder Recorder
	logger   *zap.Logger

	queue chan Job

	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner. recorder may be nil. Call Start to launch workers.
func NewRunner(cfg RunnerConfig, registry *Registry, blobs BlobStore, statuses *StatusStore, recorder Recorder, logger *zap.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		config:   cfg,
		registry: registry,
		blobs:    blobs,
		statuses: statuses,
		recorder: recorder,
		logger:   logger,
		queue:    make(chan Job, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (r *Runner) Start() {
	r.logger.Info("Report runner starting",
		zap.Int("workers", r.config.Workers),
		zap.Int("queue_size", r.config.QueueSize),
		zap.Strings("report_types", r.registry.Types()))

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
}

// Submit validates req, records the job as queued and hands it to the workers.
// A full queue returns the job, already recorded as failed, with ErrQueueFull.
func (r *Runner) Submit(ctx context.Context, req types.ReportRequest) (Job, error) {
	if !r.registry.Has(req.ReportType) {
		return Job{}, fmt.Errorf("%w: %s", ErrUnknownReport, req.ReportType)
	}
	format, err := ParseFormat(req.Format)
	if err != nil {
		return Job{}, err
	}
	if err := ValidateBlobKey(req.BlobKey); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	job := Job{
		ID:         requestid.Generate(req.Reference),
		ReportType: req.ReportType,
		UserID:     req.UserID,
		Params:     req.Params,
		Format:     format,
		BlobKey:    req.BlobKey,
		EnqueuedAt: time.Now().UTC(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		return Job{}, ErrRunnerStopped
	}

	// queued status must land before any worker can record running
	if err := r.statuses.Save(ctx, job.status(types.JobQueued)); err != nil {
		return Job{}, fmt.Errorf("failed to record job status: %w", err)
	}

	select {
	case r.queue <- job:
	default:
		st := job.status(types.JobFailed)
		st.Error = ErrQueueFull.Error()
		now := time.Now().UTC()
		st.FinishedAt = &now
		if err := r.statuses.Save(ctx, st); err != nil {
			r.logger.Warn("Failed to record rejected job", zap.String("job_id", job.ID), zap.Error(err))
		}
		r.recorder.RecordJob(job.ReportType, "rejected")
		return job, ErrQueueFull
	}

	r.recorder.RecordJob(job.ReportType, string(types.JobQueued))
	r.recorder.UpdateQueueDepth(len(r.queue))

	r.logger.Info("Report job queued",
		zap.String("job_id", job.ID),
		zap.String("report_type", job.ReportType),
		zap.String("format", string(job.Format)),
		zap.String("blob_key", job.BlobKey))
	return job, nil
}

func (r *Runner) Status(ctx context.Context, id string) (types.JobStatus, error) {
	if !requestid.Valid(id) {
		return types.JobStatus{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return r.statuses.Get(ctx, id)
}

// QueueDepth returns the number of jobs waiting for a worker
func (r *Runner) QueueDepth() int {
	return len(r.queue)
}

// Shutdown stops accepting jobs and waits for queued jobs to finish.
// When ctx expires first, running jobs are cancelled.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()

	r.logger.Info("Stopping report runner", zap.Int("pending_jobs", len(r.queue)))

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		r.logger.Info("Report runner stopped")
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return fmt.Errorf("report runner shutdown: %w", ctx.Err())
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for job := range r.queue {
		r.recorder.UpdateQueueDepth(len(r.queue))
		r.run(id, job)
	}
}

func (r *Runner) run(workerID int, job Job) {
	logger := r.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID),
		zap.String("report_type", job.ReportType))

	ctx, cancel := context.WithTimeout(r.ctx, r.config.JobTimeout)
	defer cancel()

	started := time.Now().UTC()
	st := job.status(types.JobRunning)
	st.StartedAt = &started
	if err := r.statuses.Save(ctx, st); err != nil {
		logger.Warn("Failed to record job start", zap.Error(err))
	}

	size, err := r.perform(ctx, job)

	finished := time.Now().UTC()
	st.FinishedAt = &finished
	if err != nil {
		st.State = types.JobFailed
		st.Error = err.Error()
		logger.Error("Report job failed", zap.Duration("duration", finished.Sub(started)), zap.Error(err))
	} else {
		st.State = types.JobDone
		st.SizeBytes = size
		r.recorder.RecordJobDuration(string(job.Format), finished.Sub(started))
		logger.Info("Report job completed",
			zap.String("blob_key", job.BlobKey),
			zap.Int("size_bytes", size),
			zap.Duration("duration", finished.Sub(started)))
	}
	r.recorder.RecordJob(job.ReportType, string(st.State))

	// the job context may already be done; the final status must still land
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer saveCancel()
	if err := r.statuses.Save(saveCtx, st); err != nil {
		logger.Error("Failed to record job result", zap.Error(err))
	}
}

// perform constructs the report, renders it and stores the result
func (r *Runner) perform(ctx context.Context, job Job) (int, error) {
	report, err := r.registry.Build(job.ReportType, job.UserID, job.Params)
	if err != nil {
		return 0, fmt.Errorf("build report: %w", err)
	}

	result, err := report.RenderAs(ctx, job.Format)
	if err != nil {
		return 0, fmt.Errorf("render %s: %w", job.Format, err)
	}

	if err := r.blobs.Store(ctx, job.BlobKey, result); err != nil {
		return 0, fmt.Errorf("store blob: %w", err)
	}
	return len(result), nil
}
