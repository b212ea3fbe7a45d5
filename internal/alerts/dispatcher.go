package alerts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultQueueSize   = 256
	defaultSendTimeout = 10 * time.Second
)

// Alert outcome labels passed to Recorder
const (
	StatusQueued  = "queued"
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
)

// Dispatcher is a Notifier backed by a bounded queue and one delivery goroutine.
type Dispatcher struct {
	sink        Sink
	queue       chan Alert
	logger      *zap.Logger
	recorder    Recorder
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts a dispatcher delivering to sink. recorder may be nil.
func NewDispatcher(sink Sink, queueSize int, recorder Recorder, logger *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	d := &Dispatcher{
		sink:        sink,
		queue:       make(chan Alert, queueSize),
		logger:      logger,
		recorder:    recorder,
		sendTimeout: defaultSendTimeout,
	}

	d.wg.Add(1)
	go d.run()

	logger.Debug("Alert dispatcher started", zap.Int("queue_size", queueSize))
	return d
}

// Notify queues alert without waiting for delivery.
func (d *Dispatcher) Notify(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.recorder.RecordAlert(StatusDropped)
		return ErrClosed
	}

	select {
	case d.queue <- alert:
		d.recorder.RecordAlert(StatusQueued)
		return nil
	default:
		d.recorder.RecordAlert(StatusDropped)
		d.logger.Warn("Alert queue full, alert dropped",
			zap.String("message", alert.Message),
			zap.Int("queue_size", cap(d.queue)))
		return ErrQueueFull
	}
}

// Pending returns the number of queued, undelivered alerts
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for alert := range d.queue {
		d.deliver(alert)
	}
}

func (d *Dispatcher) deliver(alert Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.sink.Send(ctx, alert); err != nil {
		d.recorder.RecordAlert(StatusFailed)
		d.logger.Error("Failed to deliver alert",
			zap.String("severity", string(alert.Severity)),
			zap.String("message", alert.Message),
			zap.Error(err))
		return
	}
	d.recorder.RecordAlert(StatusSent)
}

// Close stops accepting alerts, delivers everything already queued and closes the sink.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Debug("Alert dispatcher drained")
	return d.sink.Close()
}

var _ Notifier = (*Dispatcher)(nil)
