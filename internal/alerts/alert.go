// Package alerts delivers operational alerts to external sinks.
//
// Callers hand alerts to a Notifier and continue; delivery happens in the
// background and failures are logged, never returned to the caller.
package alerts

import (
	"context"
	"errors"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

var (
	// ErrQueueFull is returned by Notify when the delivery queue has no room
	ErrQueueFull = errors.New("alert queue is full")
	// ErrClosed is returned by Notify after the dispatcher has been closed
	ErrClosed = errors.New("alert dispatcher is closed")
)

// Alert is a single operational notification.
type Alert struct {
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// New builds an alert stamped with the current UTC time
func New(severity Severity, message string, context map[string]string) Alert {
	return Alert{
		Severity:  severity,
		Message:   message,
		Context:   context,
		CreatedAt: time.Now().UTC(),
	}
}

// Notifier accepts alerts for delivery. A nil error means the alert is queued.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Sink delivers alerts to one backend.
type Sink interface {
	Send(ctx context.Context, alert Alert) error
	Close() error
}

// Recorder receives delivery outcomes (queued, sent, failed, dropped)
type Recorder interface {
	RecordAlert(status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAlert(string) {}

// NopNotifier drops every alert.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Alert) error { return nil }
