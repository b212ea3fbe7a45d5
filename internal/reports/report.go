// Package reports renders reports in the background and stores the result in a blob store.
//
// A job names a report type, the requesting user, report parameters, an output
// format and the blob key to store under. Workers construct the report, render
// it in the requested format and store the bytes. Failed jobs are not retried.
package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownReport     = errors.New("unknown report type")
	ErrUnsupportedFormat = errors.New("unsupported report format")
	ErrInvalidParams     = errors.New("invalid report parameters")
)

// Report is a constructed report ready to render
type Report interface {
	RenderAs(ctx context.Context, format Format) ([]byte, error)
}

// Factory constructs a report for a user from request parameters
type Factory func(userID string, params map[string]string) (Report, error)

// Registry maps report types to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering the same type twice is an error.
func (r *Registry) Register(reportType string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reportType == "" {
		return fmt.Errorf("report type is required")
	}
	if _, exists := r.factories[reportType]; exists {
		return fmt.Errorf("report type %q already registered", reportType)
	}
	r.factories[reportType] = factory
	return nil
}

// Build constructs a report of reportType
func (r *Registry) Build(reportType, userID string, params map[string]string) (Report, error) {
	r.mu.RLock()
	factory, ok := r.factories[reportType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, reportType)
	}
	return factory(userID, params)
}

// Has reports whether reportType is registered
func (r *Registry) Has(reportType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[reportType]
	return ok
}

// Types returns the registered report types, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
