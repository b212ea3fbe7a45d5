package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/alerts"
	"github.com/edgecomet/catalog/internal/cache"
	"github.com/edgecomet/catalog/internal/environment"
)

// Lookup outcomes passed to Recorder
const (
	LookupBypass         = "bypass"
	LookupInvalidContext = "invalid_context"
	LookupHit            = "hit"
	LookupNegativeHit    = "negative_hit"
	LookupMiss           = "miss"
)

// Render statuses passed to Recorder
const (
	RenderSuccess = "success"
	RenderNoData  = "no_data"
	RenderError   = "error"
)

// Recorder receives cache and render outcomes
type Recorder interface {
	RecordLookup(outcome string)
	RecordRender(status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordLookup(string)                {}
func (nopRecorder) RecordRender(string, time.Duration) {}

// CachedRenderer fronts a Renderer with the products cache.
//
// Outside production every call goes straight to the renderer. In production
// and staging the result of the first render for a context is stored,
// including the "no data" outcome, and replayed on later calls until the key
// is deleted. Contexts with malformed ids never reach the store.
// A freshly computed "no data" result raises one alert when the environment
// is monitored (production or staging).
//
// CachedRenderer holds no mutable state and is safe for concurrent use.
// Concurrent misses on one key may both render; the last write wins.
type CachedRenderer struct {
	rc         RenderContext
	renderer   Renderer
	store      cache.Store
	classifier environment.Classifier
	notifier   alerts.Notifier
	recorder   Recorder
	logger     *zap.Logger
}

// NewCachedRenderer binds the collaborators to one render context. recorder may be nil.
func NewCachedRenderer(
	rc RenderContext,
	renderer Renderer,
	store cache.Store,
	classifier environment.Classifier,
	notifier alerts.Notifier,
	recorder Recorder,
	logger *zap.Logger,
) *CachedRenderer {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &CachedRenderer{
		rc:         rc,
		renderer:   renderer,
		store:      store,
		classifier: classifier,
		notifier:   notifier,
		recorder:   recorder,
		logger:     logger,
	}
}

// ProductsJSON returns the products payload for the bound context.
func (r *CachedRenderer) ProductsJSON(ctx context.Context) ([]byte, error) {
	if !r.classifier.IsProduction() {
		r.recorder.RecordLookup(LookupBypass)
		return r.UncachedProductsJSON(ctx)
	}

	if !r.rc.Valid() {
		r.recorder.RecordLookup(LookupInvalidContext)
		return nil, ErrNoDataAvailable
	}

	key := r.rc.CacheKey()

	entry, err := r.store.Read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("products cache read failed: %w", err)
	}

	switch entry.State {
	case cache.Populated:
		r.recorder.RecordLookup(LookupHit)
		return entry.Payload, nil
	case cache.Negative:
		r.recorder.RecordLookup(LookupNegativeHit)
		return nil, ErrNoDataAvailable
	}

	r.recorder.RecordLookup(LookupMiss)
	r.logger.Warn("Products cache miss",
		zap.String("cache_key", key),
		zap.String("distributor_id", r.rc.DistributorID),
		zap.String("order_cycle_id", r.rc.OrderCycleID))

	return r.populate(ctx, key)
}

// UncachedProductsJSON renders without touching the cache or alerting.
func (r *CachedRenderer) UncachedProductsJSON(ctx context.Context) ([]byte, error) {
	start := time.Now()
	payload, err := r.renderer.Render(ctx, r.rc)
	r.recorder.RecordRender(renderStatus(err), time.Since(start))
	return payload, err
}

func (r *CachedRenderer) populate(ctx context.Context, key string) ([]byte, error) {
	payload, err := r.UncachedProductsJSON(ctx)

	switch {
	case err == nil:
		if err := r.store.Write(ctx, key, cache.PopulatedEntry(payload)); err != nil {
			return nil, fmt.Errorf("products cache write failed: %w", err)
		}
		return payload, nil

	case errors.Is(err, ErrNoDataAvailable):
		// marker first so a crash after alerting still leaves the negative entry
		if err := r.store.Write(ctx, key, cache.NegativeEntry()); err != nil {
			return nil, fmt.Errorf("products cache negative write failed: %w", err)
		}
		if err := r.alertNoData(ctx, key); err != nil {
			return nil, err
		}
		return nil, ErrNoDataAvailable

	default:
		return nil, err
	}
}

func (r *CachedRenderer) alertNoData(ctx context.Context, key string) error {
	if !environment.Monitored(r.classifier) {
		return nil
	}

	alert := alerts.New(alerts.SeverityWarning,
		fmt.Sprintf("No products available (distributor %s, order cycle %s)", r.rc.DistributorID, r.rc.OrderCycleID),
		map[string]string{
			"distributor_id": r.rc.DistributorID,
			"order_cycle_id": r.rc.OrderCycleID,
			"cache_key":      key,
			"environment":    r.classifier.Name(),
		})

	// the marker is already written, so a cancelled request must not drop the alert
	if err := r.notifier.Notify(context.WithoutCancel(ctx), alert); err != nil {
		r.logger.Error("Failed to queue no-products alert",
			zap.String("cache_key", key),
			zap.Error(err))
		return fmt.Errorf("no-products alert failed: %w", err)
	}
	return nil
}

func renderStatus(err error) string {
	switch {
	case err == nil:
		return RenderSuccess
	case errors.Is(err, ErrNoDataAvailable):
		return RenderNoData
	default:
		return RenderError
	}
}
