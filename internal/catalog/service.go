package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/alerts"
	"github.com/edgecomet/catalog/internal/cache"
	"github.com/edgecomet/catalog/internal/environment"
)

// Service holds the process-wide collaborators and hands out per-context renderers.
type Service struct {
	renderer   Renderer
	store      cache.Store
	classifier environment.Classifier
	notifier   alerts.Notifier
	recorder   Recorder
	logger     *zap.Logger
}

func NewService(
	renderer Renderer,
	store cache.Store,
	classifier environment.Classifier,
	notifier alerts.Notifier,
	recorder Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		renderer:   renderer,
		store:      store,
		classifier: classifier,
		notifier:   notifier,
		recorder:   recorder,
		logger:     logger,
	}
}

// For returns a CachedRenderer bound to rc
func (s *Service) For(rc RenderContext) *CachedRenderer {
	return NewCachedRenderer(rc, s.renderer, s.store, s.classifier, s.notifier, s.recorder, s.logger)
}

// ProductsJSON is shorthand for For(rc).ProductsJSON(ctx)
func (s *Service) ProductsJSON(ctx context.Context, rc RenderContext) ([]byte, error) {
	return s.For(rc).ProductsJSON(ctx)
}

// Entry reads the cached entry for rc without rendering
func (s *Service) Entry(ctx context.Context, rc RenderContext) (cache.Entry, error) {
	if !rc.Valid() {
		return cache.Entry{}, fmt.Errorf("distributor_id and order_cycle_id must be positive integers")
	}
	return s.store.Read(ctx, rc.CacheKey())
}

// Invalidate deletes the cached entry for rc, returning the key to the absent state.
func (s *Service) Invalidate(ctx context.Context, rc RenderContext) error {
	if !rc.Valid() {
		return fmt.Errorf("distributor_id and order_cycle_id must be positive integers")
	}

	key := rc.CacheKey()
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("products cache delete failed: %w", err)
	}

	s.logger.Info("Products cache entry invalidated", zap.String("cache_key", key))
	return nil
}

// Environment returns the classifier the service was built with
func (s *Service) Environment() environment.Classifier {
	return s.classifier
}
