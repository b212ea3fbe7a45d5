package server

import (
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/catalog"
	"github.com/edgecomet/catalog/internal/common/httputil"
	"github.com/edgecomet/catalog/internal/reports"
	"github.com/edgecomet/catalog/pkg/types"
)

func renderContextFromQuery(ctx *fasthttp.RequestCtx) catalog.RenderContext {
	args := ctx.QueryArgs()
	return catalog.RenderContext{
		DistributorID: string(args.Peek("distributor_id")),
		OrderCycleID:  string(args.Peek("order_cycle_id")),
	}
}

func (s *Server) handleProducts(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := s.requestContext()
	defer cancel()

	rc := renderContextFromQuery(ctx)
	payload, err := s.catalog.ProductsJSON(reqCtx, rc)
	s.writeProducts(ctx, rc, payload, err)
}

// handleProductsDirect renders without reading or writing the cache
func (s *Server) handleProductsDirect(ctx *fasthttp.RequestCtx) {
	rc := renderContextFromQuery(ctx)
	if !rc.Valid() {
		httputil.JSONError(ctx, "distributor_id and order_cycle_id must be positive integers", fasthttp.StatusBadRequest)
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	payload, err := s.catalog.For(rc).UncachedProductsJSON(reqCtx)
	s.writeProducts(ctx, rc, payload, err)
}

func (s *Server) writeProducts(ctx *fasthttp.RequestCtx, rc catalog.RenderContext, payload []byte, err error) {
	if err != nil {
		if errors.Is(err, catalog.ErrNoDataAvailable) {
			httputil.JSONError(ctx, catalog.ErrNoDataAvailable.Error(), fasthttp.StatusNotFound)
			return
		}
		s.requestLogger(ctx).Error("Products request failed",
			zap.String("distributor_id", rc.DistributorID),
			zap.String("order_cycle_id", rc.OrderCycleID),
			zap.Error(err))
		httputil.JSONError(ctx, "internal error", fasthttp.StatusInternalServerError)
		return
	}

	httputil.RawJSON(ctx, payload)
}

func (s *Server) handleSubmitReport(ctx *fasthttp.RequestCtx) {
	var req types.ReportRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		httputil.JSONError(ctx, err.Error(), fasthttp.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		httputil.JSONError(ctx, "user_id is required", fasthttp.StatusBadRequest)
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	job, err := s.reports.Submit(reqCtx, req)
	switch {
	case err == nil:
		httputil.JSONData(ctx, types.ReportAcceptedData{JobID: job.ID, Status: types.JobQueued}, fasthttp.StatusAccepted)
	case errors.Is(err, reports.ErrQueueFull), errors.Is(err, reports.ErrRunnerStopped):
		httputil.JSONError(ctx, err.Error(), fasthttp.StatusServiceUnavailable)
	case errors.Is(err, reports.ErrUnknownReport),
		errors.Is(err, reports.ErrUnsupportedFormat),
		errors.Is(err, reports.ErrInvalidParams):
		httputil.JSONError(ctx, err.Error(), fasthttp.StatusBadRequest)
	default:
		s.requestLogger(ctx).Error("Report submit failed",
			zap.String("report_type", req.ReportType),
			zap.Error(err))
		httputil.JSONError(ctx, "internal error", fasthttp.StatusInternalServerError)
	}
}

func (s *Server) handleReportStatus(ctx *fasthttp.RequestCtx) {
	id := string(ctx.QueryArgs().Peek("id"))
	if id == "" {
		httputil.JSONError(ctx, "id is required", fasthttp.StatusBadRequest)
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	status, err := s.reports.Status(reqCtx, id)
	if err != nil {
		if errors.Is(err, reports.ErrJobNotFound) {
			httputil.JSONError(ctx, "job not found", fasthttp.StatusNotFound)
			return
		}
		s.requestLogger(ctx).Error("Report status lookup failed", zap.String("job_id", id), zap.Error(err))
		httputil.JSONError(ctx, "internal error", fasthttp.StatusInternalServerError)
		return
	}

	httputil.JSONData(ctx, status, fasthttp.StatusOK)
}

func (s *Server) handleCacheInvalidate(ctx *fasthttp.RequestCtx) {
	var req types.CacheKeyRequest
	if err := httputil.DecodeJSON(ctx, &req); err != nil {
		httputil.JSONError(ctx, err.Error(), fasthttp.StatusBadRequest)
		return
	}

	rc := catalog.RenderContext{DistributorID: req.DistributorID, OrderCycleID: req.OrderCycleID}
	if !rc.Valid() {
		httputil.JSONError(ctx, "distributor_id and order_cycle_id must be positive integers", fasthttp.StatusBadRequest)
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	if err := s.catalog.Invalidate(reqCtx, rc); err != nil {
		s.requestLogger(ctx).Error("Cache invalidation failed", zap.String("cache_key", rc.CacheKey()), zap.Error(err))
		httputil.JSONError(ctx, "internal error", fasthttp.StatusInternalServerError)
		return
	}

	httputil.JSONSuccess(ctx, "cache entry invalidated", fasthttp.StatusOK)
}

func (s *Server) handleCacheEntry(ctx *fasthttp.RequestCtx) {
	rc := renderContextFromQuery(ctx)
	if !rc.Valid() {
		httputil.JSONError(ctx, "distributor_id and order_cycle_id must be positive integers", fasthttp.StatusBadRequest)
		return
	}

	reqCtx, cancel := s.requestContext()
	defer cancel()

	entry, err := s.catalog.Entry(reqCtx, rc)
	if err != nil {
		s.requestLogger(ctx).Error("Cache entry lookup failed", zap.String("cache_key", rc.CacheKey()), zap.Error(err))
		httputil.JSONError(ctx, "internal error", fasthttp.StatusInternalServerError)
		return
	}

	httputil.JSONData(ctx, types.CacheEntryData{
		Key:       rc.CacheKey(),
		State:     entry.State.String(),
		SizeBytes: len(entry.Payload),
	}, fasthttp.StatusOK)
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	data := types.HealthData{
		Status:      "ok",
		Environment: s.catalog.Environment().Name(),
		Cache:       "ok",
	}
	if s.reports != nil {
		data.ReportQueueDepth = s.reports.QueueDepth()
	}

	if s.health != nil {
		reqCtx, cancel := s.requestContext()
		defer cancel()
		if err := s.health(reqCtx); err != nil {
			s.requestLogger(ctx).Warn("Health check failed", zap.Error(err))
			data.Status = "degraded"
			data.Cache = "unavailable"
			httputil.JSONResponse(ctx, false, "cache unavailable", data, fasthttp.StatusServiceUnavailable)
			return
		}
	}

	httputil.JSONData(ctx, data, fasthttp.StatusOK)
}
