// Package server exposes the products payload, report jobs and operator
// cache endpoints over fasthttp.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/catalog"
	"github.com/edgecomet/catalog/internal/common/httputil"
	"github.com/edgecomet/catalog/internal/common/requestid"
	"github.com/edgecomet/catalog/internal/reports"
	"github.com/edgecomet/catalog/pkg/types"
)

// Path constants
const (
	PathProducts        = "/api/products"
	PathReports         = "/api/reports"
	PathReportStatus    = "/api/reports/status"
	PathCacheInvalidate = "/internal/cache/invalidate"
	PathCacheEntry      = "/internal/cache/entry"
	PathProductsDirect  = "/internal/products"
	PathHealth          = "/health"
)

const (
	HeaderRequestID    = "X-Request-ID"
	HeaderInternalAuth = "X-Internal-Auth"

	defaultRequestTimeout = 30 * time.Second
)

// ReportRunner is the part of reports.Runner the server uses
type ReportRunner interface {
	Submit(ctx context.Context, req types.ReportRequest) (reports.Job, error)
	Status(ctx context.Context, id string) (types.JobStatus, error)
	QueueDepth() int
}

// HTTPRecorder receives one call per handled request
type HTTPRecorder interface {
	RecordHTTPRequest(endpoint string, statusCode int)
}

// HealthCheck reports whether the cache backend is reachable
type HealthCheck func(ctx context.Context) error

type route struct {
	handler  fasthttp.RequestHandler
	internal bool
}

type Server struct {
	catalog  *catalog.Service
	reports  ReportRunner
	health   HealthCheck
	recorder HTTPRecorder
	authKey  string
	timeout  time.Duration
	logger   *zap.Logger

	routes map[string]map[string]route // path -> method -> route

	server   *fasthttp.Server
	listener net.Listener
}

// NewServer wires the routes. runner, health and recorder may be nil; a nil
// runner disables the report endpoints.
func NewServer(
	catalogService *catalog.Service,
	runner ReportRunner,
	health HealthCheck,
	recorder HTTPRecorder,
	authKey string,
	timeout time.Duration,
	logger *zap.Logger,
) *Server {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	s := &Server{
		catalog:  catalogService,
		reports:  runner,
		health:   health,
		recorder: recorder,
		authKey:  authKey,
		timeout:  timeout,
		logger:   logger,
		routes:   make(map[string]map[string]route),
	}

	s.register(fasthttp.MethodGet, PathProducts, false, s.handleProducts)
	s.register(fasthttp.MethodGet, PathHealth, false, s.handleHealth)
	if runner != nil {
		s.register(fasthttp.MethodPost, PathReports, false, s.handleSubmitReport)
		s.register(fasthttp.MethodGet, PathReportStatus, false, s.handleReportStatus)
	}
	s.register(fasthttp.MethodPost, PathCacheInvalidate, true, s.handleCacheInvalidate)
	s.register(fasthttp.MethodGet, PathCacheEntry, true, s.handleCacheEntry)
	s.register(fasthttp.MethodGet, PathProductsDirect, true, s.handleProductsDirect)

	return s
}

func (s *Server) register(method, path string, internal bool, handler fasthttp.RequestHandler) {
	if s.routes[path] == nil {
		s.routes[path] = make(map[string]route)
	}
	s.routes[path][method] = route{handler: handler, internal: internal}
}

// Start listens on address and serves until Shutdown. It returns once the listener is bound.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.Serve(listener)
	return nil
}

// Serve serves on listener in the background
func (s *Server) Serve(listener net.Listener) {
	s.listener = listener
	s.server = &fasthttp.Server{
		Handler:      s.Handler(),
		Name:         "catalog-service",
		ReadTimeout:  s.timeout,
		WriteTimeout: s.timeout,
	}

	s.logger.Info("HTTP server started", zap.String("address", listener.Addr().String()))

	go func() {
		if err := s.server.Serve(listener); err != nil {
			s.logger.Error("HTTP server stopped with error", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	return s.server.ShutdownWithContext(ctx)
}

// Addr returns the bound address, empty before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the request handler with request id, auth and metrics applied
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		requestID := requestid.Generate(string(ctx.Request.Header.Peek(HeaderRequestID)))
		ctx.Response.Header.Set(HeaderRequestID, requestID)
		ctx.SetUserValue("request_id", requestID)

		path := string(ctx.Path())
		endpoint := "other"
		defer func() {
			if s.recorder != nil {
				s.recorder.RecordHTTPRequest(endpoint, ctx.Response.StatusCode())
			}
		}()

		methods, ok := s.routes[path]
		if !ok {
			httputil.JSONError(ctx, "not found", fasthttp.StatusNotFound)
			return
		}
		endpoint = path

		r, ok := methods[string(ctx.Method())]
		if !ok {
			httputil.JSONError(ctx, "method not allowed", fasthttp.StatusMethodNotAllowed)
			return
		}

		if r.internal && !s.authenticate(ctx) {
			return
		}
		r.handler(ctx)
	}
}

// authenticate validates the X-Internal-Auth header
func (s *Server) authenticate(ctx *fasthttp.RequestCtx) bool {
	authHeader := string(ctx.Request.Header.Peek(HeaderInternalAuth))
	if s.authKey != "" && authHeader == s.authKey {
		return true
	}

	s.logger.Warn("Rejected internal request",
		zap.String("remote_addr", ctx.RemoteAddr().String()),
		zap.String("path", string(ctx.Path())),
		zap.Bool("header_present", authHeader != ""))
	httputil.JSONError(ctx, "unauthorized", fasthttp.StatusUnauthorized)
	return false
}

// requestContext bounds a handler's downstream calls by the server timeout
func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Server) requestLogger(ctx *fasthttp.RequestCtx) *zap.Logger {
	if id, ok := ctx.UserValue("request_id").(string); ok {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}
