package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/alerts"
	"github.com/edgecomet/catalog/internal/cache"
	"github.com/edgecomet/catalog/internal/catalog"
	"github.com/edgecomet/catalog/internal/environment"
)

type countingRecorder struct {
	calls map[string][]int
}

func (r *countingRecorder) RecordHTTPRequest(endpoint string, statusCode int) {
	if r.calls == nil {
		r.calls = map[string][]int{}
	}
	r.calls[endpoint] = append(r.calls[endpoint], statusCode)
}

func newTestServer(t *testing.T, recorder HTTPRecorder) *Server {
	t.Helper()
	renderer := catalog.RendererFunc(func(_ context.Context, rc catalog.RenderContext) ([]byte, error) {
		return []byte(`[{"id":1}]`), nil
	})
	service := catalog.NewService(renderer, cache.NewMemoryStore(cache.NewCodec("")),
		environment.Fixed{Production: true, Label: "production"}, alerts.NopNotifier{}, nil, zap.NewNop())
	return NewServer(service, nil, nil, recorder, "secret", 0, zap.NewNop())
}

func doRequest(s *Server, method, uri string, headers map[string]string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	for k, v := range headers {
		ctx.Request.Header.Set(k, v)
	}
	s.Handler()(ctx)
	return ctx
}

func TestRouting(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		method     string
		uri        string
		headers    map[string]string
		wantStatus int
	}{
		{"products", "GET", "/api/products?distributor_id=1&order_cycle_id=2", nil, fasthttp.StatusOK},
		{"unknown path", "GET", "/api/orders", nil, fasthttp.StatusNotFound},
		{"wrong method", "DELETE", "/api/products", nil, fasthttp.StatusMethodNotAllowed},
		{"reports disabled", "POST", "/api/reports", nil, fasthttp.StatusNotFound},
		{"internal without auth", "GET", "/internal/cache/entry?distributor_id=1&order_cycle_id=2", nil, fasthttp.StatusUnauthorized},
		{"internal wrong auth", "GET", "/internal/cache/entry?distributor_id=1&order_cycle_id=2", map[string]string{HeaderInternalAuth: "nope"}, fasthttp.StatusUnauthorized},
		{"internal with auth", "GET", "/internal/cache/entry?distributor_id=1&order_cycle_id=2", map[string]string{HeaderInternalAuth: "secret"}, fasthttp.StatusOK},
		{"direct products without auth", "GET", "/internal/products?distributor_id=1&order_cycle_id=2", nil, fasthttp.StatusUnauthorized},
		{"direct products with auth", "GET", "/internal/products?distributor_id=1&order_cycle_id=2", map[string]string{HeaderInternalAuth: "secret"}, fasthttp.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := doRequest(s, tt.method, tt.uri, tt.headers)
			assert.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
		})
	}
}

func TestEmptyAuthKeyRejectsEverything(t *testing.T) {
	s := newTestServer(t, nil)
	s.authKey = ""

	ctx := doRequest(s, "GET", "/internal/cache/entry?distributor_id=1&order_cycle_id=2", map[string]string{HeaderInternalAuth: ""})
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, nil)

	ctx := doRequest(s, "GET", "/health", map[string]string{HeaderRequestID: "checkout"})
	id := string(ctx.Response.Header.Peek(HeaderRequestID))
	assert.Regexp(t, `^[0-9a-f]{5}-checkout$`, id)

	ctx = doRequest(s, "GET", "/health", nil)
	assert.Len(t, string(ctx.Response.Header.Peek(HeaderRequestID)), 36)
}

func TestHTTPMetricsUseRoutePaths(t *testing.T) {
	recorder := &countingRecorder{}
	s := newTestServer(t, recorder)

	doRequest(s, "GET", "/health", nil)
	doRequest(s, "GET", "/does/not/exist", nil)
	doRequest(s, "GET", "/internal/cache/entry", nil)

	assert.Equal(t, []int{200}, recorder.calls[PathHealth])
	assert.Equal(t, []int{404}, recorder.calls["other"])
	assert.Equal(t, []int{401}, recorder.calls[PathCacheEntry])
}

func TestHealthReportsCacheFailure(t *testing.T) {
	s := newTestServer(t, nil)
	s.health = func(context.Context) error { return assert.AnError }

	ctx := doRequest(s, "GET", "/health", nil)
	require.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
			Cache  string `json:"cache"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "degraded", body.Data.Status)
	assert.Equal(t, "unavailable", body.Data.Cache)
}
