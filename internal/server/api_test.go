package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/alerts"
	"github.com/edgecomet/catalog/internal/cache"
	"github.com/edgecomet/catalog/internal/catalog"
	"github.com/edgecomet/catalog/internal/catalog/sqlsource"
	"github.com/edgecomet/catalog/internal/common/configtypes"
	"github.com/edgecomet/catalog/internal/common/httputil"
	"github.com/edgecomet/catalog/internal/common/redis"
	"github.com/edgecomet/catalog/internal/environment"
	"github.com/edgecomet/catalog/internal/reports"
	"github.com/edgecomet/catalog/internal/server"
	"github.com/edgecomet/catalog/pkg/types"
)

const authKey = "operator-key"

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alerts.Alert
}

func (n *recordingNotifier) Notify(_ context.Context, a alerts.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

// stubRenderer serves fixed payloads per distributor and counts renders
type stubRenderer struct {
	renders  atomic.Int32
	payloads map[string]string
	failWith error
}

func (r *stubRenderer) Render(_ context.Context, rc catalog.RenderContext) ([]byte, error) {
	r.renders.Add(1)
	if r.failWith != nil {
		return nil, r.failWith
	}
	payload, ok := r.payloads[rc.DistributorID]
	if !ok {
		return nil, catalog.ErrNoDataAvailable
	}
	return []byte(payload), nil
}

type response struct {
	status      int
	body        []byte
	contentType string
	etag        string
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (r response) envelope() apiResponse {
	var out apiResponse
	Expect(json.Unmarshal(r.body, &out)).To(Succeed())
	return out
}

var _ = Describe("Catalog HTTP API", func() {
	var (
		ln       *fasthttputil.InmemoryListener
		client   *fasthttp.Client
		srv      *server.Server
		renderer *stubRenderer
		notifier *recordingNotifier
		store    *cache.MemoryStore
		runner   *reports.Runner
		blobs    *reports.FilesystemBlobStore
		mr       *miniredis.Miniredis
		blobDir  string
	)

	do := func(method, uri string, body []byte, headers map[string]string) response {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.Header.SetMethod(method)
		req.SetRequestURI("http://catalog.test" + uri)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if body != nil {
			req.Header.SetContentType("application/json")
			req.SetBody(body)
		}

		Expect(client.DoTimeout(req, resp, 5*time.Second)).To(Succeed())

		return response{
			status:      resp.StatusCode(),
			body:        append([]byte(nil), resp.Body()...),
			contentType: string(resp.Header.ContentType()),
			etag:        string(resp.Header.Peek(fasthttp.HeaderETag)),
		}
	}

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		redisClient, err := redis.NewClient(&configtypes.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		renderer = &stubRenderer{payloads: map[string]string{"123": `[{"id":1,"name":"Apples"}]`}}
		notifier = &recordingNotifier{}
		store = cache.NewMemoryStore(cache.NewCodec(configtypes.CompressionSnappy))

		service := catalog.NewService(renderer, store,
			environment.Fixed{Production: true, Label: "production"}, notifier, nil, zap.NewNop())

		blobDir, err = os.MkdirTemp("", "catalog-blobs-")
		Expect(err).NotTo(HaveOccurred())
		blobs, err = reports.NewFilesystemBlobStore(blobDir, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		registry := reports.NewRegistry()
		Expect(registry.Register(reports.ProductsReportType, reports.NewProductsFactory(productsFromRenderer{}, nil))).To(Succeed())

		runner = reports.NewRunner(reports.RunnerConfig{Workers: 2, QueueSize: 8}, registry, blobs,
			reports.NewStatusStore(redisClient, time.Hour), nil, zap.NewNop())
		runner.Start()

		srv = server.NewServer(service, runner, redisClient.HealthCheck, nil, authKey, 5*time.Second, zap.NewNop())
		ln = fasthttputil.NewInmemoryListener()
		srv.Serve(ln)

		client = &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}

		DeferCleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(srv.Shutdown(ctx)).To(Succeed())
			Expect(runner.Shutdown(ctx)).To(Succeed())
			redisClient.Close()
			mr.Close()
			os.RemoveAll(blobDir)
		})
	})

	Describe("GET /api/products", func() {
		It("renders once and serves later requests from the cache", func() {
			first := do("GET", "/api/products?distributor_id=123&order_cycle_id=456", nil, nil)
			Expect(first.status).To(Equal(fasthttp.StatusOK))
			Expect(string(first.body)).To(Equal(`[{"id":1,"name":"Apples"}]`))
			Expect(first.contentType).To(Equal("application/json"))

			second := do("GET", "/api/products?distributor_id=123&order_cycle_id=456", nil, nil)
			Expect(second.body).To(Equal(first.body))
			Expect(renderer.renders.Load()).To(Equal(int32(1)))
		})

		It("answers 304 when the ETag matches", func() {
			first := do("GET", "/api/products?distributor_id=123&order_cycle_id=456", nil, nil)
			etag := first.etag
			Expect(etag).To(Equal(httputil.ETag(first.body)))

			again := do("GET", "/api/products?distributor_id=123&order_cycle_id=456", nil,
				map[string]string{fasthttp.HeaderIfNoneMatch: etag})
			Expect(again.status).To(Equal(fasthttp.StatusNotModified))
			Expect(again.body).To(BeEmpty())
		})

		It("returns 404 for an empty distribution, alerts once and caches the outcome", func() {
			for i := 0; i < 3; i++ {
				resp := do("GET", "/api/products?distributor_id=999&order_cycle_id=1", nil, nil)
				Expect(resp.status).To(Equal(fasthttp.StatusNotFound))
				env := resp.envelope()
				Expect(env.Success).To(BeFalse())
				Expect(env.Message).To(Equal("no products available"))
			}

			Expect(renderer.renders.Load()).To(Equal(int32(1)))
			Expect(notifier.count()).To(Equal(1))

			entry, err := store.Read(context.Background(), "products-json-999-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.State).To(Equal(cache.Negative))
		})

		It("returns 404 without rendering when an id is missing", func() {
			resp := do("GET", "/api/products?distributor_id=123", nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusNotFound))
			Expect(renderer.renders.Load()).To(BeZero())
			Expect(store.Len()).To(BeZero())
		})

		It("returns 404 without rendering or caching for malformed ids", func() {
			for i := 0; i < 20; i++ {
				resp := do("GET", fmt.Sprintf("/api/products?distributor_id=x%d&order_cycle_id=1", i), nil, nil)
				Expect(resp.status).To(Equal(fasthttp.StatusNotFound))
			}
			resp := do("GET", "/api/products?distributor_id=1-2&order_cycle_id=3", nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusNotFound))

			Expect(renderer.renders.Load()).To(BeZero())
			Expect(store.Len()).To(BeZero())
			Expect(notifier.count()).To(BeZero())
		})

		It("returns 500 and caches nothing when rendering fails", func() {
			renderer.failWith = errors.New("database unreachable")

			resp := do("GET", "/api/products?distributor_id=123&order_cycle_id=456", nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusInternalServerError))
			Expect(resp.envelope().Message).To(Equal("internal error"))
			Expect(store.Len()).To(BeZero())
			Expect(notifier.count()).To(BeZero())
		})
	})

	Describe("internal cache endpoints", func() {
		auth := map[string]string{server.HeaderInternalAuth: authKey}

		It("reports entry state and re-renders after invalidation", func() {
			do("GET", "/api/products?distributor_id=999&order_cycle_id=1", nil, nil)

			resp := do("GET", "/internal/cache/entry?distributor_id=999&order_cycle_id=1", nil, auth)
			Expect(resp.status).To(Equal(fasthttp.StatusOK))
			var entry types.CacheEntryData
			Expect(json.Unmarshal(resp.envelope().Data, &entry)).To(Succeed())
			Expect(entry).To(Equal(types.CacheEntryData{Key: "products-json-999-1", State: "negative"}))

			body, _ := json.Marshal(types.CacheKeyRequest{DistributorID: "999", OrderCycleID: "1"})
			resp = do("POST", "/internal/cache/invalidate", body, auth)
			Expect(resp.status).To(Equal(fasthttp.StatusOK))

			resp = do("GET", "/internal/cache/entry?distributor_id=999&order_cycle_id=1", nil, auth)
			Expect(json.Unmarshal(resp.envelope().Data, &entry)).To(Succeed())
			Expect(entry.State).To(Equal("absent"))

			// the distribution now has products; the next request renders again
			renderer.payloads["999"] = `[{"id":7}]`
			resp = do("GET", "/api/products?distributor_id=999&order_cycle_id=1", nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusOK))
			Expect(renderer.renders.Load()).To(Equal(int32(2)))
		})

		It("rejects requests without the auth header", func() {
			resp := do("POST", "/internal/cache/invalidate", []byte(`{"distributor_id":"1","order_cycle_id":"2"}`), nil)
			Expect(resp.status).To(Equal(fasthttp.StatusUnauthorized))
		})

		It("validates the invalidation body", func() {
			resp := do("POST", "/internal/cache/invalidate", []byte(`{"distributor_id":"1"}`), auth)
			Expect(resp.status).To(Equal(fasthttp.StatusBadRequest))

			resp = do("POST", "/internal/cache/invalidate", []byte(`{"distributor":"1"}`), auth)
			Expect(resp.status).To(Equal(fasthttp.StatusBadRequest))
		})
	})

	Describe("GET /internal/products", func() {
		auth := map[string]string{server.HeaderInternalAuth: authKey}

		It("renders on every request and leaves the cache alone", func() {
			Expect(store.Write(context.Background(), "products-json-123-456", cache.PopulatedEntry([]byte(`[]`)))).To(Succeed())

			for i := 0; i < 2; i++ {
				resp := do("GET", "/internal/products?distributor_id=123&order_cycle_id=456", nil, auth)
				Expect(resp.status).To(Equal(fasthttp.StatusOK))
				Expect(string(resp.body)).To(Equal(`[{"id":1,"name":"Apples"}]`))
			}
			Expect(renderer.renders.Load()).To(Equal(int32(2)))

			entry, err := store.Read(context.Background(), "products-json-123-456")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(entry.Payload)).To(Equal(`[]`))
		})

		It("returns 404 for an empty distribution without a marker or alert", func() {
			resp := do("GET", "/internal/products?distributor_id=999&order_cycle_id=1", nil, auth)
			Expect(resp.status).To(Equal(fasthttp.StatusNotFound))
			Expect(store.Len()).To(BeZero())
			Expect(notifier.count()).To(BeZero())
		})

		It("requires the auth header", func() {
			resp := do("GET", "/internal/products?distributor_id=123&order_cycle_id=456", nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusUnauthorized))
			Expect(renderer.renders.Load()).To(BeZero())
		})

		It("rejects malformed ids", func() {
			resp := do("GET", "/internal/products?distributor_id=1-2&order_cycle_id=3", nil, auth)
			Expect(resp.status).To(Equal(fasthttp.StatusBadRequest))
			Expect(renderer.renders.Load()).To(BeZero())
		})
	})

	Describe("report jobs", func() {
		submit := func(req types.ReportRequest) response {
			body, err := json.Marshal(req)
			Expect(err).NotTo(HaveOccurred())
			return do("POST", "/api/reports", body, nil)
		}

		statusOf := func(id string) types.JobStatus {
			resp := do("GET", "/api/reports/status?id="+id, nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusOK))
			var st types.JobStatus
			Expect(json.Unmarshal(resp.envelope().Data, &st)).To(Succeed())
			return st
		}

		It("accepts a job and stores the rendered report", func() {
			resp := submit(types.ReportRequest{
				ReportType: reports.ProductsReportType,
				UserID:     "user-1",
				Params:     map[string]string{"distributor_id": "123", "order_cycle_id": "456"},
				Format:     "csv",
				BlobKey:    "user-1/products.csv",
			})
			Expect(resp.status).To(Equal(fasthttp.StatusAccepted))

			var accepted types.ReportAcceptedData
			Expect(json.Unmarshal(resp.envelope().Data, &accepted)).To(Succeed())
			Expect(accepted.JobID).NotTo(BeEmpty())
			Expect(accepted.Status).To(Equal(types.JobQueued))

			Eventually(func() types.JobState {
				return statusOf(accepted.JobID).State
			}, 5*time.Second, 20*time.Millisecond).Should(Equal(types.JobDone))

			data, err := blobs.Fetch(context.Background(), "user-1/products.csv")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("Apples"))
		})

		It("rejects invalid requests", func() {
			Expect(submit(types.ReportRequest{ReportType: "orders", UserID: "u", Format: "csv", BlobKey: "a.csv"}).status).
				To(Equal(fasthttp.StatusBadRequest))
			Expect(submit(types.ReportRequest{ReportType: reports.ProductsReportType, UserID: "u", Format: "xls", BlobKey: "a.xls"}).status).
				To(Equal(fasthttp.StatusBadRequest))
			Expect(submit(types.ReportRequest{ReportType: reports.ProductsReportType, Format: "csv", BlobKey: "a.csv"}).status).
				To(Equal(fasthttp.StatusBadRequest))
			Expect(do("POST", "/api/reports", []byte(`not json`), nil).status).To(Equal(fasthttp.StatusBadRequest))
		})

		It("returns 404 for unknown jobs", func() {
			resp := do("GET", "/api/reports/status?id=abcde-unknown", nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusNotFound))
		})
	})

	Describe("GET /health", func() {
		It("reports ok while Redis is reachable", func() {
			resp := do("GET", "/health", nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusOK))

			var health types.HealthData
			Expect(json.Unmarshal(resp.envelope().Data, &health)).To(Succeed())
			Expect(health.Status).To(Equal("ok"))
			Expect(health.Environment).To(Equal("production"))
		})

		It("reports degraded when Redis is down", func() {
			mr.Close()
			resp := do("GET", "/health", nil, nil)
			Expect(resp.status).To(Equal(fasthttp.StatusServiceUnavailable))
		})
	})
})

// productsFromRenderer feeds the products report with one fixed product
type productsFromRenderer struct{}

func (productsFromRenderer) Products(_ context.Context, rc catalog.RenderContext) ([]sqlsource.Product, error) {
	return []sqlsource.Product{{
		ID:   1,
		Name: "Apples",
		Variants: []sqlsource.Variant{
			{ID: 10, SKU: "APL-" + rc.DistributorID, Price: "3.50", OnHand: 4},
		},
	}}, nil
}
