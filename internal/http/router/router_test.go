package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	cmem "github.com/dropDatabas3/hellopos/internal/cache/memory"
	"github.com/dropDatabas3/hellopos/internal/http/handlers"
	"github.com/dropDatabas3/hellopos/internal/metrics"
	"github.com/dropDatabas3/hellopos/internal/pos"
	"github.com/dropDatabas3/hellopos/internal/resolver"
	"github.com/dropDatabas3/hellopos/internal/sheet/memory"
)

type env struct {
	srv   *httptest.Server
	books *memory.Workbook
	ready error
}

func newEnv(t *testing.T, adminKey string) *env {
	t.Helper()
	e := &env{books: memory.NewWorkbook()}
	e.books.Put("products", memory.FromRows([][]any{
		{"date", "name", "qty", "code", "price"},
		{nil, "Widget", 1, "ABC123", 9.99},
		{nil, "Gadget", 1, "XYZ789", 4.5},
	}))
	src, err := e.books.Sheet(context.Background(), "products")
	require.NoError(t, err)

	res, err := resolver.New(resolver.DefaultConfig(), resolver.Deps{
		Source:    src,
		Ephemeral: cmem.New(time.Hour, "test"),
	})
	require.NoError(t, err)

	cfg := pos.DefaultConfig()
	cfg.Now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	h := New(Deps{
		Catalog:  res,
		Scanner:  pos.New(cfg, e.books, res),
		AdminKey: adminKey,
		Gatherer: reg,
		Checks: []handlers.Check{{Name: "source", Fn: func(context.Context) error { return e.ready }}},
	})
	e.srv = httptest.NewServer(h)
	t.Cleanup(e.srv.Close)
	return e
}

func (e *env) do(t *testing.T, method, path, body string, hdr map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestLookup(t *testing.T) {
	e := newEnv(t, "")

	resp, body := e.do(t, http.MethodGet, "/v1/products/ABC123", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Widget", body["name"])
	require.Equal(t, 9.99, body["price"])
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = e.do(t, http.MethodGet, "/v1/products/NOPE", "", map[string]string{"X-Request-ID": "rid-1"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "PRODUCT_NOT_FOUND", body["code"])
	require.Equal(t, "rid-1", resp.Header.Get("X-Request-ID"))
}

func TestScan_FillsSaleRow(t *testing.T) {
	e := newEnv(t, "")

	resp, body := e.do(t, http.MethodPost, "/v1/scan", `{"sheet":"sales","row":2,"column":2,"value":"ABC123"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, string(pos.ActionFilled), body["action"])

	tbl, err := e.books.Sheet(context.Background(), "sales")
	require.NoError(t, err)
	rows, err := tbl.ReadRange(context.Background(), 2, 3, 1, 3)
	require.NoError(t, err)
	require.Equal(t, []any{"Widget", 1, 9.99}, rows[0])

	resp, body = e.do(t, http.MethodPost, "/v1/scan", `{"sheet":"sales"}`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "BAD_REQUEST", body["code"])

	resp, _ = e.do(t, http.MethodPost, "/v1/scan", `{bad`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMaintenance_RequiresAdminKey(t *testing.T) {
	e := newEnv(t, "s3cret")

	resp, body := e.do(t, http.MethodGet, "/v1/cache/status", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "UNAUTHORIZED", body["code"])

	resp, body = e.do(t, http.MethodPost, "/v1/cache/preload", "", map[string]string{"X-Admin-Key": "s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, string(resolver.TierSource), body["tier"])
	require.Equal(t, float64(2), body["records"])

	resp, body = e.do(t, http.MethodGet, "/v1/cache/status", "", map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	inproc := body["in_process"].(map[string]any)
	require.Equal(t, true, inproc["present"])

	resp, body = e.do(t, http.MethodPost, "/v1/cache/invalidate", "", map[string]string{"X-Admin-Key": "s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"])

	resp, body = e.do(t, http.MethodPost, "/v1/cache/refresh", "", map[string]string{"X-Admin-Key": "s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(2), body["valid"])

	resp, body = e.do(t, http.MethodGet, "/v1/cache/check", "", map[string]string{"X-Admin-Key": "s3cret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["ok"], "%v", body["issues"])
}

func TestReadyz(t *testing.T) {
	e := newEnv(t, "")
	resp, _ := e.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	e.ready = errors.New("down")
	resp, body := e.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "source: down", body["detail"])
}

func TestMetricsAndNotFound(t *testing.T) {
	e := newEnv(t, "")
	e.do(t, http.MethodGet, "/v1/products/ABC123", "", nil)

	resp, body := e.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "NOT_FOUND", body["code"])

	scrape := func() string {
		resp, err := http.Get(e.srv.URL + "/metrics")
		if err != nil {
			return ""
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return ""
		}
		return string(b)
	}
	require.Eventually(t, func() bool {
		out := scrape()
		return strings.Contains(out, `http_requests_total{method="GET",path="/v1/products/{code}",status="200"}`) &&
			strings.Contains(out, "catalog_lookups_total")
	}, 2*time.Second, 20*time.Millisecond)
}

var _ handlers.Catalog = (*resolver.Resolver)(nil)
