package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cardgrab/cache"
	"github.com/use-agent/cardgrab/config"
	"github.com/use-agent/cardgrab/models"
)

type fakeExtractor struct {
	calls int
	site  models.Site
	rec   *models.ProductRecord
	err   error
}

func (f *fakeExtractor) ExtractSite(_ context.Context, _ string, site models.Site) (*models.ProductRecord, error) {
	f.calls++
	f.site = site
	return f.rec, f.err
}

type fakePool struct{ stats models.PoolStats }

func (f fakePool) Stats() models.PoolStats { return f.stats }

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{"secret"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
}

func postProduct(t *testing.T, r http.Handler, body string, key string) (*httptest.ResponseRecorder, models.ProductResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/product", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp models.ProductResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func sampleRecord() *models.ProductRecord {
	price := 9990
	return &models.ProductRecord{
		Title:  "Наушники",
		Price:  &price,
		Images: []string{"https://ir.ozone.ru/1.jpg"},
		Videos: []string{},
		Source: models.SiteOzon,
	}
}

func TestProduct_Success(t *testing.T) {
	ex := &fakeExtractor{rec: sampleRecord()}
	r := NewRouter(ex, fakePool{}, testConfig(), nil, time.Now())

	w, resp := postProduct(t, r, `{"url":"https://www.ozon.ru/product/naushniki-123/"}`, "secret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	require.True(t, resp.Success)
	assert.Equal(t, "Наушники", resp.Product.Title)
	assert.Equal(t, 9990, *resp.Product.Price)
	assert.Equal(t, models.SiteOzon, ex.site)
	assert.Empty(t, resp.CacheStatus)
}

func TestProduct_ExplicitSite(t *testing.T) {
	ex := &fakeExtractor{rec: sampleRecord()}
	r := NewRouter(ex, fakePool{}, testConfig(), nil, time.Now())

	w, _ := postProduct(t, r, `{"url":"https://example.com/p/1","site":"wildberries"}`, "secret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SiteWB, ex.site)
}

func TestProduct_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		key    string
		err    error
		status int
		code   string
	}{
		{"missing key", `{"url":"https://www.ozon.ru/product/1/"}`, "", nil, http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"bad key", `{"url":"https://www.ozon.ru/product/1/"}`, "nope", nil, http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"no url", `{}`, "secret", nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"unknown host", `{"url":"https://example.com/p/1"}`, "secret", nil, http.StatusUnprocessableEntity, models.ErrCodeUnsupported},
		{"unknown site", `{"url":"https://www.ozon.ru/product/1/","site":"amazon"}`, "secret", nil, http.StatusUnprocessableEntity, models.ErrCodeUnsupported},
		{
			"navigation", `{"url":"https://www.ozon.ru/product/1/"}`, "secret",
			models.NewScrapeError(models.ErrCodeNavigation, "net::ERR_CONNECTION_RESET", nil),
			http.StatusBadGateway, models.ErrCodeNavigation,
		},
		{
			"timeout", `{"url":"https://www.ozon.ru/product/1/"}`, "secret",
			models.NewScrapeError(models.ErrCodeTimeout, "hard timeout", nil),
			http.StatusGatewayTimeout, models.ErrCodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExtractor{err: tt.err}
			r := NewRouter(ex, fakePool{}, testConfig(), nil, time.Now())

			w, resp := postProduct(t, r, tt.body, tt.key)
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestProduct_CacheHitSkipsExtraction(t *testing.T) {
	cc := cache.New(10)
	defer cc.Close()
	ex := &fakeExtractor{rec: sampleRecord()}
	r := NewRouter(ex, fakePool{}, testConfig(), cc, time.Now())

	body := `{"url":"https://www.ozon.ru/product/1/","max_age":60000}`
	_, first := postProduct(t, r, body, "secret")
	assert.Equal(t, "miss", first.CacheStatus)

	_, second := postProduct(t, r, body, "secret")
	assert.Equal(t, "hit", second.CacheStatus)
	assert.Equal(t, "Наушники", second.Product.Title)
	assert.Equal(t, 1, ex.calls)
}

func TestHealth(t *testing.T) {
	pool := fakePool{stats: models.PoolStats{Workers: 2, Busy: 2, Waiting: 3}}
	r := NewRouter(&fakeExtractor{}, pool, testConfig(), nil, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, 2, resp.PoolStats.Workers)
}
