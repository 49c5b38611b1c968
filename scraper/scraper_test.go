package scraper

import (
	"context"
	"crypto/x509"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tls "github.com/refraction-networking/utls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cardgrab/jsonval"
	"github.com/use-agent/cardgrab/models"
	"github.com/ysmood/gson"
)

func TestGallerySources(t *testing.T) {
	attrs := []imageAttrs{
		{Src: "//images.wbstatic.net/big/new/1.jpg"},
		{DataSrc: "https://cdn/lazy.jpg"},
		{DataOriginal: "https://cdn/orig.jpg"},
		{Srcset: "https://cdn/s.jpg 1x, https://cdn/l.jpg 2x"},
		{DataSrcset: "//cdn/d1.webp 300w,  //cdn/d2.webp 600w "},
		{Src: "https://images.wbstatic.net/big/new/1.jpg"},
		{},
	}
	got := gallerySources(attrs)
	assert.Equal(t, []string{
		"https://images.wbstatic.net/big/new/1.jpg",
		"https://cdn/lazy.jpg",
		"https://cdn/orig.jpg",
		"https://cdn/l.jpg",
		"https://cdn/d2.webp",
	}, got)
}

func TestDecodeEvalResults(t *testing.T) {
	meta := decodeMeta(jsonval.FromGSON(gson.NewFrom(`{
		"ld": ["{\"@type\":\"Product\"}", 7],
		"ogTitle": "  Чайник  ",
		"ogImages": ["https://cdn/1.jpg"],
		"h1": "Чайник электрический\n"
	}`)))
	assert.Equal(t, []string{`{"@type":"Product"}`}, meta.LD)
	assert.Equal(t, "Чайник", meta.OGTitle)
	assert.Equal(t, []string{"https://cdn/1.jpg"}, meta.OGImages)
	assert.Equal(t, "Чайник электрический", meta.H1)

	attrs := decodeImageAttrs(jsonval.FromGSON(gson.NewFrom(`[
		{"src": "", "dataSrc": "https://cdn/lazy.jpg", "srcset": ""},
		{"srcset": "https://cdn/s.jpg 1x, https://cdn/l.jpg 2x"}
	]`)))
	assert.Equal(t, []string{"https://cdn/lazy.jpg", "https://cdn/l.jpg"}, gallerySources(attrs))

	assert.Nil(t, decodeImageAttrs(jsonval.FromGSON(gson.New(nil))))
	assert.Empty(t, decodeMeta(jsonval.Nil).LD)
}

func TestLastSrcsetCandidate(t *testing.T) {
	assert.Equal(t, "", lastSrcsetCandidate(""))
	assert.Equal(t, "", lastSrcsetCandidate("a.jpg 1x, "))
	assert.Equal(t, "a.jpg", lastSrcsetCandidate("a.jpg"))
}

func TestValidComposer(t *testing.T) {
	assert.Nil(t, validComposer(""))
	assert.Nil(t, validComposer("<html>blocked</html>"))
	assert.Nil(t, validComposer(`{"widgetStates":`))
	assert.Nil(t, validComposer(`[1,2]`))
	assert.Equal(t, []byte(`{"widgetStates":{}}`), validComposer(` {"widgetStates":{}} `))
}

func TestScreenshotPath(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, filepath.Join("debug", "wb_1700000000123.png"), screenshotPath("debug", models.SiteWB, at))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, models.ErrCodeTimeout},
		{context.Canceled, models.ErrCodeTimeout},
		{errors.New("net::ERR_NAME_NOT_RESOLVED"), models.ErrCodeNavigation},
	}
	for _, tt := range tests {
		got := categorizeError(tt.err, "nav")
		assert.Equal(t, tt.want, got.Code)
		assert.True(t, got.IsNavigation())
		assert.ErrorIs(t, got, tt.err)
	}
}

func TestBannerProbesOrder(t *testing.T) {
	require.Len(t, bannerProbes, 13)
	assert.Equal(t, "ОК", bannerProbes[0].Text)
	assert.Equal(t, ".cookie-accept", bannerProbes[len(bannerProbes)-1].Selector)
}

func TestHTTPClient_Head(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/ok.jpg":
			w.WriteHeader(http.StatusOK)
		case "/moved.jpg":
			http.Redirect(w, r, "/ok.jpg", http.StatusFound)
		case "/slow.jpg":
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(50*time.Millisecond, time.Second)
	defer c.Close()
	ctx := context.Background()

	assert.True(t, c.Head(ctx, srv.URL+"/ok.jpg"))
	assert.True(t, c.Head(ctx, srv.URL+"/moved.jpg"))
	assert.False(t, c.Head(ctx, srv.URL+"/missing.jpg"))
	assert.False(t, c.Head(ctx, srv.URL+"/slow.jpg"))
	assert.False(t, c.Head(ctx, "http://127.0.0.1:1/unreachable"))
}

func TestHTTPClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		if r.URL.Query().Get("nm") == "1" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"products":[]}}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, time.Second)
	defer c.Close()

	body, err := c.GetJSON(context.Background(), srv.URL+"/detail?nm=1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"products":[]}}`, string(body))

	_, err = c.GetJSON(context.Background(), srv.URL+"/detail?nm=2")
	assert.Error(t, err)
}

func TestChromeH1Spec_FreshPerCall(t *testing.T) {
	alpnOf := func(spec tls.ClientHelloSpec) *tls.ALPNExtension {
		for _, ext := range spec.Extensions {
			if alpn, ok := ext.(*tls.ALPNExtension); ok {
				return alpn
			}
		}
		return nil
	}

	a, err := chromeH1Spec()
	require.NoError(t, err)
	b, err := chromeH1Spec()
	require.NoError(t, err)

	alpnA, alpnB := alpnOf(a), alpnOf(b)
	require.NotNil(t, alpnA)
	require.NotNil(t, alpnB)
	assert.Equal(t, []string{"http/1.1"}, alpnA.AlpnProtocols)
	assert.NotSame(t, alpnA, alpnB)
}

func TestHTTPClient_ConcurrentTLSHead(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "HTTP/1.1", r.Proto)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate clients force a fresh handshake per goroutine.
			c := newHTTPClient(5*time.Second, 5*time.Second, roots)
			defer c.Close()
			results[i] = c.Head(context.Background(), srv.URL+"/1.webp")
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "request %d", i)
	}
}
