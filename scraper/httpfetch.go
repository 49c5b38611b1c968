package scraper

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	tls "github.com/refraction-networking/utls"
)

// maxJSONBody caps side-channel responses.
const maxJSONBody = 10 << 20

// chromeH1Spec builds a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. ApplyPreset mutates the extensions it is given, so every
// connection gets its own copy.
func chromeH1Spec() (tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return spec, err
	}
	// Go's http.Transport cannot speak h2 over a utls connection, so the
	// server must never negotiate it.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return spec, nil
}

// HTTPClient performs the non-browser requests of an extraction: image
// mirror HEAD probes and marketplace JSON APIs. TLS uses a Chrome
// fingerprint so CDN edges treat it like the browser.
type HTTPClient struct {
	client       *http.Client
	probeTimeout time.Duration
	jsonTimeout  time.Duration
}

// NewHTTPClient creates a client with the given per-request timeouts.
func NewHTTPClient(probeTimeout, jsonTimeout time.Duration) *HTTPClient {
	return newHTTPClient(probeTimeout, jsonTimeout, nil)
}

// newHTTPClient verifies server certificates against roots, or the system
// pool when roots is nil.
func newHTTPClient(probeTimeout, jsonTimeout time.Duration, roots *x509.CertPool) *HTTPClient {
	transport := &http.Transport{
		DialTLSContext:      chromeDialer(roots),
		ForceAttemptHTTP2:   false,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		probeTimeout: probeTimeout,
		jsonTimeout:  jsonTimeout,
	}
}

// chromeDialer establishes TLS connections using the Chrome h1 fingerprint.
func chromeDialer(roots *x509.CertPool) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		host, _, _ := net.SplitHostPort(addr)
		tlsConn, err := chromeConn(conn, &tls.Config{ServerName: host, RootCAs: roots})
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
}

func chromeConn(conn net.Conn, cfg *tls.Config) (*tls.UConn, error) {
	spec, err := chromeH1Spec()
	if err != nil {
		// Fall back to the stock Chrome hello.
		slog.Debug("chrome tls spec unavailable", "error", err)
		return tls.UClient(conn, cfg, tls.HelloChrome_Auto), nil
	}
	tlsConn := tls.UClient(conn, cfg, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("httpfetch: apply tls spec: %w", err)
	}
	return tlsConn, nil
}

// Head reports whether url answers a HEAD request with status 200.
// Any error, timeout or other status counts as a miss.
func (c *HTTPClient) Head(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Debug("head probe failed", "url", url, "error", err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// GetJSON fetches url and returns the body of a 200 response.
func (c *HTTPClient) GetJSON(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.jsonTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", acceptLanguage)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpfetch: HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: read body: %w", err)
	}
	return body, nil
}

// Close drops idle keep-alive connections.
func (c *HTTPClient) Close() {
	c.client.CloseIdleConnections()
}
