package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/cardgrab/jsonval"
	"github.com/use-agent/cardgrab/models"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	acceptLanguage = "ru-RU,ru;q=0.9"
	timezoneID     = "Europe/Moscow"
	locale         = "ru-RU"

	viewportWidth  = 1440
	viewportHeight = 920

	settleDelay = 700 * time.Millisecond
	h1Wait      = 7 * time.Second
	scrollPause = 500 * time.Millisecond
)

// preScript runs before any page script: hides the webdriver flag and pins
// geolocation to central Moscow.
const preScript = `() => {
	Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
	const pos = {coords: {latitude: 55.75, longitude: 37.61, accuracy: 100,
		altitude: null, altitudeAccuracy: null, heading: null, speed: null},
		timestamp: Date.now()};
	if (navigator.geolocation) {
		navigator.geolocation.getCurrentPosition = (ok) => ok(pos);
		navigator.geolocation.watchPosition = (ok) => { ok(pos); return 1; };
	}
}`

// Fetch loads url in a fresh browser and captures everything the adapters
// need. The browser is torn down before Fetch returns, whatever happens.
//
// Lifecycle:
//
//  1. Launch         – new Chromium with stealth flags
//  2. Page setup     – viewport, UA, timezone, locale, pre-scripts (before navigation!)
//  3. Navigate       – wait for DOMContentLoaded, then settle
//  4. Banners        – click consent buttons or hide cookie overlays
//  5. WB warm-up     – wait for h1, scroll a third down to trigger lazy gallery
//  6. ld+json wait   – soft
//  7. Collect        – ld+json, og, h1, state blob, composer, gallery srcs
//  8. Screenshot     – diagnostic only
//  9. HTML + URL
func (s *Session) Fetch(ctx context.Context, url string, site models.Site) (*models.RawPageArtifacts, error) {
	// ── 1. Launch ────────────────────────────────────────────────────
	h, err := s.launch(ctx)
	if err != nil {
		return nil, err
	}
	defer h.close()

	page, err := h.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}
	defer func() {
		_ = page.Close()
	}()

	// ── 2. Page setup ────────────────────────────────────────────────
	setupPage(page)

	// ── 3. Navigate ──────────────────────────────────────────────────
	navCtx, navCancel := context.WithTimeout(ctx, s.scraperCfg.NavigationTimeout)
	defer navCancel()
	np := page.Context(navCtx)

	slog.Info("browser goto", "site", site, "url", url)
	waitDOM := np.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := np.Navigate(url); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	waitDOM()
	if err := navCtx.Err(); err != nil {
		return nil, categorizeError(err, "page did not reach DOMContentLoaded")
	}

	p := page.Context(ctx)
	pause(ctx, settleDelay)

	// ── 4. Banners ───────────────────────────────────────────────────
	dismissBanners(p)

	// ── 5. WB warm-up ────────────────────────────────────────────────
	if site == models.SiteWB {
		if !waitSoft(p, "h1", h1Wait) {
			slog.Debug("h1 did not appear", "url", url)
		}
		scrollToThird(p)
		pause(ctx, scrollPause)
	}

	// ── 6. ld+json wait ──────────────────────────────────────────────
	if !waitSoft(p, `script[type="application/ld+json"]`, s.scraperCfg.WaitJSONLD) {
		slog.Debug("no ld+json script within wait", "url", url, "wait", s.scraperCfg.WaitJSONLD)
	}

	// ── 7. Collect ───────────────────────────────────────────────────
	op := p.Timeout(s.scraperCfg.NavigationTimeout)
	defer op.CancelTimeout()

	art := &models.RawPageArtifacts{Site: site}
	collectMeta(op, art)
	switch site {
	case models.SiteWB:
		art.StateText = collectState(op)
	case models.SiteOzon:
		art.Composer = collectComposer(op)
	}
	art.GalleryImages = collectGallery(op)

	// ── 8. Screenshot ────────────────────────────────────────────────
	art.Screenshot = s.screenshot(op, site)

	// ── 9. HTML + final URL ──────────────────────────────────────────
	rawHTML, htmlErr := op.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}
	art.HTML = rawHTML
	art.FinalURL = evalStringOrEmpty(op, `() => window.location.href`)
	if art.FinalURL == "" {
		art.FinalURL = url
	}

	slog.Info("browser fetch done",
		"site", site,
		"url", art.FinalURL,
		"ldScripts", len(art.LDScripts),
		"gallery", len(art.GalleryImages),
		"composer", art.Composer != nil,
		"state", art.StateText != "",
	)
	return art, nil
}

// setupPage applies the Russian desktop identity. Every step is best-effort.
func setupPage(page *rod.Page) {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Debug("set viewport failed", "error", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: acceptLanguage,
	}); err != nil {
		slog.Debug("set user agent failed", "error", err)
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: timezoneID}).Call(page); err != nil {
		slog.Debug("set timezone failed", "error", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: locale}).Call(page); err != nil {
		slog.Debug("set locale failed", "error", err)
	}
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}
	if _, err := page.EvalOnNewDocument("(" + preScript + ")()"); err != nil {
		slog.Debug("pre-script injection failed", "error", err)
	}
}

// screenshot saves a full-page capture to DebugDir/<site>_<unixmillis>.png.
// Returns "" when capture or write fails.
func (s *Session) screenshot(p *rod.Page, site models.Site) string {
	path := screenshotPath(s.browserCfg.DebugDir, site, time.Now())
	img, err := p.Screenshot(true, nil)
	if err != nil {
		slog.Debug("screenshot failed", "error", err)
		return ""
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		slog.Debug("screenshot dir failed", "error", err)
		return ""
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		slog.Debug("screenshot write failed", "error", err)
		return ""
	}
	slog.Info("screenshot saved", "path", path)
	return path
}

func screenshotPath(dir string, site models.Site, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.png", site, at.UnixMilli()))
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string, args ...any) string {
	res, err := page.Eval(js, args...)
	if err != nil {
		slog.Debug("eval failed", "error", err)
		return ""
	}
	return res.Value.Str()
}

// evalValue runs js and returns its result by value, or Nil on failure.
func evalValue(page *rod.Page, js string, args ...any) jsonval.Value {
	res, err := page.Eval(js, args...)
	if err != nil {
		slog.Debug("eval failed", "error", err)
		return jsonval.Nil
	}
	return jsonval.FromGSON(res.Value)
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
