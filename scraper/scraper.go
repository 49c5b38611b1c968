package scraper

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/cardgrab/config"
	"github.com/use-agent/cardgrab/models"
)

// Session drives one isolated Chromium per Fetch call. Nothing is shared
// between fetches, so a Session is safe for concurrent use; concurrency
// itself is bounded by the engine pool.
type Session struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
}

// NewSession creates a browser session factory.
func NewSession(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *Session {
	return &Session{browserCfg: browserCfg, scraperCfg: scraperCfg}
}

// browserHandle owns everything launched for one fetch.
type browserHandle struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// close tears down the browser and the launcher process. Safe to call on a
// partially initialised handle.
func (h *browserHandle) close() {
	if h.browser != nil {
		if err := h.browser.Close(); err != nil {
			slog.Debug("browser close failed", "error", err)
		}
	}
	if h.launcher != nil {
		h.launcher.Kill()
		h.launcher.Cleanup()
	}
}

// launch starts a fresh Chromium with the stealth flag set and connects to it.
func (s *Session) launch(ctx context.Context) (*browserHandle, error) {
	l := launcher.New().
		Context(ctx).
		Headless(s.browserCfg.Headless).
		NoSandbox(s.browserCfg.NoSandbox)

	if s.browserCfg.BrowserBin != "" {
		l = l.Bin(s.browserCfg.BrowserBin)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), "ru-RU")

	h := &browserHandle{launcher: l}

	controlURL, err := l.Launch()
	if err != nil {
		h.close()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Debug("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if !s.browserCfg.Headless && s.browserCfg.SlowMo > 0 {
		browser = browser.SlowMotion(s.browserCfg.SlowMo)
	}
	if err := browser.Connect(); err != nil {
		h.close()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	h.browser = browser
	return h, nil
}
