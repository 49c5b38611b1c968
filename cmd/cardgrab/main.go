package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/cardgrab/api"
	"github.com/use-agent/cardgrab/cache"
	"github.com/use-agent/cardgrab/cleaner"
	"github.com/use-agent/cardgrab/config"
	"github.com/use-agent/cardgrab/engine"
	"github.com/use-agent/cardgrab/models"
	"github.com/use-agent/cardgrab/publisher"
	"github.com/use-agent/cardgrab/scraper"
	"github.com/use-agent/cardgrab/site/ozon"
	"github.com/use-agent/cardgrab/site/wb"
	"github.com/use-agent/cardgrab/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("cardgrab starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"workers", cfg.Pool.Workers,
		"headless", cfg.Browser.Headless,
	)

	// ── 3. Browser session behind the worker pool ───────────────────
	session := scraper.NewSession(cfg.Browser, cfg.Scraper)
	pool := engine.NewPool(cfg.Pool.Workers, cfg.HardTimeout())
	fetcher := engine.NewPooledFetcher(pool, session)

	// ── 4. Side-channel HTTP client ─────────────────────────────────
	httpClient := scraper.NewHTTPClient(cfg.Scraper.ProbeTimeout, cfg.Scraper.HTTPTimeout)
	defer httpClient.Close()

	// ── 5. Site adapters ────────────────────────────────────────────
	cl := cleaner.NewCleaner(cfg.Scraper.MaxDescriptionLen)
	extractor := engine.NewExtractor(map[models.Site]engine.Adapter{
		models.SiteOzon: ozon.New(fetcher, cl),
		models.SiteWB: wb.New(fetcher,
			wb.NewDetailClient(httpClient),
			wb.NewGalleryResolver(httpClient),
			cl,
		),
	})

	// ── 5b. Optional record sinks ───────────────────────────────────
	var sinks engine.MultiSink
	if cfg.Publisher.RedisAddr != "" {
		pub := publisher.NewRedisPublisher(
			cfg.Publisher.RedisAddr,
			cfg.Publisher.RedisDB,
			cfg.Publisher.Stream,
			cfg.Publisher.MaxLen,
		)
		defer pub.Close()
		sinks = append(sinks, pub)
		slog.Info("redis publisher enabled",
			"addr", cfg.Publisher.RedisAddr,
			"stream", cfg.Publisher.Stream,
		)
	}
	if cfg.Publisher.WebhookURL != "" {
		sinks = append(sinks, webhook.NewSink(
			cfg.Publisher.WebhookURL,
			cfg.Publisher.WebhookSecret,
			cfg.Publisher.WebhookTimeout,
		))
		slog.Info("webhook sink enabled", "url", cfg.Publisher.WebhookURL)
	}
	if len(sinks) > 0 {
		extractor.SetSink(sinks)
	}

	// ── 6. Cache and router ─────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	defer cc.Close()

	startTime := time.Now()
	router := api.NewRouter(extractor, pool, cfg, cc, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("cardgrab stopped", "stats", pool.Stats())
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
