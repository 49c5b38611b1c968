// Command cardgrab-dump fetches one product page with the same browser
// session the server uses and saves the rendered HTML (and, for Ozon, the
// composer JSON) into the debug directory.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/use-agent/cardgrab/config"
	"github.com/use-agent/cardgrab/models"
	"github.com/use-agent/cardgrab/scraper"
)

var (
	ozonIDRe = regexp.MustCompile(`/product/[^/]*-(\d+)/?`)
	wbIDRe   = regexp.MustCompile(`/catalog/(\d+)/detail\.aspx`)
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: cardgrab-dump <url>")
		os.Exit(1)
	}
	url := os.Args[1]

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))

	site, ok := models.DetectSite(url)
	if !ok {
		fmt.Fprintf(os.Stderr, "unsupported url: %s\n", url)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HardTimeout())
	defer cancel()

	art, err := scraper.NewSession(cfg.Browser, cfg.Scraper).Fetch(ctx, url, site)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}

	files, err := dump(cfg.Browser.DebugDir, url, art, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}
	for _, f := range files {
		fmt.Println("saved", f)
	}
}

// dump writes the artifacts under dir and returns the written paths.
func dump(dir, url string, art *models.RawPageArtifacts, at time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	ts := at.Format("20060102_150405")
	stem := filepath.Join(dir, fmt.Sprintf("%s_%s_%s", art.Site, productID(art.Site, url, ts), ts))

	htmlPath := stem + ".html"
	if err := os.WriteFile(htmlPath, []byte(art.HTML), 0o644); err != nil {
		return nil, err
	}
	written := []string{htmlPath}

	if len(art.Composer) > 0 {
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, art.Composer, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(art.Composer)
		}
		composerPath := stem + "_composer.json"
		if err := os.WriteFile(composerPath, pretty.Bytes(), 0o644); err != nil {
			return written, err
		}
		written = append(written, composerPath)
	}
	return written, nil
}

func productID(site models.Site, url, fallback string) string {
	re := wbIDRe
	if site == models.SiteOzon {
		re = ozonIDRe
	}
	if m := re.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return fallback
}
