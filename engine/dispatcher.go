package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/cardgrab/models"
)

// Extractor routes product URLs to the adapter of their marketplace.
type Extractor struct {
	adapters map[models.Site]Adapter
	sink     RecordSink
}

// NewExtractor creates an Extractor over the given adapters.
func NewExtractor(adapters map[models.Site]Adapter) *Extractor {
	return &Extractor{adapters: adapters}
}

// SetSink sets the optional record sink. Publishing failures are logged and
// never affect the extraction result.
func (e *Extractor) SetSink(s RecordSink) {
	e.sink = s
}

// Extract detects the marketplace from the URL host and runs its adapter.
func (e *Extractor) Extract(ctx context.Context, url string) (*models.ProductRecord, error) {
	site, ok := models.DetectSite(url)
	if !ok {
		return nil, models.NewScrapeError(
			models.ErrCodeUnsupported,
			fmt.Sprintf("no adapter for %q", url),
			nil,
		)
	}
	return e.ExtractSite(ctx, url, site)
}

// ExtractSite runs the adapter for site regardless of the URL host.
func (e *Extractor) ExtractSite(ctx context.Context, url string, site models.Site) (*models.ProductRecord, error) {
	adapter, ok := e.adapters[site]
	if !ok {
		return nil, models.NewScrapeError(
			models.ErrCodeUnsupported,
			fmt.Sprintf("site %q is not configured", site),
			nil,
		)
	}

	start := time.Now()
	rec, err := adapter.Extract(ctx, url)
	if err != nil {
		slog.Warn("extraction failed", "site", site, "url", url, "error", err)
		return nil, err
	}
	price := -1
	if rec.Price != nil {
		price = *rec.Price
	}
	slog.Info("extraction done",
		"site", site,
		"url", url,
		"title", rec.Title,
		"price", price,
		"images", len(rec.Images),
		"duration", time.Since(start),
	)

	if e.sink != nil {
		if err := e.sink.Publish(ctx, url, rec); err != nil {
			slog.Warn("record publish failed", "site", site, "url", url, "error", err)
		}
	}
	return rec, nil
}
