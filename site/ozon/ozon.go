// Package ozon extracts product cards from Ozon product pages.
//
// Ozon renders most of the card client-side from "widget states" served by
// its composer API. The adapter combines ld+json, the gallery and price
// widgets, and page metadata, in that order of precedence.
package ozon

import (
	"context"
	"log/slog"

	"github.com/use-agent/cardgrab/cleaner"
	"github.com/use-agent/cardgrab/models"
	"github.com/use-agent/cardgrab/normalize"
	"github.com/use-agent/cardgrab/structdata"
)

// Fetcher loads a rendered product page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, site models.Site) (*models.RawPageArtifacts, error)
}

// Adapter is the Ozon site adapter.
type Adapter struct {
	fetcher Fetcher
	cleaner *cleaner.Cleaner
}

// New creates an Ozon adapter.
func New(f Fetcher, c *cleaner.Cleaner) *Adapter {
	return &Adapter{fetcher: f, cleaner: c}
}

// Extract fetches url and resolves it into a product record. Only
// navigation-tier errors from the fetch are returned.
func (a *Adapter) Extract(ctx context.Context, url string) (*models.ProductRecord, error) {
	art, err := a.fetcher.Fetch(ctx, url, models.SiteOzon)
	if err != nil {
		return nil, err
	}
	return a.Resolve(art), nil
}

// Resolve builds the record from captured page artifacts.
func (a *Adapter) Resolve(art *models.RawPageArtifacts) *models.ProductRecord {
	doc := cleaner.ParseHTML(art.HTML)
	meta := cleaner.ExtractMeta(art.HTML, doc)

	structured := structdata.Extract(doc, art.LDScripts)
	gallery := models.Patch{Images: galleryImages(art.Composer)}
	price := models.Patch{Price: resolvePrice(art.Composer, doc)}

	patches := []models.Patch{structured, gallery, price}

	if len(normalize.MergeURLs(structured.Images, gallery.Images)) == 0 {
		patches = append(patches, models.Patch{Images: firstOGImage(art, meta)})
	}
	patches = append(patches,
		models.Patch{Title: normalize.Text(meta.Title)},
		models.Patch{Title: normalize.Text(firstNonEmpty(art.OGTitle, meta.OGTitle))},
	)

	rec := models.Fold(models.SiteOzon, patches...)
	rec.Description = a.cleaner.Description(rec.Description)

	slog.Debug("ozon resolved",
		"url", art.FinalURL,
		"structured", structured.Title != nil,
		"galleryImages", len(gallery.Images),
		"price", price.Price != nil,
	)
	return rec
}

func firstOGImage(art *models.RawPageArtifacts, meta cleaner.PageMeta) []string {
	if len(art.OGImages) > 0 {
		return art.OGImages[:1]
	}
	if len(meta.OGImages) > 0 {
		return meta.OGImages[:1]
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
