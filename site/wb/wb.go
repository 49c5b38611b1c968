// Package wb extracts product cards from Wildberries product pages.
//
// The page itself carries little beyond ld+json, so the adapter leans on the
// public card.wb.ru detail API for price and counts and on basket mirror
// probing for the image gallery.
package wb

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/use-agent/cardgrab/cleaner"
	"github.com/use-agent/cardgrab/jsonval"
	"github.com/use-agent/cardgrab/models"
	"github.com/use-agent/cardgrab/normalize"
	"github.com/use-agent/cardgrab/structdata"
)

var (
	catalogIDRe = regexp.MustCompile(`/catalog/(\d+)/`)
	pageIDRe    = regexp.MustCompile(`(?i)(?:Артикул|nmId|nm_id|productId)[^\d]{0,16}(\d{6,12})`)
)

// Storefront-wide meta description WB serves on product pages without their
// own. Both markers must be present.
var boilerplateMarkers = []string{
	"коллекции женской, мужской и детской одежды",
	"информация о доставке",
}

// Fetcher loads a rendered product page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, site models.Site) (*models.RawPageArtifacts, error)
}

// Adapter is the Wildberries site adapter.
type Adapter struct {
	fetcher Fetcher
	detail  *DetailClient
	gallery *GalleryResolver
	cleaner *cleaner.Cleaner
}

// New creates a Wildberries adapter.
func New(f Fetcher, detail *DetailClient, gallery *GalleryResolver, c *cleaner.Cleaner) *Adapter {
	return &Adapter{fetcher: f, detail: detail, gallery: gallery, cleaner: c}
}

// Extract fetches url and resolves it into a product record. Only
// navigation-tier errors from the fetch are returned.
func (a *Adapter) Extract(ctx context.Context, url string) (*models.ProductRecord, error) {
	art, err := a.fetcher.Fetch(ctx, url, models.SiteWB)
	if err != nil {
		return nil, err
	}
	return a.Resolve(ctx, url, art), nil
}

// Resolve builds the record from captured page artifacts plus the detail
// API and image mirrors.
func (a *Adapter) Resolve(ctx context.Context, url string, art *models.RawPageArtifacts) *models.ProductRecord {
	doc := cleaner.ParseHTML(art.HTML)
	meta := cleaner.ExtractMeta(art.HTML, doc)

	acc := structdata.Extract(doc, art.LDScripts)

	nm := productID(art.HTML, url, art.FinalURL)
	if nm == "" {
		nm = productID(art.StateText)
	}
	slog.Info("wb nm detection", "nm", nm, "url", url)

	if nm != "" {
		if prod, ok := a.detail.BestProduct(ctx, nm); ok {
			acc = acc.Merge(detailPatch(prod))
			if len(acc.Images) == 0 {
				if id, err := strconv.ParseInt(nm, 10, 64); err == nil {
					acc.Images = a.gallery.BuildImages(ctx, id, prod, art.HTML)
				}
			}
		}
	}

	if acc.Description == nil {
		acc.Description = normalize.Text(meta.Description)
	}
	if acc.Description != nil && isBoilerplate(*acc.Description) {
		acc.Description = nil
	}

	if len(acc.Images) == 0 {
		acc.Images = imagesFromHTML(art.HTML)
	}
	if len(acc.Images) == 0 {
		acc.Images = art.GalleryImages
	}

	rec := models.Fold(models.SiteWB,
		acc,
		models.Patch{Title: normalize.Text(firstNonEmpty(art.H1, meta.H1))},
		models.Patch{Title: normalize.Text(firstNonEmpty(art.OGTitle, meta.OGTitle))},
		models.Patch{Title: normalize.Text(meta.Title)},
	)
	rec.Description = a.cleaner.Description(rec.Description)
	return rec
}

// detailPatch maps a detail API product onto record fields.
func detailPatch(prod jsonval.Value) models.Patch {
	return models.Patch{
		Title:       normalize.Text(prod.Get("name").Raw()),
		Description: normalize.Text(prod.Get("description").Raw()),
		Rating:      normalize.Rating(prod.Get("rating").Or(prod.Get("reviewRating"), prod.Get("stars")).Raw()),
		Reviews:     normalize.Int(prod.Get("feedbacks").Or(prod.Get("feedbacksCount")).Raw()),
		Price:       productPrice(prod),
	}
}

// productID finds the nm id in the URLs, then in the page text.
func productID(rawHTML string, urls ...string) string {
	for _, u := range urls {
		if m := catalogIDRe.FindStringSubmatch(u); m != nil {
			return m[1]
		}
	}
	if m := pageIDRe.FindStringSubmatch(rawHTML); m != nil {
		return m[1]
	}
	return ""
}

func isBoilerplate(text string) bool {
	s := strings.ToLower(strings.TrimSpace(text))
	for _, marker := range boilerplateMarkers {
		if !strings.Contains(s, marker) {
			return false
		}
	}
	return true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
