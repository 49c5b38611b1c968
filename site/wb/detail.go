package wb

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/cardgrab/jsonval"
	"github.com/use-agent/cardgrab/normalize"
)

// Delivery destinations and discount tiers the detail API is asked about.
// Prices differ per region and tier; the lowest one is kept.
var (
	detailDests = []string{"-1257786", "-239094", "-5617406", "123585148", "123582156", "-80302"}
	detailSPP   = []int{0, 1, 30}
)

const detailURLFormat = "https://card.wb.ru/cards/v2/detail?appType=1&curr=rub&dest=%s&spp=%d&nm=%s"

// JSONGetter fetches a JSON document over HTTP.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)
}

// DetailClient queries the public card.wb.ru detail API.
type DetailClient struct {
	getter JSONGetter
}

// NewDetailClient creates a detail client over g.
func NewDetailClient(g JSONGetter) *DetailClient {
	return &DetailClient{getter: g}
}

// BestProduct asks every destination/discount combination for product nm
// and returns the product object with the lowest price. All combinations are
// tried, one after another; failed lookups are skipped.
func (c *DetailClient) BestProduct(ctx context.Context, nm string) (jsonval.Value, bool) {
	var best jsonval.Value
	bestPrice := 0
	found := false

	for _, spp := range detailSPP {
		for _, dest := range detailDests {
			url := fmt.Sprintf(detailURLFormat, dest, spp, nm)
			slog.Info("wb detail try", "url", url)

			body, err := c.getter.GetJSON(ctx, url)
			if err != nil {
				slog.Debug("wb detail request failed", "url", url, "error", err)
				continue
			}
			doc, err := jsonval.Parse(body)
			if err != nil {
				slog.Debug("wb detail response is not JSON", "url", url, "error", err)
				continue
			}
			prod := doc.Path("data", "products").Index(0)
			if !prod.IsObject() {
				continue
			}
			price, ok := listPrice(prod)
			if !ok {
				continue
			}
			if !found || price < bestPrice {
				best, bestPrice, found = prod, price, true
			}
		}
	}
	if found {
		slog.Info("wb detail best price", "nm", nm, "price", bestPrice)
	}
	return best, found
}

// listPrice reads the first numeric top-level price field. Values are in
// kopecks.
func listPrice(prod jsonval.Value) (int, bool) {
	for _, k := range []string{"salePriceU", "priceU", "salePrice", "price"} {
		if v, ok := prod.Get(k).Num(); ok {
			return normalize.HundredthsToUnits(v), true
		}
	}
	return 0, false
}

// productPrice is listPrice with a fallback to the first size's price block.
func productPrice(prod jsonval.Value) *int {
	if p, ok := listPrice(prod); ok {
		return &p
	}
	block := prod.Get("sizes").Index(0).Get("price")
	for _, k := range []string{"total", "final", "basic", "discount"} {
		if v, ok := block.Get(k).Num(); ok {
			p := normalize.HundredthsToUnits(v)
			return &p
		}
	}
	return nil
}
