package ozon

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/cardgrab/cleaner"
	"github.com/use-agent/cardgrab/jsonval"
	"github.com/use-agent/cardgrab/normalize"
)

// resolvePrice returns the Ozon Card price when the page shows one, else the
// regular price. Composer price widgets win over the server-rendered
// state-webPrice element.
func resolvePrice(composer []byte, doc *goquery.Document) *int {
	card, regular := composerPrices(composer)
	if card == nil && regular == nil {
		card, regular = htmlPrices(doc)
	}
	switch {
	case positive(card):
		return card
	case positive(regular):
		return regular
	}
	return nil
}

// composerPrices scans webPrice widgets in document order and stops at the
// first one that yields a positive price. A zero price is replaced by any
// later value.
func composerPrices(composer []byte) (card, regular *int) {
	eachWidget(composer, "webPrice-", func(state jsonval.Value) bool {
		c, r := statePrices(state)
		if !positive(card) {
			card = c
		}
		if !positive(regular) {
			regular = r
		}
		if block := state.Get("priceBlock"); block.IsObject() {
			c, r = statePrices(block)
			if !positive(card) {
				card = c
			}
			if !positive(regular) {
				regular = r
			}
		}
		return !positive(card) && !positive(regular)
	})
	return card, regular
}

func statePrices(state jsonval.Value) (card, regular *int) {
	card = normalize.Digits(state.Get("cardPrice").Or(state.Get("ozonCardPrice")).Raw())
	regular = normalize.Digits(state.Get("price").Or(state.Get("basePrice")).Raw())
	return card, regular
}

// htmlPrices reads the entity-escaped data-state of the state-webPrice-*
// element.
func htmlPrices(doc *goquery.Document) (card, regular *int) {
	raw, ok := cleaner.DataState(doc, "state-webPrice-")
	if !ok {
		return nil, nil
	}
	state, err := jsonval.ParseString(raw)
	if err != nil {
		slog.Debug("ozon: state-webPrice is not JSON", "error", err)
		return nil, nil
	}
	return normalize.Digits(state.Get("cardPrice").Raw()), normalize.Digits(state.Get("price").Raw())
}

func positive(p *int) bool {
	return p != nil && *p > 0
}
