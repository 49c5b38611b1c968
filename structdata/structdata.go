// Package structdata pulls schema.org Product data out of ld+json blocks.
//
// Marketplace pages routinely ship broken ld+json (concatenated objects,
// trailing garbage, HTML entities), so parsing is tolerant and every failure
// is swallowed: a page without usable structured data simply yields no
// candidates.
package structdata

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/cardgrab/jsonval"
	"github.com/use-agent/cardgrab/models"
	"github.com/use-agent/cardgrab/normalize"
)

var (
	ldScriptSel = cascadia.MustCompile(`script[type="application/ld+json"]`)
	braceBlob   = regexp.MustCompile(`\{[\s\S]*?\}`)
)

// Fields are the product attributes structured data can provide.
type Fields struct {
	Title       *string
	Description *string
	Rating      *string
	Reviews     *int
	Images      []string
}

// Patch converts the fields into a fold-ready patch.
func (f Fields) Patch() models.Patch {
	return models.Patch{
		Title:       f.Title,
		Description: f.Description,
		Rating:      f.Rating,
		Reviews:     f.Reviews,
		Images:      f.Images,
	}
}

// Parse returns every JSON object found in the captured ld+json scripts and
// in ld+json tags of the parsed page, in that order. doc may be nil.
//
// A script that is not a valid JSON document is scanned for {...} blobs,
// each decoded on its own. Script bodies from the page are only accepted as
// whole documents.
func Parse(doc *goquery.Document, scripts []string) []jsonval.Value {
	var out []jsonval.Value
	for _, s := range scripts {
		if objs, ok := parseLiteral(s); ok {
			out = append(out, objs...)
			continue
		}
		for _, blob := range braceBlob.FindAllString(s, -1) {
			v, err := jsonval.ParseString(blob)
			if err != nil {
				continue
			}
			if v.IsObject() {
				out = append(out, v)
			}
		}
	}

	if doc == nil {
		return out
	}
	doc.FindMatcher(ldScriptSel).Each(func(_ int, s *goquery.Selection) {
		if objs, ok := parseLiteral(s.Text()); ok {
			out = append(out, objs...)
		}
	})
	return out
}

// parseLiteral decodes s as a whole JSON document: an array contributes its
// object elements, an object contributes itself.
func parseLiteral(s string) ([]jsonval.Value, bool) {
	v, err := jsonval.ParseString(s)
	if err != nil {
		return nil, false
	}
	switch {
	case v.IsArray():
		var objs []jsonval.Value
		for _, e := range v.Arr() {
			if e.IsObject() {
				objs = append(objs, e)
			}
		}
		return objs, true
	case v.IsObject():
		return []jsonval.Value{v}, true
	}
	return nil, true
}

// SelectProduct returns the first candidate typed Product, looking one level
// into @graph arrays.
func SelectProduct(candidates []jsonval.Value) (jsonval.Value, bool) {
	for _, c := range candidates {
		if isProduct(c) {
			return c, true
		}
		for _, g := range c.Get("@graph").Arr() {
			if isProduct(g) {
				return g, true
			}
		}
	}
	return jsonval.Nil, false
}

func isProduct(v jsonval.Value) bool {
	t, ok := v.Get("@type").Str()
	return ok && t == "Product"
}

// ExtractFields reads title, description, rating, review count and images
// from a Product object.
func ExtractFields(product jsonval.Value) Fields {
	f := Fields{
		Title:       normalize.Text(product.Get("name").Raw()),
		Description: normalize.Text(product.Get("description").Raw()),
		Images:      images(product),
	}
	if ag := product.Get("aggregateRating"); ag.IsObject() {
		f.Rating = normalize.Rating(ag.Get("ratingValue").Raw())
		f.Reviews = normalize.Int(ag.Get("reviewCount").Raw())
	}
	return f
}

// Extract runs the whole chain and returns an empty patch when the page has
// no Product object.
func Extract(doc *goquery.Document, scripts []string) models.Patch {
	product, ok := SelectProduct(Parse(doc, scripts))
	if !ok {
		return models.Patch{}
	}
	return ExtractFields(product).Patch()
}

func images(product jsonval.Value) []string {
	var urls []string
	for _, key := range []string{"image", "images", "associatedMedia"} {
		v := product.Get(key)
		if s, ok := v.Str(); ok {
			urls = append(urls, s)
			continue
		}
		for _, it := range v.Arr() {
			if s, ok := it.Str(); ok {
				urls = append(urls, s)
				continue
			}
			if !it.IsObject() {
				continue
			}
			u := it.Get("url").Or(it.Get("contentUrl"), it.Get("src"))
			if s, ok := u.Str(); ok && s != "" {
				urls = append(urls, s)
			}
		}
	}
	return normalize.MergeURLs(urls)
}
