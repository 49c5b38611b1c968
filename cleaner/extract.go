package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageMeta is the page-level metadata the adapters fall back on when the
// structured sources come up empty.
type PageMeta struct {
	Title       string   // <title>
	OGTitle     string   // first og:title
	OGImages    []string // every og:image, document order
	Description string   // meta[name=description]
	H1          string   // first h1 text
}

// ParseHTML parses the rendered page once for every goquery consumer. It
// returns nil for a blank or unparsable page.
func ParseHTML(rawHTML string) *goquery.Document {
	if strings.TrimSpace(rawHTML) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	return doc
}

// ExtractMeta collects the fallback metadata. doc is the parsed rawHTML and
// may be nil.
func ExtractMeta(rawHTML string, doc *goquery.Document) PageMeta {
	meta := PageMeta{Title: ExtractTitle(rawHTML)}
	if doc == nil {
		return meta
	}

	doc.FindMatcher(metaPropertySel).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		switch prop {
		case "og:title":
			if meta.OGTitle == "" {
				meta.OGTitle = content
			}
		case "og:image":
			meta.OGImages = append(meta.OGImages, content)
		}
	})

	doc.FindMatcher(metaNameSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("name", ""), "description") {
			return true
		}
		meta.Description = strings.TrimSpace(s.AttrOr("content", ""))
		return false
	})

	meta.H1 = strings.TrimSpace(doc.FindMatcher(h1Sel).First().Text())
	return meta
}

// DataState returns the entity-decoded data-state attribute of the first
// element whose id starts with idPrefix.
func DataState(doc *goquery.Document, idPrefix string) (string, bool) {
	if doc == nil {
		return "", false
	}
	var state string
	found := false
	doc.FindMatcher(dataStateSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.HasPrefix(s.AttrOr("id", ""), idPrefix) {
			return true
		}
		state, found = s.Attr("data-state")
		return !found
	})
	return state, found
}
