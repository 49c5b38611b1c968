package models

// RawPageArtifacts is everything one browser fetch captured from a page.
// It lives only for the duration of a single extraction.
type RawPageArtifacts struct {
	// HTML is the full rendered page markup.
	HTML string

	// LDScripts holds the text of every application/ld+json script tag.
	LDScripts []string

	// OGTitle and OGImages come from the page-level Open Graph meta tags.
	OGTitle  string
	OGImages []string

	// H1 is the text of the first heading on the page.
	H1 string

	// StateText is the Wildberries embedded state blob, empty when absent.
	StateText string

	// Composer is the raw JSON body returned by Ozon's composer API when it
	// was fetched from inside the page. Nil when absent or not valid JSON.
	Composer []byte

	// GalleryImages are image URLs scraped from the DOM, https-normalized.
	GalleryImages []string

	// Screenshot is the diagnostic screenshot path, empty if capture failed.
	Screenshot string

	// FinalURL is the page URL after redirects.
	FinalURL string

	Site Site
}
