package models

// ProductRequest is the payload for POST /api/v1/product.
type ProductRequest struct {
	// URL is the product page to extract. Required.
	URL string `json:"url" binding:"required,url"`

	// Site forces the marketplace adapter ("ozon", "wb" or "wildberries").
	// When empty it is detected from the URL host.
	Site string `json:"site,omitempty"`

	// MaxAge enables the response cache: a cached record younger than
	// MaxAge milliseconds is returned without opening a browser.
	// 0 (default) always extracts fresh.
	MaxAge int64 `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// ResolveSite returns the adapter for the request, honouring an explicit
// Site before host detection.
func (r *ProductRequest) ResolveSite() (Site, bool) {
	if r.Site != "" {
		return ParseSite(r.Site)
	}
	return DetectSite(r.URL)
}
