package models

import (
	"net/url"
	"strings"
)

// Site identifies one of the supported marketplaces.
type Site string

const (
	SiteOzon Site = "ozon"
	SiteWB   Site = "wb"
)

// DetectSite guesses the marketplace from a product URL host.
// It returns false for hosts that belong to neither marketplace.
func DetectSite(rawURL string) (Site, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case host == "ozon.ru" || strings.HasSuffix(host, ".ozon.ru"):
		return SiteOzon, true
	case host == "wildberries.ru" || strings.HasSuffix(host, ".wildberries.ru"),
		host == "wb.ru" || strings.HasSuffix(host, ".wb.ru"):
		return SiteWB, true
	}
	return "", false
}

// ParseSite validates an explicit site discriminator.
func ParseSite(s string) (Site, bool) {
	switch Site(strings.ToLower(strings.TrimSpace(s))) {
	case SiteOzon:
		return SiteOzon, true
	case SiteWB, "wildberries":
		return SiteWB, true
	}
	return "", false
}
