package scraper

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/use-agent/cardgrab/jsonval"
	"github.com/use-agent/cardgrab/models"
	"github.com/use-agent/cardgrab/normalize"
)

// metaJS returns the page metadata.
const metaJS = `() => ({
	ld: Array.from(document.querySelectorAll('script[type="application/ld+json"]')).map(s => s.textContent || ""),
	ogTitle: (document.querySelector('meta[property="og:title"]') || {getAttribute: () => ""}).getAttribute("content") || "",
	ogImages: Array.from(document.querySelectorAll('meta[property="og:image"]')).map(m => m.getAttribute("content")).filter(Boolean),
	h1: (document.querySelector("h1") || {innerText: ""}).innerText || ""
})`

// stateJS reads the Wildberries state container: the known script ids
// first, then the first data-state attribute anywhere.
const stateJS = `() => {
	for (const id of ["state-card-app", "state-portal-app", "state-product-app", "__INITIAL_STATE__"]) {
		const el = document.querySelector("script#" + id);
		if (el) return el.textContent || "";
	}
	const el = document.querySelector("[data-state]");
	return el ? (el.getAttribute("data-state") || "") : "";
}`

// composerJS asks Ozon's composer API for the current page. The body is
// returned as text so widget key order survives.
const composerJS = `() => {
	const path = location.pathname + location.search;
	return fetch("/api/composer-api.bx/page/json/v2?url=" + path + "&__rr=1", {credentials: "include"})
		.then(r => r.text())
		.catch(() => "");
}`

// galleryJS lists candidate image attributes for every gallery selector.
const galleryJS = `() => {
	const sels = [
		"img[src*='wbstatic']",
		"img[src*='images.wbstatic']",
		"img[data-src*='wbstatic']",
		"img[data-original*='wbstatic']",
		"picture source[srcset]",
		".product-page__gallery img",
		"[data-gallery] img",
		"img[srcset]",
	];
	const out = [];
	for (const sel of sels) {
		for (const el of document.querySelectorAll(sel)) {
			out.push({
				src: el.getAttribute("src") || "",
				dataSrc: el.getAttribute("data-src") || "",
				dataOriginal: el.getAttribute("data-original") || "",
				srcset: el.getAttribute("srcset") || "",
				dataSrcset: el.getAttribute("data-srcset") || "",
			});
		}
	}
	return out;
}`

type pageMeta struct {
	LD       []string
	OGTitle  string
	OGImages []string
	H1       string
}

type imageAttrs struct {
	Src          string
	DataSrc      string
	DataOriginal string
	Srcset       string
	DataSrcset   string
}

// collectMeta fills the ld+json, Open Graph and h1 fields.
func collectMeta(p *rod.Page, art *models.RawPageArtifacts) {
	v := evalValue(p, metaJS)
	if !v.IsObject() {
		return
	}
	m := decodeMeta(v)
	art.LDScripts = m.LD
	art.OGTitle = m.OGTitle
	art.OGImages = m.OGImages
	art.H1 = m.H1
}

func decodeMeta(v jsonval.Value) pageMeta {
	return pageMeta{
		LD:       strs(v.Get("ld")),
		OGTitle:  strings.TrimSpace(str(v.Get("ogTitle"))),
		OGImages: strs(v.Get("ogImages")),
		H1:       strings.TrimSpace(str(v.Get("h1"))),
	}
}

func collectState(p *rod.Page) string {
	return evalStringOrEmpty(p, stateJS)
}

func collectComposer(p *rod.Page) []byte {
	return validComposer(evalStringOrEmpty(p, composerJS))
}

// validComposer keeps the composer body only when it is a JSON object.
func validComposer(body string) []byte {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "{") || !json.Valid([]byte(body)) {
		if body != "" {
			slog.Debug("composer response is not a JSON object", "length", len(body))
		}
		return nil
	}
	return []byte(body)
}

func collectGallery(p *rod.Page) []string {
	return gallerySources(decodeImageAttrs(evalValue(p, galleryJS)))
}

func decodeImageAttrs(v jsonval.Value) []imageAttrs {
	items := v.Arr()
	if len(items) == 0 {
		return nil
	}
	attrs := make([]imageAttrs, 0, len(items))
	for _, it := range items {
		attrs = append(attrs, imageAttrs{
			Src:          str(it.Get("src")),
			DataSrc:      str(it.Get("dataSrc")),
			DataOriginal: str(it.Get("dataOriginal")),
			Srcset:       str(it.Get("srcset")),
			DataSrcset:   str(it.Get("dataSrcset")),
		})
	}
	return attrs
}

// gallerySources picks one URL per element (src, data-src, data-original,
// then the last srcset candidate) and dedups in document order.
func gallerySources(attrs []imageAttrs) []string {
	urls := make([]string, 0, len(attrs))
	for _, a := range attrs {
		src := firstNonEmpty(a.Src, a.DataSrc, a.DataOriginal)
		if src == "" {
			src = lastSrcsetCandidate(firstNonEmpty(a.Srcset, a.DataSrcset))
		}
		if src != "" {
			urls = append(urls, src)
		}
	}
	return normalize.MergeURLs(urls)
}

// lastSrcsetCandidate returns the URL of the last "url descriptor" entry.
func lastSrcsetCandidate(srcset string) string {
	if srcset == "" {
		return ""
	}
	parts := strings.Split(srcset, ",")
	fields := strings.Fields(parts[len(parts)-1])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func str(v jsonval.Value) string {
	s, _ := v.Str()
	return s
}

// strs keeps the string elements of an array.
func strs(v jsonval.Value) []string {
	var out []string
	for _, e := range v.Arr() {
		if s, ok := e.Str(); ok {
			out = append(out, s)
		}
	}
	return out
}
