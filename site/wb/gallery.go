package wb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/cardgrab/jsonval"
	"github.com/use-agent/cardgrab/normalize"
)

const (
	basketHostFormat = "https://basket-%02d.wbbasket.ru"
	basketCount      = 35
	basketSpread     = 20

	defaultFrameCount = 8
)

var (
	galleryFolders = []string{"big", "c516x688", "c246x328"}
	galleryExts    = []string{"webp", "jpg"}
)

// Prober checks whether an image URL exists.
type Prober interface {
	Head(ctx context.Context, url string) bool
}

// GalleryResolver finds which basket mirror, path template, folder and
// extension serve a product's images, then lays out its frame URLs.
type GalleryResolver struct {
	prober Prober
}

// NewGalleryResolver creates a resolver probing with p.
func NewGalleryResolver(p Prober) *GalleryResolver {
	return &GalleryResolver{prober: p}
}

// PickBase probes frame 1 across mirrors in order host → template → folder
// → ext and returns the directory URL and extension of the first hit.
// Probing stops at the first success.
func (g *GalleryResolver) PickBase(ctx context.Context, id int64) (base, ext string, ok bool) {
	vol := id / 100000
	part := id / 1000
	templates := []string{
		fmt.Sprintf("/vol%d/part%d/%d/images/%%s/1.%%s", vol, part, id),
		fmt.Sprintf("/vol%d/%d/images/%%s/1.%%s", vol, id),
	}

	probes := 0
	for _, host := range basketHosts(id) {
		for _, tmpl := range templates {
			for _, folder := range galleryFolders {
				for _, e := range galleryExts {
					if ctx.Err() != nil {
						return "", "", false
					}
					probe := host + fmt.Sprintf(tmpl, folder, e)
					probes++
					if g.prober.Head(ctx, probe) {
						slog.Info("wb gallery base found", "nm", id, "url", probe, "probes", probes)
						return probe[:strings.LastIndex(probe, "/")], e, true
					}
				}
			}
		}
	}
	slog.Info("wb gallery base not found", "nm", id, "probes", probes)
	return "", "", false
}

// Frames returns frames 1..count at the resolved base. Only frame 1 was
// verified; the rest are assumed to exist.
func Frames(base, ext string, count int) []string {
	out := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, fmt.Sprintf("%s/%d.%s", base, i, ext))
	}
	return out
}

// basketHosts lists every mirror starting at (id mod 20)+1 and wrapping.
func basketHosts(id int64) []string {
	start := int(id%basketSpread) + 1
	hosts := make([]string, 0, basketCount)
	for i := start; i <= basketCount; i++ {
		hosts = append(hosts, fmt.Sprintf(basketHostFormat, i))
	}
	for i := 1; i < start; i++ {
		hosts = append(hosts, fmt.Sprintf(basketHostFormat, i))
	}
	return hosts
}

// frameCount takes the count from the detail product, then from the highest
// frame index referenced by the page, then the default.
func frameCount(prod jsonval.Value, rawHTML string) int {
	if n := normalize.Int(prod.Get("pics").Or(prod.Get("imagesCount")).Raw()); n != nil && *n > 0 {
		return *n
	}
	if n := maxFrameIndex(rawHTML); n > 0 {
		return n
	}
	return defaultFrameCount
}

// BuildImages resolves the gallery of product id: mirror probing first, then
// frames scraped from the page, then the legacy CDN layout.
func (g *GalleryResolver) BuildImages(ctx context.Context, id int64, prod jsonval.Value, rawHTML string) []string {
	count := frameCount(prod, rawHTML)

	if base, ext, ok := g.PickBase(ctx, id); ok {
		return Frames(base, ext, count)
	}
	if imgs := imagesFromHTML(rawHTML); len(imgs) > 0 {
		return imgs
	}
	return legacyImages(id, count)
}
