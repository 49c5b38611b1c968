package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const (
	bannerClickTimeout = 500 * time.Millisecond
	bannerClickPause   = 200 * time.Millisecond
)

// bannerProbe is one way of locating a consent button. When Text is set,
// Selector is matched together with a case-insensitive text regex.
type bannerProbe struct {
	Selector string
	Text     string
}

// bannerProbes are tried in order; every match is clicked.
var bannerProbes = []bannerProbe{
	{Selector: "button", Text: "ОК"},
	{Selector: "button", Text: "Окей"},
	{Selector: "button", Text: "OK"},
	{Selector: "button", Text: "Понятно"},
	{Selector: "button", Text: "Принять"},
	{Selector: "button", Text: "Согласен"},
	{Selector: "button", Text: "Разрешить"},
	{Selector: "[data-widget*='cookie'] button"},
	{Selector: "button#onetrust-accept-btn-handler"},
	{Selector: ".cookies-agree"},
	{Selector: ".cookies__btn"},
	{Selector: ".cookie-agree"},
	{Selector: ".cookie-accept"},
}

// hideCookieOverlays hides fixed or sticky blocks that talk about cookies or
// recommendation technologies. Used when no consent button was clicked.
const hideCookieOverlays = `() => {
	for (const el of document.querySelectorAll("div,section,aside")) {
		const st = getComputedStyle(el);
		if ((st.position === "fixed" || st.position === "sticky") && el.innerText &&
			/cookies|куки|рекомендательн|рек. технологии/i.test(el.innerText)) {
			el.style.display = "none";
		}
	}
}`

// dismissBanners clicks every consent button it can find. Failures are
// ignored; the fetch continues with whatever overlays remain.
func dismissBanners(p *rod.Page) {
	clicked := false
	for _, probe := range bannerProbes {
		el, ok := findBanner(p, probe)
		if !ok {
			continue
		}
		if err := el.Timeout(bannerClickTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
			slog.Debug("banner click failed", "selector", probe.Selector, "text", probe.Text, "error", err)
			continue
		}
		clicked = true
		pause(p.GetContext(), bannerClickPause)
	}
	if clicked {
		return
	}
	if _, err := p.Eval(hideCookieOverlays); err != nil {
		slog.Debug("overlay hide script failed", "error", err)
	}
}

// findBanner looks the probe up without waiting.
func findBanner(p *rod.Page, probe bannerProbe) (*rod.Element, bool) {
	if probe.Text != "" {
		has, el, err := p.HasR(probe.Selector, "/"+probe.Text+"/i")
		return el, err == nil && has
	}
	has, el, err := p.Has(probe.Selector)
	return el, err == nil && has
}

// waitSoft waits up to d for selector and reports whether it appeared.
func waitSoft(p *rod.Page, selector string, d time.Duration) bool {
	tp := p.Timeout(d)
	defer tp.CancelTimeout()
	_, err := tp.Element(selector)
	return err == nil
}

// scrollToThird scrolls a third of the way down so lazy galleries render.
func scrollToThird(p *rod.Page) {
	if _, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight / 3)`); err != nil {
		slog.Debug("scroll failed", "error", err)
	}
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
