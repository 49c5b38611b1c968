package cleaner

import "github.com/andybalholm/cascadia"

// Precompiled selectors shared by the metadata helpers.
var (
	metaPropertySel = cascadia.MustCompile(`meta[property]`)
	metaNameSel     = cascadia.MustCompile(`meta[name]`)
	h1Sel           = cascadia.MustCompile(`h1`)
	dataStateSel    = cascadia.MustCompile(`[id][data-state]`)
)
