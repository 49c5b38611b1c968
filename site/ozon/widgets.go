package ozon

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/buger/jsonparser"
	"github.com/use-agent/cardgrab/jsonval"
)

var errStopWidgets = errors.New("stop")

// eachWidget calls fn with the decoded state of every composer widget whose
// key contains marker, in document order, until fn returns false.
// Widget states arrive either as nested objects or as JSON-encoded strings;
// states that fail to decode are skipped.
func eachWidget(composer []byte, marker string, fn func(state jsonval.Value) bool) {
	if len(composer) == 0 {
		return
	}
	m := []byte(marker)
	err := jsonparser.ObjectEach(composer, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		if !bytes.Contains(key, m) {
			return nil
		}
		var (
			state jsonval.Value
			err   error
		)
		switch dataType {
		case jsonparser.String:
			s, perr := jsonparser.ParseString(value)
			if perr != nil {
				slog.Debug("ozon: widget string unescape failed", "widget", string(key), "error", perr)
				return nil
			}
			state, err = jsonval.New(s).Reparse()
		case jsonparser.Object:
			state, err = jsonval.Parse(value)
		default:
			return nil
		}
		if err != nil || !state.IsObject() {
			slog.Debug("ozon: widget state is not an object", "widget", string(key), "error", err)
			return nil
		}
		if !fn(state) {
			return errStopWidgets
		}
		return nil
	}, "widgetStates")
	if err != nil && !errors.Is(err, errStopWidgets) && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		slog.Debug("ozon: composer walk failed", "error", err)
	}
}

// galleryImages returns the images of the first webGallery widget that has
// any: every images[].src, then coverImage.
func galleryImages(composer []byte) []string {
	var out []string
	eachWidget(composer, "webGallery-", func(state jsonval.Value) bool {
		var urls []string
		for _, it := range state.Get("images").Arr() {
			if src, ok := it.Get("src").Str(); ok && src != "" {
				urls = append(urls, src)
			}
		}
		if cover, ok := state.Get("coverImage").Str(); ok && cover != "" {
			urls = append(urls, cover)
		}
		if len(urls) == 0 {
			return true
		}
		out = urls
		return false
	})
	return out
}
