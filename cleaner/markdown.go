package cleaner

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/use-agent/cardgrab/normalize"
)

var htmlTag = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

// Cleaner turns raw description values into plain caption-ready text.
// The converter is created once and reused across all requests (goroutine-safe).
type Cleaner struct {
	mdConverter *converter.Converter
	maxLen      int
}

// NewCleaner creates a Cleaner that trims descriptions to maxLen runes.
// maxLen <= 0 disables trimming.
func NewCleaner(maxLen int) *Cleaner {
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
		maxLen:      maxLen,
	}
}

// newMarkdownConverter strips script/style noise (base plugin) and renders
// the rest as CommonMark.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
}

// Description converts markup to Markdown when the value contains tags and
// trims the result at a word boundary. Nil in, nil out.
func (c *Cleaner) Description(raw *string) *string {
	if raw == nil {
		return nil
	}
	text := *raw
	if htmlTag.MatchString(text) {
		md, err := c.mdConverter.ConvertString(text)
		if err != nil {
			slog.Debug("description: markdown conversion failed, keeping raw text", "error", err)
		} else {
			text = md
		}
	}
	return normalize.TrimDescription(strings.TrimSpace(text), c.maxLen)
}
