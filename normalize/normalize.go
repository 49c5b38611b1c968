// Package normalize holds the small value-cleaning helpers shared by every
// marketplace adapter: digit-only price parsing, URL dedup, rating and
// description formatting.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Digits keeps only the decimal digits of a scalar's text form and parses
// them as an integer. Prices arrive as "12 990 ₽", 12990 or "12990", so all of
// them go through here. Returns nil when no digits remain or v is not a scalar.
func Digits(v any) *int {
	s, ok := scalarText(v)
	if !ok {
		return nil
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return nil
	}
	return &n
}

// Text returns the trimmed text of a string or number, nil for anything
// else or for blank strings.
func Text(v any) *string {
	switch v.(type) {
	case string:
		s := strings.TrimSpace(v.(string))
		if s == "" {
			return nil
		}
		return &s
	case bool, nil:
		return nil
	}
	s, ok := scalarText(v)
	if !ok {
		return nil
	}
	return &s
}

// Rating formats a rating value with one decimal and strips trailing zeros:
// 4.50 -> "4.5", 5.00 -> "5". Values that are not numeric are kept as text.
func Rating(v any) *string {
	f, ok := toFloat(v)
	if !ok {
		return Text(v)
	}
	s := strconv.FormatFloat(f, 'f', 1, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return &s
}

// Int coerces a number or numeric string to an int.
func Int(v any) *int {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

// HundredthsToUnits converts a kopeck-style value to whole roubles,
// rounding half to even.
func HundredthsToUnits(v float64) int {
	return int(math.RoundToEven(v / 100))
}

// TrimDescription trims s and, when it is longer than max runes, cuts it at
// the last word boundary before max and appends an ellipsis.
func TrimDescription(s string, max int) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return &s
	}
	cut := runes[:max]
	if i := lastSpace(cut); i > 0 {
		cut = cut[:i]
	}
	out := strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}) + "…"
	return &out
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

// NormalizeURL trims u and turns protocol-relative URLs into https ones.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	return u
}

// MergeURLs concatenates the lists, normalizes every entry and drops blanks
// and duplicates while keeping first-seen order. The result is never nil.
func MergeURLs(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, u := range list {
			u = NormalizeURL(u)
			if u == "" {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

func scalarText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
