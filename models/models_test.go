package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFold_FirstNonNilWins(t *testing.T) {
	rec := Fold(SiteOzon,
		Patch{Rating: ptr("4.5")},
		Patch{Title: ptr("Наушники"), Rating: ptr("3"), Price: ptr(9990)},
		Patch{Title: ptr("Другое"), Reviews: ptr(12), Price: ptr(1)},
	)
	assert.Equal(t, "Наушники", rec.Title)
	assert.Equal(t, "4.5", *rec.Rating)
	assert.Equal(t, 12, *rec.Reviews)
	assert.Equal(t, 9990, *rec.Price)
	assert.Nil(t, rec.Description)
	assert.Equal(t, SiteOzon, rec.Source)
}

func TestFold_DefaultsAndEmptyLists(t *testing.T) {
	rec := Fold(SiteWB)
	assert.Equal(t, DefaultTitle, rec.Title)
	require.NotNil(t, rec.Images)
	require.NotNil(t, rec.Videos)
	assert.Empty(t, rec.Images)
	assert.Empty(t, rec.Videos)

	rec = Fold(SiteWB, Patch{Title: ptr("")}, Patch{Title: ptr("поздний")})
	assert.Equal(t, DefaultTitle, rec.Title)
}

func TestFold_ImagesDedupFirstSeen(t *testing.T) {
	rec := Fold(SiteOzon,
		Patch{Images: []string{"//x", "https://a/1.jpg"}},
		Patch{Images: []string{"//x", "https://a/2.jpg", "https://a/1.jpg"}},
	)
	assert.Equal(t, []string{"https://x", "https://a/1.jpg", "https://a/2.jpg"}, rec.Images)
}

func TestPatch_MergeKeepsExisting(t *testing.T) {
	p := Patch{Title: ptr("ld"), Images: []string{"https://a/1.jpg"}}
	got := p.Merge(Patch{Title: ptr("api"), Price: ptr(5500), Images: []string{"https://a/2.jpg"}})
	assert.Equal(t, "ld", *got.Title)
	assert.Equal(t, 5500, *got.Price)
	assert.Equal(t, []string{"https://a/1.jpg", "https://a/2.jpg"}, got.Images)
}

func TestProductRecord_CloneIsDeep(t *testing.T) {
	orig := &ProductRecord{Title: "t", Price: ptr(10), Images: []string{"a"}, Videos: []string{}}
	c := orig.Clone()
	*c.Price = 20
	c.Images[0] = "b"
	assert.Equal(t, 10, *orig.Price)
	assert.Equal(t, "a", orig.Images[0])

	var nilRec *ProductRecord
	assert.Nil(t, nilRec.Clone())
}

func TestDetectSite(t *testing.T) {
	tests := []struct {
		url  string
		want Site
		ok   bool
	}{
		{"https://www.ozon.ru/product/chaynik-148320145/", SiteOzon, true},
		{"https://ozon.ru/t/abc", SiteOzon, true},
		{"https://www.wildberries.ru/catalog/146972810/detail.aspx", SiteWB, true},
		{"https://global.wb.ru/catalog/1/", SiteWB, true},
		{"https://notozon.ru/product/1", "", false},
		{"https://example.com", "", false},
		{"::not a url", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectSite(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestParseSite(t *testing.T) {
	for in, want := range map[string]Site{"ozon": SiteOzon, " WB ": SiteWB, "wildberries": SiteWB} {
		got, ok := ParseSite(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSite("amazon")
	assert.False(t, ok)
}

func TestScrapeError(t *testing.T) {
	err := NewScrapeError(ErrCodeTimeout, "hard timeout", nil)
	assert.True(t, err.IsNavigation())
	assert.Equal(t, "SCRAPE_TIMEOUT: hard timeout", err.Error())
	assert.False(t, NewScrapeError(ErrCodeUnsupported, "x", nil).IsNavigation())
	assert.Equal(t, &ErrorDetail{Code: ErrCodeTimeout, Message: "hard timeout"}, err.ToDetail())
}
