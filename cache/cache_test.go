package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cardgrab/models"
)

func newTestCache(t *testing.T, maxEntries int) (*Cache, *time.Time) {
	t.Helper()
	c := New(maxEntries)
	t.Cleanup(c.Close)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func record(title string) *models.ProductRecord {
	price := 1299
	return &models.ProductRecord{
		Title:  title,
		Price:  &price,
		Images: []string{"https://ir.ozone.ru/1.jpg"},
		Videos: []string{},
		Source: models.SiteOzon,
	}
}

func TestGet_RespectsMaxAge(t *testing.T) {
	c, now := newTestCache(t, 10)
	key := Key(models.SiteOzon, "https://www.ozon.ru/product/1/")
	c.Set(key, record("Чайник"))

	got, ok := c.Get(key, 1000)
	require.True(t, ok)
	assert.Equal(t, "Чайник", got.Title)

	*now = now.Add(1500 * time.Millisecond)
	_, ok = c.Get(key, 1000)
	assert.False(t, ok)

	_, ok = c.Get(key, 0)
	assert.False(t, ok)
}

func TestGet_ReturnsCopies(t *testing.T) {
	c, _ := newTestCache(t, 10)
	key := Key(models.SiteWB, "https://www.wildberries.ru/catalog/1/detail.aspx")
	rec := record("Платье")
	c.Set(key, rec)

	*rec.Price = 1
	rec.Images[0] = "mutated"

	got, ok := c.Get(key, 60_000)
	require.True(t, ok)
	assert.Equal(t, 1299, *got.Price)
	assert.Equal(t, "https://ir.ozone.ru/1.jpg", got.Images[0])

	got.Images[0] = "mutated again"
	again, _ := c.Get(key, 60_000)
	assert.Equal(t, "https://ir.ozone.ru/1.jpg", again.Images[0])
}

func TestSet_EvictsAtCapacity(t *testing.T) {
	c, _ := newTestCache(t, 2)
	c.Set("a", record("a"))
	c.Set("b", record("b"))
	c.Set("b", record("b2"))
	assert.Equal(t, 2, c.Len())

	c.Set("c", record("c"))
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("c", 60_000)
	assert.True(t, ok)
}

func TestSweep_DropsOldEntries(t *testing.T) {
	c, now := newTestCache(t, 10)
	c.Set("old", record("old"))
	*now = now.Add(2 * time.Hour)
	c.Set("fresh", record("fresh"))

	c.sweep()
	assert.Equal(t, 1, c.Len())
}

func TestKey_DependsOnSite(t *testing.T) {
	url := "https://example.com/p/1"
	assert.NotEqual(t, Key(models.SiteOzon, url), Key(models.SiteWB, url))
	assert.Equal(t, Key(models.SiteOzon, url), Key(models.SiteOzon, url))
}
