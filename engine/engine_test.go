package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cardgrab/models"
)

func TestRun_ReturnsResult(t *testing.T) {
	p := NewPool(2, time.Second)
	got, err := Run(context.Background(), p, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	s := p.Stats()
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, int64(1), s.Completed)
}

func TestRun_HardTimeoutKeepsSlotUntilWorkerReturns(t *testing.T) {
	p := NewPool(1, 20*time.Millisecond)
	release := make(chan struct{})
	var finished atomic.Bool

	_, err := Run(context.Background(), p, func(ctx context.Context) (int, error) {
		<-release
		finished.Store(true)
		return 0, ctx.Err()
	})
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeTimeout, se.Code)
	assert.Equal(t, 1, p.Stats().Busy)

	// The only slot is still held, so a second job cannot start before the
	// caller's context expires.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	started := false
	_, err = Run(ctx, p, func(context.Context) (int, error) {
		started = true
		return 0, nil
	})
	require.ErrorAs(t, err, &se)
	assert.False(t, started)

	close(release)
	require.Eventually(t, func() bool { return p.Stats().Busy == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, finished.Load())
	assert.Equal(t, int64(1), p.Stats().TimedOut)

	got, err := Run(context.Background(), p, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestRun_WorkerContextIsDetached(t *testing.T) {
	p := NewPool(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	observed := make(chan error, 1)

	_, err := Run(ctx, p, func(wctx context.Context) (int, error) {
		cancel()
		time.Sleep(10 * time.Millisecond)
		observed <- wctx.Err()
		return 0, nil
	})
	// The caller may see either the result or its own cancellation.
	if err != nil {
		var se *models.ScrapeError
		require.ErrorAs(t, err, &se)
	}
	assert.NoError(t, <-observed)
}

func TestRun_PanicBecomesBrowserCrash(t *testing.T) {
	p := NewPool(1, time.Second)
	_, err := Run(context.Background(), p, func(context.Context) (int, error) {
		panic("boom")
	})
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeBrowserCrash, se.Code)
	require.Eventually(t, func() bool { return p.Stats().Busy == 0 }, time.Second, 5*time.Millisecond)
}

type fakeAdapter struct {
	rec *models.ProductRecord
	err error
	got []string
}

func (f *fakeAdapter) Extract(_ context.Context, url string) (*models.ProductRecord, error) {
	f.got = append(f.got, url)
	return f.rec, f.err
}

type fakeSink struct {
	published []string
	err       error
}

func (f *fakeSink) Publish(_ context.Context, url string, _ *models.ProductRecord) error {
	f.published = append(f.published, url)
	return f.err
}

func TestExtractor_RoutesBySite(t *testing.T) {
	ozon := &fakeAdapter{rec: &models.ProductRecord{Title: "O", Source: models.SiteOzon}}
	wb := &fakeAdapter{rec: &models.ProductRecord{Title: "W", Source: models.SiteWB}}
	sink := &fakeSink{err: errors.New("redis down")}

	e := NewExtractor(map[models.Site]Adapter{models.SiteOzon: ozon, models.SiteWB: wb})
	e.SetSink(sink)

	rec, err := e.Extract(context.Background(), "https://www.ozon.ru/product/x-123/")
	require.NoError(t, err)
	assert.Equal(t, "O", rec.Title)

	rec, err = e.Extract(context.Background(), "https://www.wildberries.ru/catalog/123456789/detail.aspx")
	require.NoError(t, err)
	assert.Equal(t, "W", rec.Title)

	assert.Len(t, sink.published, 2)
}

func TestExtractor_UnsupportedSite(t *testing.T) {
	e := NewExtractor(map[models.Site]Adapter{})

	_, err := e.Extract(context.Background(), "https://example.com/p/1")
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeUnsupported, se.Code)

	_, err = e.ExtractSite(context.Background(), "https://www.ozon.ru/p/1", models.SiteOzon)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeUnsupported, se.Code)
}

func TestExtractor_AdapterErrorIsNotPublished(t *testing.T) {
	nav := models.NewScrapeError(models.ErrCodeNavigation, "unreachable", nil)
	sink := &fakeSink{}
	e := NewExtractor(map[models.Site]Adapter{models.SiteWB: &fakeAdapter{err: nav}})
	e.SetSink(sink)

	_, err := e.Extract(context.Background(), "https://wb.ru/catalog/1/")
	assert.ErrorIs(t, err, nav)
	assert.Empty(t, sink.published)
}

type fakeFetcher struct{ calls atomic.Int32 }

func (f *fakeFetcher) Fetch(_ context.Context, url string, site models.Site) (*models.RawPageArtifacts, error) {
	f.calls.Add(1)
	return &models.RawPageArtifacts{FinalURL: url, Site: site}, nil
}

func TestPooledFetcher(t *testing.T) {
	inner := &fakeFetcher{}
	f := NewPooledFetcher(NewPool(1, time.Second), inner)

	art, err := f.Fetch(context.Background(), "https://www.ozon.ru/p/1", models.SiteOzon)
	require.NoError(t, err)
	assert.Equal(t, models.SiteOzon, art.Site)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestMultiSink_PublishesToAll(t *testing.T) {
	boom := errors.New("webhook 503")
	first, second := &fakeSink{err: boom}, &fakeSink{}

	err := MultiSink{first, second}.Publish(context.Background(), "u", &models.ProductRecord{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"u"}, first.published)
	assert.Equal(t, []string{"u"}, second.published)

	assert.NoError(t, MultiSink{second}.Publish(context.Background(), "v", &models.ProductRecord{}))
}
