package engine

import (
	"context"
	"errors"

	"github.com/use-agent/cardgrab/models"
)

// Fetcher loads a product page and captures its raw artifacts.
type Fetcher interface {
	Fetch(ctx context.Context, url string, site models.Site) (*models.RawPageArtifacts, error)
}

// Adapter turns a product URL of one marketplace into a record.
type Adapter interface {
	Extract(ctx context.Context, url string) (*models.ProductRecord, error)
}

// RecordSink receives every successfully extracted record.
type RecordSink interface {
	Publish(ctx context.Context, url string, rec *models.ProductRecord) error
}

// MultiSink publishes to every sink in order and joins their errors.
type MultiSink []RecordSink

func (m MultiSink) Publish(ctx context.Context, url string, rec *models.ProductRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, url, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PooledFetcher bounds an underlying Fetcher with a Pool.
type PooledFetcher struct {
	pool  *Pool
	inner Fetcher
}

// NewPooledFetcher wraps inner so that at most pool-size fetches run at once.
func NewPooledFetcher(pool *Pool, inner Fetcher) *PooledFetcher {
	return &PooledFetcher{pool: pool, inner: inner}
}

func (f *PooledFetcher) Fetch(ctx context.Context, url string, site models.Site) (*models.RawPageArtifacts, error) {
	return Run(ctx, f.pool, func(ctx context.Context) (*models.RawPageArtifacts, error) {
		return f.inner.Fetch(ctx, url, site)
	})
}
