package models

// ProductResponse is the response for POST /api/v1/product.
type ProductResponse struct {
	// Success indicates whether the extraction completed without errors.
	Success bool `json:"success"`

	// Product is the extracted card. Nil when Success is false.
	Product *ProductRecord `json:"product,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent serving the request.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser worker pool.
type PoolStats struct {
	Workers   int   `json:"workers"`
	Busy      int   `json:"busy"`
	Waiting   int   `json:"waiting"`
	Completed int64 `json:"completed"`
	TimedOut  int64 `json:"timed_out"`
}
