package collector

import "context"

// Fetcher defines the interface for fetching the latest ticker price.
type Fetcher interface {
	FetchCurrentPrice(ctx context.Context, product string) (float64, error)
	Name() string
}
