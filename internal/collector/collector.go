package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"PaperTicker/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, _ string) (float64, error) {
	m.Calls++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Price, nil
}

// Collector binds a Fetcher to the configured product.
type Collector struct {
	Fetcher Fetcher
	Product string
	Now     func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, product string) *Collector {
	return &Collector{Fetcher: fetcher, Product: product, Now: time.Now}
}

// Collect fetches the latest price once. There is no retry.
func (c *Collector) Collect(ctx context.Context) (*model.Quote, error) {
	if c.Fetcher == nil {
		return nil, errors.New("collector: no fetcher configured")
	}
	price, err := c.Fetcher.FetchCurrentPrice(ctx, c.Product)
	if err != nil {
		return nil, fmt.Errorf("fetch current price: %w", err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("fetch current price: %s returned non-finite price %v", c.Fetcher.Name(), price)
	}
	return &model.Quote{Product: c.Product, Price: price, FetchedAt: c.Now()}, nil
}
