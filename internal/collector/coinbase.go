package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CoinbaseFetcher implements Fetcher using the public Coinbase ticker endpoint.
type CoinbaseFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewCoinbaseFetcher creates a fetcher with optional proxy support.
func NewCoinbaseFetcher(baseURL, proxyURL string, timeout time.Duration) *CoinbaseFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CoinbaseFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *CoinbaseFetcher) Name() string { return "coinbase" }

// tickerPrice accepts the price as a JSON string ("2500.125") or a bare number.
type tickerPrice float64

func (p *tickerPrice) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("price is null")
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return fmt.Errorf("price %s is not numeric", string(data))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("price %s is not finite", string(data))
	}
	*p = tickerPrice(v)
	return nil
}

// FetchCurrentPrice issues a single GET against /products/{product}/ticker.
func (f *CoinbaseFetcher) FetchCurrentPrice(ctx context.Context, product string) (float64, error) {
	path := fmt.Sprintf("/products/%s/ticker", url.PathEscape(product))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "PaperTicker/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &APIError{StatusCode: resp.StatusCode, Path: path, Body: string(body)}
	}

	var result struct {
		Price *tickerPrice `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}
	if result.Price == nil {
		return 0, fmt.Errorf("decode ticker: price field missing")
	}
	return float64(*result.Price), nil
}
