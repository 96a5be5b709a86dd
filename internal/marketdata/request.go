package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rickgao/ares/internal/metrics"
	"github.com/rickgao/ares/internal/model"
)

var errNotObject = errors.New("response is not a JSON object")

// FetchMarketData retrieves the current snapshot for marketID.
//
// With read-through enabled a cached snapshot is returned without a request.
// Otherwise the provider is always queried and, when a cache is configured,
// the result is recorded in it.
func (c *Client) FetchMarketData(ctx context.Context, marketID string) (model.Snapshot, error) {
	if marketID == "" {
		return nil, ErrEmptyMarketID
	}

	start := time.Now()

	if c.readThrough && c.cache != nil {
		if snap, ok := c.lookup(ctx, marketID); ok {
			c.metrics.RecordFetch(metrics.FetchCacheHit, time.Since(start))
			return snap, nil
		}
	}

	body, err := c.doRequest(ctx, marketID)
	if err != nil {
		c.logger.Error("failed to fetch market data",
			"market_id", marketID,
			"error", err,
		)
		c.metrics.RecordFetch(metrics.FetchError, time.Since(start))
		return nil, err
	}

	snap, err := decodeSnapshot(marketID, body)
	if err != nil {
		c.logger.Error("failed to parse market data",
			"market_id", marketID,
			"error", err,
		)
		c.metrics.RecordFetch(metrics.FetchParseError, time.Since(start))
		return nil, err
	}

	c.remember(ctx, marketID, snap)
	c.metrics.RecordFetch(metrics.FetchSuccess, time.Since(start))

	return snap, nil
}

// endpoint returns the provider URL for a market.
func (c *Client) endpoint(marketID string) string {
	return c.baseURL + "/" + url.PathEscape(marketID)
}

// doRequest performs the GET and returns the body of a successful response.
// All failures are returned as *FetchError.
func (c *Client) doRequest(ctx context.Context, marketID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(marketID), nil)
	if err != nil {
		return nil, &FetchError{MarketID: marketID, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if c.credential != "" {
		req.Header.Set("Authorization", c.credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{MarketID: marketID, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{MarketID: marketID, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		return nil, &FetchError{
			MarketID:   marketID,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}

// decodeSnapshot parses a provider body into a Snapshot.
func decodeSnapshot(marketID string, body []byte) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, &ParseError{MarketID: marketID, Body: body, Err: err}
	}
	// A literal null decodes into a nil map without error.
	if snap == nil {
		return nil, &ParseError{MarketID: marketID, Body: body, Err: errNotObject}
	}
	return snap, nil
}

// lookup consults the cache. Errors count as misses.
func (c *Client) lookup(ctx context.Context, marketID string) (model.Snapshot, bool) {
	snap, ok, err := c.cache.Get(ctx, marketID)
	switch {
	case err != nil:
		c.logger.Warn("snapshot cache read failed",
			"market_id", marketID,
			"error", err,
		)
		c.metrics.RecordCacheLookup(metrics.CacheError)
		return nil, false
	case !ok:
		c.metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, false
	default:
		c.metrics.RecordCacheLookup(metrics.CacheHit)
		return snap, true
	}
}

// remember records a successful snapshot. Cache failures never fail the fetch.
func (c *Client) remember(ctx context.Context, marketID string, snap model.Snapshot) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, marketID, snap); err != nil {
		c.logger.Warn("snapshot cache write failed",
			"market_id", marketID,
			"error", err,
		)
	}
}
