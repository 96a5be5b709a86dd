package marketdata

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyMarketID is returned when FetchMarketData is called without a market id.
var ErrEmptyMarketID = errors.New("market id is required")

// FetchError reports a transport failure or an error status from the provider.
type FetchError struct {
	MarketID   string
	StatusCode int // 0 for transport failures
	Body       []byte
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch market data for %q: status %d %s", e.MarketID, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch market data for %q: %v", e.MarketID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a later attempt may succeed.
func (e *FetchError) IsRetryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ParseError reports a provider response body that is not a JSON object.
type ParseError struct {
	MarketID string
	Body     []byte
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse market data for %q: %v", e.MarketID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
