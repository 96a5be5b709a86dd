// Package marketdata provides the client for the external market data provider.
//
// Endpoint:
//   - GET https://marketdataapi.com/{marketID}
//
// Requests carry the configured credential verbatim in the Authorization header.
// Every failure is logged once at error level and returned as *FetchError or *ParseError.
// The client never retries; callers own retry policy.
package marketdata
