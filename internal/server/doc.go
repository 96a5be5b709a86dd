// Package server exposes the health, metrics and market lookup endpoints.
//
// Routes:
//   - GET /health: component status, 503 when a required dependency is down
//   - GET {metrics_path}: Prometheus exposition
//   - GET /markets/{marketID}: fetch one snapshot through the market data client
package server
