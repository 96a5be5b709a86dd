// Package model defines shared data types used across the ARES market data service.
//
// Conventions:
//   - Snapshots are opaque JSON objects; no field is required.
//   - Timestamps: time.Time in UTC
//   - IDs: string for market identifiers, uuid.UUID for archived snapshot rows
package model
