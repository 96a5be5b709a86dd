// Package database provides the PostgreSQL connection pool for the snapshot archive.
//
// Tables:
//   - market_snapshots: one row per fetched snapshot, payload stored as JSONB
package database
