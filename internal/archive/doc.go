// Package archive appends fetched market snapshots to PostgreSQL.
//
// The writer uses append-only semantics: rows are never updated, and a replayed
// snapshot ID is ignored via ON CONFLICT DO NOTHING.
package archive
