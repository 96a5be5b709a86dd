// Package cache provides snapshot stores keyed by market identifier.
//
// Backends:
//   - MemoryStore: in-process, bounded by entry count, entries expire after a TTL
//   - RedisStore: shared across instances, entries expire after a TTL
//
// Stores hold the most recent successful snapshot per market. Failures are never cached.
package cache
