package metrics

import "time"

// FetchOutcome labels the result of one FetchMarketData call.
type FetchOutcome string

const (
	FetchSuccess    FetchOutcome = "success"
	FetchError      FetchOutcome = "fetch_error"
	FetchParseError FetchOutcome = "parse_error"
	FetchCacheHit   FetchOutcome = "cache_hit"
)

// CacheResult labels a snapshot cache lookup.
type CacheResult string

const (
	CacheHit   CacheResult = "hit"
	CacheMiss  CacheResult = "miss"
	CacheError CacheResult = "error"
)

// Engine records service metrics. Implementations must be safe for concurrent use.
type Engine interface {
	RecordFetch(outcome FetchOutcome, duration time.Duration)
	RecordCacheLookup(result CacheResult)
	RecordPollCycle(fetched, failed int, duration time.Duration)
}

// NilEngine discards all metrics.
type NilEngine struct{}

func (NilEngine) RecordFetch(FetchOutcome, time.Duration) {}
func (NilEngine) RecordCacheLookup(CacheResult)           {}
func (NilEngine) RecordPollCycle(int, int, time.Duration) {}
