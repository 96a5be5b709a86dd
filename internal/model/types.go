package model

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the structured payload the provider returns for one market.
// It is the decoded JSON object, kept as-is.
type Snapshot map[string]any

// Clone returns a shallow copy of the snapshot. Nested values are shared.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// MarketSnapshot is a snapshot tagged with where and when it was fetched.
type MarketSnapshot struct {
	ID        uuid.UUID // Archive row key
	MarketID  string    // Provider market identifier
	FetchedAt time.Time // Time the provider response was decoded (UTC)
	Data      Snapshot  // Decoded provider payload
}

// NewMarketSnapshot stamps data with a fresh ID and the given fetch time.
func NewMarketSnapshot(marketID string, data Snapshot, fetchedAt time.Time) MarketSnapshot {
	return MarketSnapshot{
		ID:        uuid.New(),
		MarketID:  marketID,
		FetchedAt: fetchedAt.UTC(),
		Data:      data,
	}
}
