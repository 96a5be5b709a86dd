package cache

import (
	"context"

	"github.com/rickgao/ares/internal/model"
)

// Store holds the latest snapshot per market identifier.
type Store interface {
	// Get returns the cached snapshot for marketID.
	// A missing or expired entry returns (nil, false, nil).
	Get(ctx context.Context, marketID string) (model.Snapshot, bool, error)

	// Set stores snapshot as the latest value for marketID, replacing any previous entry.
	Set(ctx context.Context, marketID string, snapshot model.Snapshot) error

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)
}
