package archive

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/ares/internal/model"
)

const insertSnapshotSQL = `
	INSERT INTO market_snapshots (id, market_id, fetched_at, payload)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO NOTHING
`

// DB is the subset of *pgxpool.Pool the writer needs.
type DB interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config contains configuration for the snapshot writer.
type Config struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// FlushTimeout bounds a single batch insert.
	FlushTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 5 * time.Second,
		FlushTimeout:  10 * time.Second,
	}
}

// Stats tracks writer activity.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// snapshotRow is a row for the market_snapshots table.
type snapshotRow struct {
	ID        uuid.UUID
	MarketID  string
	FetchedAt time.Time
	Payload   []byte // JSONB
}

// SnapshotWriter batches snapshots into the market_snapshots table.
type SnapshotWriter struct {
	cfg    Config
	db     DB
	logger *slog.Logger

	batch   []snapshotRow
	batchMu sync.Mutex
	stats   Stats

	// Serializes flushes so rows reach the database in batch order.
	flushMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSnapshotWriter creates a new SnapshotWriter.
func NewSnapshotWriter(cfg Config, db DB, logger *slog.Logger) *SnapshotWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultConfig().FlushTimeout
	}
	return &SnapshotWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]snapshotRow, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (w *SnapshotWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("snapshot archive started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop halts the flush loop and writes any pending rows.
func (w *SnapshotWriter) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("snapshot archive stop timed out")
	}

	// Final flush gets its own deadline; ctx may already be done.
	w.flush(ctx)

	w.logger.Info("snapshot archive stopped")
	return nil
}

// HandleSnapshot queues a snapshot, flushing when the batch is full.
func (w *SnapshotWriter) HandleSnapshot(ctx context.Context, snap model.MarketSnapshot) error {
	row, err := transform(snap)
	if err != nil {
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return err
	}

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(ctx)
	}
	return nil
}

// Pending returns the number of queued rows.
func (w *SnapshotWriter) Pending() int {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return len(w.batch)
}

// Stats returns current counters.
func (w *SnapshotWriter) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// flushLoop periodically flushes the batch.
func (w *SnapshotWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush(w.ctx)
		}
	}
}

// transform converts a MarketSnapshot to a snapshotRow.
func transform(snap model.MarketSnapshot) (snapshotRow, error) {
	payload, err := json.Marshal(snap.Data)
	if err != nil {
		return snapshotRow{}, err
	}
	return snapshotRow{
		ID:        snap.ID,
		MarketID:  snap.MarketID,
		FetchedAt: snap.FetchedAt,
		Payload:   payload,
	}, nil
}

// flush writes the current batch to the database. The batch is taken before
// the insert, so the insert runs detached from ctx cancellation and is bounded
// by FlushTimeout instead.
func (w *SnapshotWriter) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.FlushTimeout)
	defer cancel()

	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]snapshotRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed snapshots",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *SnapshotWriter) batchInsert(ctx context.Context, rows []snapshotRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSnapshotSQL, r.ID, r.MarketID, r.FetchedAt, r.Payload)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
