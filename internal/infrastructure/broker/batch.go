package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domain "bondtrader/internal/domain/entity/purchases"
)

var errBatchNotRunning = errors.New("batch writer is not running")

// PurchaseWriter persists purchases in bulk.
type PurchaseWriter interface {
	RecordPurchases(ctx context.Context, purchases []domain.Purchase) error
}

// BatchConfig controls batching thresholds for journal writes.
type BatchConfig struct {
	Size    int
	Timeout time.Duration
}

// BatchWriter buffers purchases and flushes them to the journal when the
// buffer is full or the timeout elapses. A purchase already waiting in the
// buffer is not queued twice.
type BatchWriter struct {
	cfg     BatchConfig
	journal PurchaseWriter
	logger  *logrus.Entry

	mu      sync.Mutex
	ctx     context.Context
	pending []domain.Purchase
	queued  map[uuid.UUID]struct{}
	timer   *time.Timer
}

// NewBatchWriter configures a batch writer on top of the journal.
func NewBatchWriter(cfg BatchConfig, journal PurchaseWriter, logger *logrus.Logger) *BatchWriter {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	return &BatchWriter{
		cfg:     cfg,
		journal: journal,
		logger:  logger.WithField("component", "batch_writer"),
		queued:  make(map[uuid.UUID]struct{}),
	}
}

// Run sets the base context for timer-driven flushes.
func (b *BatchWriter) Run(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
}

// Stop flushes whatever is still buffered using ctx.
func (b *BatchWriter) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b.mu.Lock()
	b.ctx = ctx
	batch := b.takeLocked()
	b.mu.Unlock()

	if err := b.flush(ctx, batch); err != nil {
		b.requeue(batch)
		return err
	}
	return nil
}

// Add buffers a purchase. When the buffer fills up it is flushed
// synchronously; on failure the earlier purchases stay buffered and the error
// is returned so the caller can retry this one.
func (b *BatchWriter) Add(purchase *domain.Purchase) error {
	if purchase == nil {
		return ErrNilPurchase
	}

	b.mu.Lock()
	ctx := b.ctx
	if ctx == nil {
		b.mu.Unlock()
		return errBatchNotRunning
	}
	if err := ctx.Err(); err != nil {
		b.mu.Unlock()
		return err
	}
	if _, dup := b.queued[purchase.ID]; dup {
		b.mu.Unlock()
		return nil
	}
	b.pending = append(b.pending, *purchase)
	b.queued[purchase.ID] = struct{}{}

	var batch []domain.Purchase
	if len(b.pending) >= b.cfg.Size {
		batch = b.takeLocked()
	} else {
		b.armLocked()
	}
	b.mu.Unlock()

	if err := b.flush(ctx, batch); err != nil {
		b.requeue(batch[:len(batch)-1])
		return err
	}
	return nil
}

func (b *BatchWriter) armLocked() {
	if b.timer != nil || b.cfg.Timeout <= 0 {
		return
	}
	b.timer = time.AfterFunc(b.cfg.Timeout, b.flushOnTimeout)
}

func (b *BatchWriter) flushOnTimeout() {
	b.mu.Lock()
	b.timer = nil
	ctx := b.ctx
	batch := b.takeLocked()
	b.mu.Unlock()

	if err := b.flush(ctx, batch); err != nil {
		b.logger.WithError(err).WithField("size", len(batch)).Warn("journal flush failed, keeping batch")
		b.requeue(batch)
	}
}

// takeLocked empties the buffer. Queued ids stay reserved until the batch is
// either written or requeued.
func (b *BatchWriter) takeLocked() []domain.Purchase {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = nil
	return batch
}

// requeue puts purchases back in front of the buffer.
func (b *BatchWriter) requeue(batch []domain.Purchase) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(batch) > 0 {
		b.pending = append(append([]domain.Purchase(nil), batch...), b.pending...)
	}
	b.rebuildQueuedLocked()
	if len(b.pending) > 0 && b.ctx != nil && b.ctx.Err() == nil {
		b.armLocked()
	}
}

func (b *BatchWriter) rebuildQueuedLocked() {
	b.queued = make(map[uuid.UUID]struct{}, len(b.pending))
	for _, p := range b.pending {
		b.queued[p.ID] = struct{}{}
	}
}

func (b *BatchWriter) flush(ctx context.Context, batch []domain.Purchase) error {
	if len(batch) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	if err := b.journal.RecordPurchases(ctx, batch); err != nil {
		return err
	}

	b.mu.Lock()
	for _, p := range batch {
		delete(b.queued, p.ID)
	}
	b.mu.Unlock()

	b.logger.WithFields(logrus.Fields{
		"size":    len(batch),
		"took_ms": time.Since(start).Milliseconds(),
	}).Debug("flushed purchases")
	return nil
}
