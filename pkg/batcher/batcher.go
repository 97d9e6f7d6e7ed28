package batcher

import (
	"context"
	"fmt"

	"github.com/screa/solana-mint-miner/internal/logger"
	"github.com/screa/solana-mint-miner/pkg/types"
)

// Inserter is the remote capability the batcher flushes into
type Inserter interface {
	InsertOne(ctx context.Context, rec types.AddressRecord) error
	InsertBatch(ctx context.Context, recs []types.AddressRecord) error
}

// FlushResult describes one flush attempt. Errors are reported, never returned.
type FlushResult struct {
	Records  int
	Batched  bool  // the single batch request succeeded
	Saved    int   // records persisted, by batch or individually
	Failed   int   // individual inserts that failed
	BatchErr error // wraps types.ErrPersistenceBatch when the bulk request failed
	Errs     []error
}

// Batcher buffers records and flushes them to the remote store
type Batcher struct {
	store     Inserter
	threshold int // 0 defers everything to an explicit Flush
	logger    *logger.Logger
	pending   []types.AddressRecord
}

// New creates a batcher. threshold 0 means flush only when Flush is called.
func New(store Inserter, threshold int, log *logger.Logger) *Batcher {
	if threshold < 0 {
		threshold = 0
	}
	return &Batcher{
		store:     store,
		threshold: threshold,
		logger:    log,
	}
}

// Pending returns the number of buffered records
func (b *Batcher) Pending() int {
	return len(b.pending)
}

// Add buffers rec and flushes once the threshold is reached.
// The second return value reports whether a flush happened.
func (b *Batcher) Add(ctx context.Context, rec types.AddressRecord) (FlushResult, bool) {
	b.pending = append(b.pending, rec)
	if b.threshold == 0 || len(b.pending) < b.threshold {
		return FlushResult{}, false
	}
	return b.Flush(ctx), true
}

// Flush sends every buffered record as one batch, degrading to one insert per
// record if the batch fails. The buffer is empty afterwards whatever happened.
func (b *Batcher) Flush(ctx context.Context) FlushResult {
	recs := b.pending
	b.pending = nil

	res := FlushResult{Records: len(recs)}
	if len(recs) == 0 {
		return res
	}

	err := b.store.InsertBatch(ctx, recs)
	if err == nil {
		res.Batched = true
		res.Saved = len(recs)
		b.logger.Successf("Saved %d addresses in batch", len(recs))
		return res
	}

	res.BatchErr = fmt.Errorf("%w: %w", types.ErrPersistenceBatch, err)
	b.logger.Errorf("Failed to save batch of %d: %v", len(recs), err)
	b.logger.Warnf("Retrying with individual inserts...")

	for _, rec := range recs {
		if err := b.store.InsertOne(ctx, rec); err != nil {
			res.Failed++
			res.Errs = append(res.Errs, fmt.Errorf("%w: %s: %w", types.ErrPersistenceIndividual, rec.PublicAddress, err))
			b.logger.Warnf("Individual insert failed for %s: %v", rec.PublicAddress, err)
			continue
		}
		res.Saved++
		b.logger.Successf("Saved address %s", rec.PublicAddress)
	}

	return res
}
