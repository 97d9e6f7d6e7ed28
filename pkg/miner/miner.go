package miner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/screa/solana-mint-miner/internal/config"
	"github.com/screa/solana-mint-miner/internal/logger"
	"github.com/screa/solana-mint-miner/pkg/types"
	"github.com/screa/solana-mint-miner/pkg/worker"
)

// Miner coordinates the parallel race for a matching address.
// The attempt counter is cumulative over every search the miner runs.
type Miner struct {
	config   *config.Config
	logger   *logger.Logger
	attempts atomic.Uint64
}

// NewMiner creates a new miner instance
func NewMiner(cfg *config.Config, log *logger.Logger) *Miner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	return &Miner{
		config: cfg,
		logger: log,
	}
}

// Workers returns the size of the worker pool
func (m *Miner) Workers() int {
	return m.config.Workers
}

// Attempts returns the total number of trials performed so far
func (m *Miner) Attempts() uint64 {
	return m.attempts.Load()
}

// resultSlot accepts exactly one delivery. Every later Deliver returns false
// and leaves the slot untouched, so losing workers never block or panic.
type resultSlot struct {
	once sync.Once
	ch   chan *types.Match
}

func newResultSlot() *resultSlot {
	return &resultSlot{ch: make(chan *types.Match, 1)}
}

// Deliver reports whether m became the result
func (s *resultSlot) Deliver(m *types.Match) bool {
	delivered := false
	s.once.Do(func() {
		s.ch <- m
		close(s.ch)
		delivered = true
	})
	return delivered
}

// Close seals the slot without a result
func (s *resultSlot) Close() {
	s.once.Do(func() { close(s.ch) })
}

// Wait blocks until the slot is filled or sealed empty
func (s *resultSlot) Wait() (*types.Match, bool) {
	m, ok := <-s.ch
	return m, ok
}

// FindOne races one worker per configured core for a keypair whose address
// ends with suffix. All workers have exited when it returns. Cancelling ctx,
// the per-search timeout, or a spent trial budget all end in ErrSearchExhausted.
func (m *Miner) FindOne(ctx context.Context, suffix string) (*types.Match, error) {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	var found atomic.Bool
	slot := newResultSlot()
	workers := m.Workers()
	start := time.Now()
	base := m.attempts.Load()

	wcfg := &types.WorkerConfig{
		Suffix:           suffix,
		MaxAttempts:      m.config.MaxAttempts,
		ProgressInterval: m.config.LogEvery(),
		Progress: func(total uint64) {
			m.logger.Infof("Total attempts: %d (searching for '%s' on %d workers, %.2f attempts/sec)",
				total, suffix, workers, Rate(total-base, time.Since(start)))
		},
	}

	// Cancellation is folded into the found flag so the hot loop polls a single atomic.
	stop := context.AfterFunc(ctx, func() { found.Store(true) })
	defer stop()

	perWorker := make([]uint64, workers)
	var eg errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		w := worker.NewWorker(i, wcfg, &m.attempts, &found)
		eg.Go(func() error {
			n, err := w.Run(func(match *types.Match) bool {
				if !slot.Deliver(match) {
					return false
				}
				m.logger.Debugf("Found matching address after %d local attempts on worker %d", match.LocalAttempts, match.WorkerID)
				return true
			})
			perWorker[i] = n
			return err
		})
	}

	// Seal the slot once everyone is gone so an empty race does not block forever.
	go func() {
		_ = eg.Wait()
		slot.Close()
	}()

	match, ok := slot.Wait()
	found.Store(true)
	runErr := eg.Wait()

	if !ok {
		var total uint64
		for _, n := range perWorker {
			total += n
		}
		err := fmt.Errorf("%w: %d workers stopped after %d attempts", types.ErrSearchExhausted, workers, total)
		if runErr != nil {
			err = errors.Join(err, runErr)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
		return nil, err
	}

	match.WorkerAttempts = perWorker
	return match, nil
}

// Rate returns trials per second over elapsed
func Rate(attempts uint64, elapsed time.Duration) float64 {
	if elapsed.Seconds() <= 0 {
		return 0
	}
	return float64(attempts) / elapsed.Seconds()
}
