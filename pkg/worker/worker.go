package worker

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/screa/solana-mint-miner/internal/crypto"
	"github.com/screa/solana-mint-miner/pkg/types"
)

// Worker runs generate-and-test trials for one single-match search
type Worker struct {
	id       int
	config   *types.WorkerConfig
	attempts *atomic.Uint64 // shared across every worker of the miner
	found    *atomic.Bool   // shared by the workers of one search

	local      uint64
	lastReport time.Time
}

// NewWorker creates a new worker instance
func NewWorker(id int, config *types.WorkerConfig, attempts *atomic.Uint64, found *atomic.Bool) *Worker {
	return &Worker{
		id:       id,
		config:   config,
		attempts: attempts,
		found:    found,
	}
}

// Matches is the suffix predicate: exact, case-sensitive trailing match
func Matches(address, suffix string) bool {
	return strings.HasSuffix(address, suffix)
}

// Trial generates one keypair, counts it and reports whether its address matches
func (w *Worker) Trial() (*crypto.Keypair, string, bool, error) {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, "", false, err
	}
	address := kp.Address()

	w.local++
	w.attempts.Add(1)

	return kp, address, Matches(address, w.config.Suffix), nil
}

// Attempts returns the trials this worker has performed
func (w *Worker) Attempts() uint64 {
	return w.local
}

// Run loops until the found flag is set, the trial budget is spent, or a match
// is delivered. deliver reports whether this worker won the race; a losing
// delivery is not an error.
func (w *Worker) Run(deliver func(*types.Match) bool) (uint64, error) {
	w.lastReport = time.Now()

	for {
		if w.found.Load() {
			return w.local, nil
		}
		if w.config.MaxAttempts > 0 && w.local >= w.config.MaxAttempts {
			return w.local, nil
		}

		kp, address, ok, err := w.Trial()
		if err != nil {
			// Stop the siblings too; a broken entropy source affects all of them.
			w.found.Store(true)
			return w.local, fmt.Errorf("worker %d: %w", w.id, err)
		}

		w.maybeReport()

		if ok {
			w.found.Store(true)
			deliver(&types.Match{
				Keypair:       kp,
				Address:       address,
				WorkerID:      w.id,
				LocalAttempts: w.local,
			})
			return w.local, nil
		}
	}
}

// maybeReport emits progress from worker 0 at most once per interval
func (w *Worker) maybeReport() {
	if w.id != 0 || w.config.Progress == nil || w.config.ProgressInterval <= 0 {
		return
	}
	if time.Since(w.lastReport) < w.config.ProgressInterval {
		return
	}
	w.lastReport = time.Now()
	w.config.Progress(w.attempts.Load())
}
