package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/screa/solana-mint-miner/internal/logger"
	"github.com/screa/solana-mint-miner/pkg/batcher"
	"github.com/screa/solana-mint-miner/pkg/types"
)

// Searcher runs single-match searches. *miner.Miner implements it.
type Searcher interface {
	FindOne(ctx context.Context, suffix string) (*types.Match, error)
	Attempts() uint64
}

// Appender is the local backup sink. *backup.Writer implements it.
type Appender interface {
	Append(rec types.AddressRecord) error
}

// Session repeats single-match searches until the requested count is found
type Session struct {
	searcher Searcher
	batcher  *batcher.Batcher
	backup   Appender // nil when local backup is disabled
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a session. backup may be nil.
func New(s Searcher, b *batcher.Batcher, backup Appender, log *logger.Logger) *Session {
	return &Session{
		searcher: s,
		batcher:  b,
		backup:   backup,
		logger:   log,
		now:      time.Now,
	}
}

// Result is what a session produced
type Result struct {
	Records []types.AddressRecord
	Stats   types.Stats
}

// Run finds count addresses ending with suffix. A search or local backup
// failure stops the session; records found so far are still flushed and
// returned alongside the error. Remote persistence failures never stop it.
func (s *Session) Run(ctx context.Context, suffix string, count int) (*Result, error) {
	start := s.now()
	base := s.searcher.Attempts()
	res := &Result{}

	// Uploads outlive an interrupted search so found keys are not dropped.
	persistCtx := context.WithoutCancel(ctx)

	runErr := s.search(ctx, persistCtx, suffix, count, res)
	s.batcher.Flush(persistCtx)

	res.Stats = types.NewStats(suffix, count, len(res.Records), s.searcher.Attempts()-base, s.now().Sub(start))
	return res, runErr
}

func (s *Session) search(ctx, persistCtx context.Context, suffix string, count int, res *Result) error {
	for i := 0; i < count; i++ {
		match, err := s.searcher.FindOne(ctx, suffix)
		if err != nil {
			return fmt.Errorf("address %d/%d: %w", i+1, count, err)
		}

		rec := types.NewAddressRecord(match, suffix, s.now())
		res.Records = append(res.Records, rec)
		s.logger.Successf("Found address %d/%d: %s", i+1, count, rec.PublicAddress)

		if s.backup != nil {
			if err := s.backup.Append(rec); err != nil {
				if !errors.Is(err, types.ErrLocalBackup) {
					err = fmt.Errorf("%w: %w", types.ErrLocalBackup, err)
				}
				// Still queue it remotely; the final flush is the only copy left.
				s.batcher.Add(persistCtx, rec)
				return err
			}
		}

		s.batcher.Add(persistCtx, rec)
	}
	return nil
}

// Report logs the final statistics
func Report(log *logger.Logger, st types.Stats) {
	log.Infof("Generation complete for '%s': %d/%d addresses", st.Suffix, st.Found, st.Requested)
	log.Infof("Total time: %v", st.Elapsed)
	log.Infof("Total attempts: %d", st.Attempts)
	log.Infof("Average attempts per address: %.2f", st.AttemptsPerAddress)
	log.Infof("Performance: %.2f attempts/second", st.AttemptsPerSecond)
}
