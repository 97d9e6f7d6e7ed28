package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/screa/solana-mint-miner/internal/config"
	"github.com/screa/solana-mint-miner/internal/crypto"
	"github.com/screa/solana-mint-miner/internal/logger"
	"github.com/screa/solana-mint-miner/pkg/backup"
	"github.com/screa/solana-mint-miner/pkg/batcher"
	"github.com/screa/solana-mint-miner/pkg/miner"
	"github.com/screa/solana-mint-miner/pkg/types"
)

// fakeSearcher returns synthetic matches, costing a fixed number of attempts each
type fakeSearcher struct {
	perFind  uint64
	attempts uint64
	calls    int
	failAt   int // 1-based call that fails, 0 = never
}

func (f *fakeSearcher) FindOne(_ context.Context, suffix string) (*types.Match, error) {
	f.calls++
	if f.failAt != 0 && f.calls == f.failAt {
		return nil, fmt.Errorf("%w: test", types.ErrSearchExhausted)
	}
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	f.attempts += f.perFind
	return &types.Match{Keypair: kp, Address: fmt.Sprintf("%s%d%s", kp.Address()[:8], f.calls, suffix)}, nil
}

func (f *fakeSearcher) Attempts() uint64 {
	return f.attempts
}

// fakeStore records calls; batchErr makes every batch fail
type fakeStore struct {
	batches  [][]types.AddressRecord
	singles  []types.AddressRecord
	batchErr error
	oneErr   error
}

func (f *fakeStore) InsertBatch(_ context.Context, recs []types.AddressRecord) error {
	f.batches = append(f.batches, append([]types.AddressRecord(nil), recs...))
	return f.batchErr
}

func (f *fakeStore) InsertOne(_ context.Context, rec types.AddressRecord) error {
	f.singles = append(f.singles, rec)
	return f.oneErr
}

type failingBackup struct{}

func (failingBackup) Append(types.AddressRecord) error {
	return errors.New("disk full")
}

func quiet() *logger.Logger {
	return logger.NewWriter(io.Discard)
}

// tick returns a clock advancing one second per call
func tick() func() time.Time {
	t := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestRunBatchesBySize(t *testing.T) {
	store := &fakeStore{}
	searcher := &fakeSearcher{perFind: 100}
	s := New(searcher, batcher.New(store, 2, quiet()), nil, quiet())
	s.now = tick()

	res, err := s.Run(context.Background(), "bonk", 3)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	require.Len(t, store.batches, 2)
	require.Len(t, store.batches[0], 2)
	require.Len(t, store.batches[1], 1)
	require.Empty(t, store.singles)

	for _, rec := range res.Records {
		require.True(t, strings.HasSuffix(rec.PublicAddress, "bonk"))
		require.Equal(t, "bonk", rec.SuffixType)
		require.NotEmpty(t, rec.PrivateKey)
	}

	st := res.Stats
	require.Equal(t, 3, st.Found)
	require.Equal(t, uint64(300), st.Attempts)
	require.InDelta(t, 100.0, st.AttemptsPerAddress, 1e-9)
	// start, one stamp per record, end
	require.Equal(t, 4*time.Second, st.Elapsed)
	require.InDelta(t, 75.0, st.AttemptsPerSecond, 1e-9)
}

func TestRunZeroBatchDefersUntilEnd(t *testing.T) {
	store := &fakeStore{}
	searcher := &fakeSearcher{perFind: 1}
	b := batcher.New(store, 0, quiet())
	s := New(searcher, b, nil, quiet())

	res, err := s.Run(context.Background(), "pump", 5)
	require.NoError(t, err)
	require.Len(t, res.Records, 5)
	require.Len(t, store.batches, 1)
	require.Equal(t, res.Records, store.batches[0])
	require.Zero(t, b.Pending())
}

func TestRunContinuesAfterPersistenceFailure(t *testing.T) {
	store := &fakeStore{batchErr: errors.New("network down"), oneErr: errors.New("still down")}
	searcher := &fakeSearcher{perFind: 1}
	s := New(searcher, batcher.New(store, 4, quiet()), nil, quiet())

	res, err := s.Run(context.Background(), "pump", 6)
	require.NoError(t, err)
	require.Len(t, res.Records, 6)
	require.Equal(t, 6, searcher.calls)

	// First batch of 4 falls back to 4 individual inserts, final batch of 2 to 2 more.
	require.Len(t, store.batches, 2)
	require.Len(t, store.singles, 6)
	require.Equal(t, res.Records[:4], store.singles[:4])
}

func TestRunStopsOnSearchExhausted(t *testing.T) {
	store := &fakeStore{}
	searcher := &fakeSearcher{perFind: 1, failAt: 3}
	s := New(searcher, batcher.New(store, 10, quiet()), nil, quiet())

	res, err := s.Run(context.Background(), "pump", 5)
	require.ErrorIs(t, err, types.ErrSearchExhausted)
	require.Equal(t, 3, searcher.calls)
	require.Len(t, res.Records, 2)

	// Records found before the failure are still flushed.
	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 2)
}

func TestRunStopsOnLocalBackupFailure(t *testing.T) {
	store := &fakeStore{}
	searcher := &fakeSearcher{perFind: 1}
	s := New(searcher, batcher.New(store, 10, quiet()), failingBackup{}, quiet())

	res, err := s.Run(context.Background(), "pump", 3)
	require.ErrorIs(t, err, types.ErrLocalBackup)
	require.Equal(t, 1, searcher.calls)
	require.Len(t, res.Records, 1)
	require.Len(t, store.batches, 1)
	require.Equal(t, res.Records, store.batches[0])
}

func TestRunWritesLocalBackup(t *testing.T) {
	w, err := backup.Create(t.TempDir(), "pump", time.Now())
	require.NoError(t, err)

	store := &fakeStore{}
	s := New(&fakeSearcher{perFind: 1}, batcher.New(store, 0, quiet()), w, quiet())

	res, err := s.Run(context.Background(), "pump", 3)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries, err := backup.ReadFile(w.Path())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		require.Equal(t, res.Records[i].PublicAddress, e.Address)
		require.Equal(t, res.Records[i].PrivateKey, e.PrivateKey)
		require.Equal(t, "pump", e.SuffixType)
	}
}

func TestRunWithMiner(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 4
	cfg.LogInterval = 0
	m := miner.NewMiner(cfg, quiet())

	w, err := backup.Open(filepath.Join(t.TempDir(), "backup.txt"))
	require.NoError(t, err)
	defer w.Close()

	store := &fakeStore{}
	s := New(m, batcher.New(store, 2, quiet()), w, quiet())

	res, err := s.Run(context.Background(), "k", 3)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	require.Len(t, store.batches, 2)
	require.Equal(t, m.Attempts(), res.Stats.Attempts)

	for _, rec := range res.Records {
		require.True(t, strings.HasSuffix(rec.PublicAddress, "k"))
		require.NoError(t, crypto.VerifyEncodedKey(rec.PublicAddress, rec.PrivateKey))
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Workers = 2
	cfg.LogInterval = 0
	m := miner.NewMiner(cfg, quiet())

	store := &fakeStore{}
	s := New(m, batcher.New(store, 0, quiet()), nil, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Run(ctx, "0", 2)
	require.ErrorIs(t, err, types.ErrSearchExhausted)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, res.Records)
	require.Empty(t, store.batches)
}

func TestRunLargeCountAllocatesLazily(t *testing.T) {
	store := &fakeStore{}
	searcher := &fakeSearcher{perFind: 1, failAt: 1}
	s := New(searcher, batcher.New(store, 1<<40, quiet()), nil, quiet())

	res, err := s.Run(context.Background(), "pump", 1<<40)
	require.ErrorIs(t, err, types.ErrSearchExhausted)
	require.Empty(t, res.Records)
	require.Equal(t, 1<<40, res.Stats.Requested)
	require.Zero(t, res.Stats.AttemptsPerAddress)
}

func TestRunDoesNotRepeatWinnerLine(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWriter(&buf)
	log.SetVerbose(true)

	s := New(&fakeSearcher{perFind: 1}, batcher.New(&fakeStore{}, 0, quiet()), nil, log)
	_, err := s.Run(context.Background(), "pump", 2)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(buf.String(), "Found address"))
	require.NotContains(t, buf.String(), "local attempts")
}
