package types

import (
	"time"

	"github.com/screa/solana-mint-miner/internal/crypto"
)

// AddressRecord is a discovered keypair ready for persistence.
// Field tags match the mint_addresses table columns.
type AddressRecord struct {
	PublicAddress string    `json:"pub_key"`
	PrivateKey    string    `json:"private_key"`
	SuffixType    string    `json:"suffix_type"`
	DiscoveredAt  time.Time `json:"created_at"`
}

// NewAddressRecord builds the record for a winning match
func NewAddressRecord(m *Match, suffix string, at time.Time) AddressRecord {
	return AddressRecord{
		PublicAddress: m.Address,
		PrivateKey:    m.Keypair.EncodePrivateKey(),
		SuffixType:    suffix,
		DiscoveredAt:  at.UTC(),
	}
}

// Match represents the winning result of a single-match search
type Match struct {
	Keypair       *crypto.Keypair
	Address       string
	WorkerID      int
	LocalAttempts uint64 // trials performed by the winning worker

	// WorkerAttempts holds each worker's local trial count, indexed by worker id.
	// Filled in by the coordinator once every worker has been joined.
	WorkerAttempts []uint64
}

// WorkerConfig contains configuration for individual workers
type WorkerConfig struct {
	Suffix string

	// MaxAttempts bounds the trials of a single worker per search. 0 means unbounded.
	MaxAttempts uint64

	ProgressInterval time.Duration
	Progress         func(total uint64) // called by worker 0 only; nil disables
}

// Stats summarises one address search session
type Stats struct {
	Suffix             string
	Requested          int
	Found              int
	Elapsed            time.Duration
	Attempts           uint64
	AttemptsPerAddress float64
	AttemptsPerSecond  float64
}

// NewStats computes the derived rates. Zero divisors yield zero rates.
// AttemptsPerAddress divides by the addresses actually found, not the number
// requested: the two agree on a completed session, but an aborted one would
// otherwise credit unfound addresses with attempts.
func NewStats(suffix string, requested, found int, attempts uint64, elapsed time.Duration) Stats {
	s := Stats{
		Suffix:    suffix,
		Requested: requested,
		Found:     found,
		Elapsed:   elapsed,
		Attempts:  attempts,
	}
	if found > 0 {
		s.AttemptsPerAddress = float64(attempts) / float64(found)
	}
	if elapsed.Seconds() > 0 {
		s.AttemptsPerSecond = float64(attempts) / elapsed.Seconds()
	}
	return s
}
