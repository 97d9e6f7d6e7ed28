// Package store persists discovered address records to a remote database.
//
// Two backends are provided: a PostgREST client (the Supabase REST API) and a
// direct Postgres connection. Both expose the same insert-one / insert-batch
// capability consumed by the batcher.
package store

import (
	"context"
	"fmt"
	"net/http"

	"github.com/screa/solana-mint-miner/internal/config"
	"github.com/screa/solana-mint-miner/pkg/types"
)

// Store is the remote persistence capability
type Store interface {
	InsertOne(ctx context.Context, rec types.AddressRecord) error
	InsertBatch(ctx context.Context, recs []types.AddressRecord) error
	Close() error
}

// New builds the backend selected in cfg. cfg must have passed ValidateStore.
func New(cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreREST:
		return NewREST(RESTConfig{
			BaseURL:        cfg.SupabaseURL,
			APIKey:         cfg.SupabaseKey,
			Table:          cfg.Table,
			RequestsPerSec: cfg.RequestsPerSec,
			Client:         &http.Client{Timeout: cfg.RequestTimeout},
		}), nil
	case config.StorePostgres:
		return NewPostgres(cfg.DatabaseURL, cfg.Table)
	default:
		return nil, fmt.Errorf("%w: %w %q", types.ErrConfiguration, config.ErrUnknownStore, cfg.Store)
	}
}
