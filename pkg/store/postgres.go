package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/screa/solana-mint-miner/pkg/types"
)

// Postgres writes straight into the table behind the REST API
type Postgres struct {
	db    *sql.DB
	query string
}

// NewPostgres opens a connection pool. No connection is made until the first insert.
func NewPostgres(dsn, table string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newPostgres(db, table), nil
}

func newPostgres(db *sql.DB, table string) *Postgres {
	return &Postgres{db: db, query: insertQuery(table)}
}

func insertQuery(table string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (pub_key, private_key, suffix_type, created_at) VALUES ($1, $2, $3, $4)",
		pq.QuoteIdentifier(table),
	)
}

// InsertOne inserts a single row
func (p *Postgres) InsertOne(ctx context.Context, rec types.AddressRecord) error {
	_, err := p.db.ExecContext(ctx, p.query, rec.PublicAddress, rec.PrivateKey, rec.SuffixType, rec.DiscoveredAt)
	return err
}

// InsertBatch inserts every record in one transaction, all or nothing
func (p *Postgres) InsertBatch(ctx context.Context, recs []types.AddressRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, p.query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, rec.PublicAddress, rec.PrivateKey, rec.SuffixType, rec.DiscoveredAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", rec.PublicAddress, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (p *Postgres) Close() error {
	return p.db.Close()
}
