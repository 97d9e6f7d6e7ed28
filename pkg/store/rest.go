package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/screa/solana-mint-miner/pkg/types"
)

// maxErrorBody caps how much of a failed response is kept in the error
const maxErrorBody = 4 << 10

// RESTConfig configures the PostgREST backend
type RESTConfig struct {
	BaseURL        string
	APIKey         string
	Table          string
	RequestsPerSec float64 // 0 = unlimited
	Client         *http.Client
}

// REST inserts rows through the Supabase REST API
type REST struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewREST creates a REST store
func NewREST(cfg RESTConfig) *REST {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}

	return &REST{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/rest/v1/" + cfg.Table,
		apiKey:   cfg.APIKey,
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// InsertOne posts a single JSON object
func (r *REST) InsertOne(ctx context.Context, rec types.AddressRecord) error {
	return r.post(ctx, rec)
}

// InsertBatch posts all records as one JSON array
func (r *REST) InsertBatch(ctx context.Context, recs []types.AddressRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return r.post(ctx, recs)
}

// Close is a no-op; the HTTP client is shared
func (r *REST) Close() error {
	return nil
}

func (r *REST) post(ctx context.Context, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
