package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"surebet/internal/config"
	"surebet/internal/model"
)

// RESTRepository inserts rows through a PostgREST endpoint (Supabase's /rest/v1).
type RESTRepository struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

// NewRESTRepository creates a REST sink. Missing URL or key leaves it unconfigured;
// every write then fails with ErrNotConfigured.
func NewRESTRepository(cfg config.RESTConfig) *RESTRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RESTRepository{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		key:        cfg.Key,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *RESTRepository) RecordObservations(ctx context.Context, batches []model.QuoteBatch) error {
	if len(batches) == 0 {
		return nil
	}
	return r.insert(ctx, ObservationsTable, observationRows(batches))
}

func (r *RESTRepository) RecordOpportunities(ctx context.Context, opportunities []model.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}
	return r.insert(ctx, OpportunitiesTable, opportunityRows(opportunities))
}

func (r *RESTRepository) Close() {
	r.httpClient.CloseIdleConnections()
}

func (r *RESTRepository) insert(ctx context.Context, table string, rows any) error {
	if r.baseURL == "" || r.key == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("rest: marshal %s: %w", table, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rest/v1/"+table, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("rest: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rest: insert %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("rest: insert %s: status %d: %s", table, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
