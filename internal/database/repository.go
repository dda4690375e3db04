package database

import (
	"context"
	"errors"
	"fmt"

	"surebet/internal/config"
	"surebet/internal/model"
)

// Table names shared by both sinks.
const (
	ObservationsTable  = "odds_history"
	OpportunitiesTable = "surebets"
)

// ErrNotConfigured is returned by a sink that lacks its endpoint or credentials.
var ErrNotConfigured = errors.New("database: sink not configured")

// Repository defines the standard interface for database operations.
// Both writes are batch inserts; an empty input is a no-op.
type Repository interface {
	RecordObservations(ctx context.Context, batches []model.QuoteBatch) error
	RecordOpportunities(ctx context.Context, opportunities []model.Opportunity) error
	Close()
}

// New opens the repository selected by cfg.Driver.
func New(ctx context.Context, cfg config.DatabaseConfig) (Repository, error) {
	switch cfg.Driver {
	case config.DriverREST, "":
		return NewRESTRepository(cfg.REST), nil
	case config.DriverPostgres:
		return NewPostgresRepository(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("database: unknown driver %q", cfg.Driver)
	}
}

func observationRows(batches []model.QuoteBatch) []model.ObservationRow {
	rows := make([]model.ObservationRow, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, model.NewObservationRow(b))
	}
	return rows
}

func opportunityRows(opportunities []model.Opportunity) []model.OpportunityRow {
	rows := make([]model.OpportunityRow, 0, len(opportunities))
	for _, o := range opportunities {
		rows = append(rows, model.NewOpportunityRow(o))
	}
	return rows
}
