package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"surebet/internal/config"
	"surebet/internal/model"
)

// PostgresRepository writes rows straight into PostgreSQL via pgx COPY.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

//go:embed schema.sql
var schemaSQL string

var (
	observationColumns = []string{"bookie", "evento", "sport", "mercato", "quota_1", "quota_x", "quota_2", "timestamp"}
	opportunityColumns = []string{
		"market", "sport", "evento", "bookie1", "quote1", "bookie2", "quote2", "inversa",
		"roi", "profit", "stake_totale", "stake1", "stake2", "mercato_tipo", "attiva", "created_at",
	}
)

// DSN builds a connection string; an explicit DSN wins.
func DSN(cfg config.PostgresConfig) string {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, port, cfg.DBName, sslMode)
}

// NewPostgresRepository connects and pings the database.
func NewPostgresRepository(ctx context.Context, cfg config.PostgresConfig) (*PostgresRepository, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

// EnsureSchema creates the odds_history and surebets tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecordObservations(ctx context.Context, batches []model.QuoteBatch) error {
	if len(batches) == 0 {
		return nil
	}
	rows := observationRows(batches)
	_, err := r.Pool.CopyFrom(ctx, pgx.Identifier{ObservationsTable}, observationColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{row.Bookie, row.Event, row.Sport, row.Market, row.Quote1, row.QuoteX, row.Quote2, row.Timestamp}, nil
		}))
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", ObservationsTable, err)
	}
	return nil
}

func (r *PostgresRepository) RecordOpportunities(ctx context.Context, opportunities []model.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}
	rows := opportunityRows(opportunities)
	_, err := r.Pool.CopyFrom(ctx, pgx.Identifier{OpportunitiesTable}, opportunityColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{
				row.Market, row.Sport, row.Event, row.Bookie1, row.Quote1, row.Bookie2, row.Quote2, row.Implied,
				row.ROI, row.Profit, row.TotalStake, row.Stake1, row.Stake2, row.MarketType, row.Active, row.CreatedAt,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", OpportunitiesTable, err)
	}
	return nil
}

func (r *PostgresRepository) Close() {
	if r.Pool != nil {
		r.Pool.Close()
	}
}
