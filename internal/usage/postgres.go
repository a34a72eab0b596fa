package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"weatherproxy/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS usage_events (
	id          TEXT PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	endpoint    TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	status      INTEGER NOT NULL,
	rate_key    TEXT NOT NULL DEFAULT '',
	duration_us BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_events_occurred_at ON usage_events (occurred_at);
`

// PostgresRecorder stores events in PostgreSQL through a pgx pool.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder connects to dsn and creates the schema if needed.
// Supported options: max_conns.
func NewPostgresRecorder(dsn string, options map[string]string) (*PostgresRecorder, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DSN is required for PostgreSQL usage ledger")
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if v := options["max_conns"]; v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid max_conns option %q", v)
		}
		poolCfg.MaxConns = int32(n)
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &PostgresRecorder{pool: pool}, nil
}

func (p *PostgresRecorder) Record(ctx context.Context, ev models.UsageEvent) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO usage_events (id, occurred_at, endpoint, outcome, status, rate_key, duration_us)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.OccurredAt, ev.Endpoint, ev.Outcome, ev.Status, ev.RateKey, ev.Duration.Microseconds())
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

func (p *PostgresRecorder) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT endpoint, outcome, COUNT(*), COALESCE(AVG(duration_us), 0)::float8
		 FROM usage_events
		 WHERE occurred_at >= $1
		 GROUP BY endpoint, outcome
		 ORDER BY endpoint, outcome`,
		since)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage summary: %w", err)
	}
	defer rows.Close()

	out := []models.UsageSummary{}
	for rows.Next() {
		var (
			s     models.UsageSummary
			avgUs float64
		)
		if err := rows.Scan(&s.Endpoint, &s.Outcome, &s.Count, &avgUs); err != nil {
			return nil, fmt.Errorf("failed to scan usage summary: %w", err)
		}
		s.AvgDuration = time.Duration(avgUs) * time.Microsecond
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresRecorder) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresRecorder) Close() error {
	p.pool.Close()
	return nil
}
