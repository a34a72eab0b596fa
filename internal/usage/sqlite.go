package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"weatherproxy/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS usage_events (
	id          TEXT PRIMARY KEY,
	occurred_at INTEGER NOT NULL,
	endpoint    TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	status      INTEGER NOT NULL,
	rate_key    TEXT NOT NULL DEFAULT '',
	duration_us INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_events_occurred_at ON usage_events (occurred_at);
`

// SQLiteRecorder stores events in a SQLite database using the pure-Go
// modernc driver. Timestamps are stored as unix microseconds.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder opens dsn and creates the schema if needed. Supported
// options: journal_mode (e.g. "wal").
func NewSQLiteRecorder(dsn string, options map[string]string) (*SQLiteRecorder, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DSN is required for SQLite usage ledger")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers; SQLite would otherwise
	// answer concurrent writes with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if mode := options["journal_mode"]; mode != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+quoteIdent(mode)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set journal mode: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRecorder{db: db}, nil
}

func (s *SQLiteRecorder) Record(ctx context.Context, ev models.UsageEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_events (id, occurred_at, endpoint, outcome, status, rate_key, duration_us)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.OccurredAt.UnixMicro(), ev.Endpoint, ev.Outcome, ev.Status, ev.RateKey, ev.Duration.Microseconds())
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

func (s *SQLiteRecorder) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT endpoint, outcome, COUNT(*), COALESCE(AVG(duration_us), 0)
		 FROM usage_events
		 WHERE occurred_at >= ?
		 GROUP BY endpoint, outcome
		 ORDER BY endpoint, outcome`,
		since.UnixMicro())
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

func (s *SQLiteRecorder) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteRecorder) Close() error {
	return s.db.Close()
}

// quoteIdent allows only letters so option values cannot inject SQL.
func quoteIdent(v string) string {
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			out = append(out, c)
		}
	}
	return string(out)
}
