package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresConfig holds the optional database sink settings.
type PostgresConfig struct {
	// DSN is a pgx connection string.
	DSN string `yaml:"dsn"`

	// Table is the target table name. Defaults to "produits_export".
	Table string `yaml:"table"`
}

// PostgresSink writes exported runs into a jsonb table keyed by run id.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSink connects to the database and verifies the connection.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig) (*PostgresSink, error) {
	if cfg.Table == "" {
		cfg.Table = "produits_export"
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresSink{pool: pool, table: cfg.Table}, nil
}

// Close releases the database pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

// EnsureSchema creates the sink table when it does not exist yet.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id     uuid        NOT NULL,
			seq        integer     NOT NULL,
			fetched_at timestamptz NOT NULL DEFAULT now(),
			record     jsonb       NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`, pgx.Identifier{s.table}.Sanitize())

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create sink table: %w", err)
	}
	return nil
}

// Export batch-inserts every dataset record under the given run id,
// preserving accumulation order through the seq column.
func (s *PostgresSink) Export(ctx context.Context, runID uuid.UUID, ds *Dataset) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}

	stmt := fmt.Sprintf(
		"INSERT INTO %s (run_id, seq, record) VALUES ($1, $2, $3)",
		pgx.Identifier{s.table}.Sanitize())

	batch := &pgx.Batch{}
	for i, rec := range ds.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", i, err)
		}
		batch.Queue(stmt, runID, i, data)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	log.Info().
		Str("table", s.table).
		Str("run_id", runID.String()).
		Int("records", ds.Len()).
		Msg("Records exported to Postgres")
	return nil
}
