// File: internal/store/store.go

// Package store persists test scripts and run results. Scripts can come from
// YAML files on disk or from the shared Postgres suite store; results always
// land in Postgres when the store is enabled.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL suite store.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS test_scripts (
    name      TEXT PRIMARY KEY,
    platform  TEXT NOT NULL DEFAULT '',
    grouping  TEXT NOT NULL DEFAULT '',
    start_url TEXT NOT NULL DEFAULT '',
    steps     JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS test_results (
    id            UUID PRIMARY KEY,
    name          TEXT NOT NULL,
    platform      TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL,
    input_tokens  BIGINT NOT NULL DEFAULT 0,
    output_tokens BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS step_results (
    id               UUID PRIMARY KEY,
    test_result_id   UUID NOT NULL REFERENCES test_results(id),
    step_number      INT NOT NULL,
    action           TEXT NOT NULL,
    expected         TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL,
    actual           TEXT NOT NULL DEFAULT '',
    error_message    TEXT NOT NULL DEFAULT '',
    screenshot_paths JSONB NOT NULL DEFAULT '[]',
    state_before     TEXT NOT NULL DEFAULT '',
    state_after      TEXT NOT NULL DEFAULT '',
    started_at       TIMESTAMPTZ NOT NULL,
    duration_ms      BIGINT NOT NULL DEFAULT 0,
    input_tokens     BIGINT NOT NULL DEFAULT 0,
    output_tokens    BIGINT NOT NULL DEFAULT 0
);`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const selectScriptSQL = `SELECT name, platform, grouping, start_url, steps FROM test_scripts WHERE name = $1`

// LoadScript fetches one script by name.
func (s *Store) LoadScript(ctx context.Context, name string) (*schemas.TestScript, error) {
	rows, err := s.pool.Query(ctx, selectScriptSQL, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query script %q: %w", name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read script %q: %w", name, err)
		}
		return nil, fmt.Errorf("script %q not found", name)
	}
	script, err := scanScript(rows)
	if err != nil {
		return nil, err
	}
	return script, nil
}

const selectGroupSQL = `SELECT name, platform, grouping, start_url, steps FROM test_scripts WHERE grouping = $1 ORDER BY name`

// LoadGroup fetches every script in a grouping, ordered by name.
func (s *Store) LoadGroup(ctx context.Context, grouping string) ([]schemas.TestScript, error) {
	rows, err := s.pool.Query(ctx, selectGroupSQL, grouping)
	if err != nil {
		return nil, fmt.Errorf("failed to query grouping %q: %w", grouping, err)
	}
	defer rows.Close()

	var scripts []schemas.TestScript
	for rows.Next() {
		script, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, *script)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read grouping %q: %w", grouping, err)
	}
	return scripts, nil
}

func scanScript(rows pgx.Rows) (*schemas.TestScript, error) {
	var script schemas.TestScript
	var stepsJSON []byte
	if err := rows.Scan(&script.Name, &script.Platform, &script.Grouping, &script.StartURL, &stepsJSON); err != nil {
		return nil, fmt.Errorf("failed to scan script row: %w", err)
	}
	if err := json.Unmarshal(stepsJSON, &script.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps for script %q: %w", script.Name, err)
	}
	return &script, nil
}

const insertResultSQL = `INSERT INTO test_results (id, name, platform, status, started_at, finished_at, input_tokens, output_tokens)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// SaveResult persists a finished test result and its steps in one
// transaction.
func (s *Store) SaveResult(ctx context.Context, result *schemas.TestResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	resultID := uuid.New()
	_, err = tx.Exec(ctx, insertResultSQL,
		resultID, result.Name, result.Platform, string(result.Status),
		result.StartTime.UTC(), result.EndTime.UTC(),
		result.Usage.InputTokens, result.Usage.OutputTokens)
	if err != nil {
		return fmt.Errorf("failed to insert test result: %w", err)
	}

	if len(result.Steps) > 0 {
		if err := s.persistSteps(ctx, tx, resultID, result.Steps); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Persisted test result",
		zap.String("test", result.Name),
		zap.String("status", string(result.Status)),
		zap.Int("steps", len(result.Steps)))
	return nil
}

func (s *Store) persistSteps(ctx context.Context, tx pgx.Tx, resultID uuid.UUID, steps []schemas.StepResult) error {
	rows := make([][]interface{}, len(steps))
	for i, step := range steps {
		shots, err := json.Marshal(step.ScreenshotPaths)
		if err != nil {
			return fmt.Errorf("failed to encode screenshot paths: %w", err)
		}
		if step.ScreenshotPaths == nil {
			shots = []byte("[]")
		}
		rows[i] = []interface{}{
			uuid.New(), resultID, step.StepNumber,
			step.Action, step.Expected, string(step.Status),
			step.Actual, step.ErrorMessage, shots,
			step.StateBefore, step.StateAfter,
			step.Timestamp.UTC(), step.Duration.Milliseconds(),
			step.Usage.InputTokens, step.Usage.OutputTokens,
		}
	}

	copyCount, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"step_results"},
		[]string{"id", "test_result_id", "step_number", "action", "expected", "status", "actual", "error_message", "screenshot_paths", "state_before", "state_after", "started_at", "duration_ms", "input_tokens", "output_tokens"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy step results: %w", err)
	}
	if int(copyCount) != len(steps) {
		return fmt.Errorf("mismatch in copied step count: expected %d, got %d", len(steps), copyCount)
	}
	return nil
}
