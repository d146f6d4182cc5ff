package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openmda/mda-core/internal/measurement"
)

// runColumns is the SELECT column list for run queries.
const runColumns = `id, kind, state, total_steps, devices, created_at,
			started_at, completed_at, error, failure_kind, points`

// SQLiteRepository implements Repository using SQLite. Only terminal runs
// are ever written; the live record stays in the RunRegistry.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed run repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveRun upserts a terminal run. Upsert keeps the write idempotent if a
// run is persisted twice across a crash recovery.
func (r *SQLiteRepository) SaveRun(ctx context.Context, run Run) error {
	devicesJSON, err := json.Marshal(run.Devices)
	if err != nil {
		return fmt.Errorf("marshalling devices: %w", err)
	}
	pointsJSON, err := json.Marshal(run.Points)
	if err != nil {
		return fmt.Errorf("marshalling points: %w", err)
	}

	query := `
		INSERT INTO runs (
			id, kind, state, total_steps, devices, created_at,
			started_at, completed_at, error, failure_kind, points
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			completed_at = excluded.completed_at,
			error = excluded.error,
			failure_kind = excluded.failure_kind,
			points = excluded.points`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		string(run.Kind),
		string(run.State),
		run.TotalSteps,
		string(devicesJSON),
		run.CreatedAt.Format(time.RFC3339Nano),
		nullableTime(run.StartedAt),
		nullableTime(run.CompletedAt),
		nullableString(run.Error),
		nullableString(string(run.FailureKind)),
		string(pointsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// GetRun retrieves a persisted run by ID.
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	run, err := scanRunRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// DeleteRun removes a persisted run by ID.
func (r *SQLiteRepository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

func scanRunRow(row *sql.Row) (*Run, error) {
	var run Run
	var kind, state, devicesJSON, pointsJSON string
	var createdAt string
	var startedAt, completedAt, runErr, failureKind sql.NullString

	err := row.Scan(
		&run.ID,
		&kind,
		&state,
		&run.TotalSteps,
		&devicesJSON,
		&createdAt,
		&startedAt,
		&completedAt,
		&runErr,
		&failureKind,
		&pointsJSON,
	)
	if err != nil {
		return nil, err
	}

	run.Kind = measurement.Kind(kind)
	run.State = State(state)

	if t, parseErr := time.Parse(time.RFC3339Nano, createdAt); parseErr == nil {
		run.CreatedAt = t
	}
	if startedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339Nano, startedAt.String); parseErr == nil {
			run.StartedAt = &t
		}
	}
	if completedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339Nano, completedAt.String); parseErr == nil {
			run.CompletedAt = &t
		}
	}
	if runErr.Valid {
		run.Error = runErr.String
	}
	if failureKind.Valid {
		run.FailureKind = FailureKind(failureKind.String)
	}

	if err := json.Unmarshal([]byte(devicesJSON), &run.Devices); err != nil {
		return nil, fmt.Errorf("unmarshalling devices: %w", err)
	}
	if err := json.Unmarshal([]byte(pointsJSON), &run.Points); err != nil {
		return nil, fmt.Errorf("unmarshalling points: %w", err)
	}

	return &run, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}
