package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/intakehq/intake/internal/forms"
)

// SQLiteStore is a SQLite-backed implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and
// runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// WAL mode keeps status reads from blocking the engine's writes.
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id                TEXT PRIMARY KEY,
			owner_id          TEXT NOT NULL,
			status            TEXT NOT NULL,
			source_ref        TEXT NOT NULL,
			correlation_token TEXT NOT NULL DEFAULT '',
			result_refs       TEXT NOT NULL DEFAULT '{}',
			form_schema       TEXT,
			error             TEXT,
			version           INTEGER NOT NULL,
			created_at        DATETIME NOT NULL,
			updated_at        DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_owner  ON jobs(owner_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_jobs_token  ON jobs(correlation_token) WHERE correlation_token != '';
		CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, j *Job) error {
	refs, err := json.Marshal(j.ResultRefs)
	if err != nil {
		return fmt.Errorf("marshal result refs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs
			(id, owner_id, status, source_ref, correlation_token, result_refs, form_schema, error, version, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		j.ID,
		j.OwnerID,
		string(j.Status),
		j.SourceRef,
		j.CorrelationToken,
		string(refs),
		nullableJSON(j.FormSchema),
		nullableJSON(j.Error),
		j.Version,
		j.CreatedAt.UTC(),
		j.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create job %s: %w", j.ID, ErrConflict)
		}
		return fmt.Errorf("create job %s: %w", j.ID, err)
	}
	return nil
}

const jobColumns = `id, owner_id, status, source_ref, correlation_token, result_refs, form_schema, error, version, created_at, updated_at`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (s *SQLiteStore) GetByToken(ctx context.Context, token string) (*Job, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE correlation_token = ?`, token)
	return scanJob(row)
}

func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Job, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs for %s: %w", ownerID, err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Update implements the conditional-update contract: the mutation is
// applied to the record read at expectedVersion and committed with a
// guarded UPDATE. A write that matches zero rows lost the race and
// returns ErrVersionConflict.
func (s *SQLiteStore) Update(ctx context.Context, id string, expectedVersion int64, mutate func(*Job) error) (*Job, error) {
	j, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	if err := mutate(j); err != nil {
		return nil, err
	}
	j.Version = expectedVersion + 1
	j.UpdatedAt = time.Now().UTC()

	refs, err := json.Marshal(j.ResultRefs)
	if err != nil {
		return nil, fmt.Errorf("marshal result refs: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = ?, correlation_token = ?, result_refs = ?, error = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		string(j.Status),
		j.CorrelationToken,
		string(refs),
		nullableJSON(j.Error),
		j.Version,
		j.UpdatedAt,
		id,
		expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	if n == 0 {
		return nil, ErrVersionConflict
	}
	return j, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	j := &Job{}
	var status string
	var refs string
	var schema, errJSON sql.NullString

	err := row.Scan(
		&j.ID, &j.OwnerID, &status, &j.SourceRef, &j.CorrelationToken,
		&refs, &schema, &errJSON, &j.Version, &j.CreatedAt, &j.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	j.Status = Status(status)
	if err := json.Unmarshal([]byte(refs), &j.ResultRefs); err != nil {
		return nil, fmt.Errorf("parse result refs: %w", err)
	}
	if schema.Valid && schema.String != "" {
		var fs forms.Schema
		if err := json.Unmarshal([]byte(schema.String), &fs); err != nil {
			return nil, fmt.Errorf("parse form schema: %w", err)
		}
		j.FormSchema = &fs
	}
	if errJSON.Valid && errJSON.String != "" {
		var f Failure
		if err := json.Unmarshal([]byte(errJSON.String), &f); err != nil {
			return nil, fmt.Errorf("parse job error: %w", err)
		}
		j.Error = &f
	}
	return j, nil
}

// nullableJSON marshals v to a string, or nil for nil pointers.
func nullableJSON(v any) any {
	switch t := v.(type) {
	case *forms.Schema:
		if t == nil {
			return nil
		}
	case *Failure:
		if t == nil {
			return nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces constraint failures as plain errors;
	// the message is the only discriminator available.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
