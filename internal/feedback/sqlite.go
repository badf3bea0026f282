package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	calculation TEXT NOT NULL,
	input_summary TEXT NOT NULL,
	suggested_text TEXT NOT NULL,
	ordered_text TEXT NOT NULL DEFAULT '',
	clinician_agreed INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(calculation, input_summary)
);

CREATE INDEX IF NOT EXISTS idx_feedback_calculation ON feedback(calculation);
CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at);
`

const feedbackColumns = `id, calculation, input_summary, suggested_text, ordered_text,
	clinician_agreed, notes, created_at, updated_at`

// NewSQLiteStore opens (or creates) the database at dbPath in WAL mode and
// applies the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; WAL lets readers proceed.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFeedback(row scanner) (*Feedback, error) {
	fb := &Feedback{}
	var calc string
	if err := row.Scan(
		&fb.ID, &calc, &fb.InputSummary, &fb.SuggestedText, &fb.OrderedText,
		&fb.ClinicianAgreed, &fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	); err != nil {
		return nil, err
	}
	fb.Calculation = Calculation(calc)
	return fb, nil
}

// Save inserts feedback or updates the entry with the same key.
func (s *SQLiteStore) Save(ctx context.Context, fb *Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	created := fb.CreatedAt
	if created.IsZero() {
		created = now
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO feedback (
			calculation, input_summary, suggested_text, ordered_text,
			clinician_agreed, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (calculation, input_summary) DO UPDATE SET
			suggested_text = excluded.suggested_text,
			ordered_text = excluded.ordered_text,
			clinician_agreed = excluded.clinician_agreed,
			notes = excluded.notes,
			updated_at = excluded.updated_at
		RETURNING id
	`,
		string(fb.Calculation), fb.InputSummary, fb.SuggestedText, fb.OrderedText,
		fb.ClinicianAgreed, fb.Notes, created, now,
	).Scan(&fb.ID)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	// RETURNING columns carry no declared type, so read the timestamp back
	// from the table to get a time.Time.
	if err := s.db.QueryRowContext(ctx, "SELECT created_at FROM feedback WHERE id = ?", fb.ID).Scan(&fb.CreatedAt); err != nil {
		return fmt.Errorf("failed to read saved feedback: %w", err)
	}
	fb.UpdatedAt = now
	return nil
}

// Get returns the entry for calculation and inputSummary, or nil when absent.
func (s *SQLiteStore) Get(ctx context.Context, calculation Calculation, inputSummary string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+feedbackColumns+" FROM feedback WHERE calculation = ? AND input_summary = ?",
		string(calculation), inputSummary)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return fb, nil
}

// List returns entries newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+feedbackColumns+" FROM feedback ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var out []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// Count returns the number of entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}

// Delete removes an entry by ID. Deleting a missing ID is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return nil
}

// ExportJSON writes every entry to writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return writeExport(ctx, s, writer)
}

// ImportJSON loads an export, skipping entries that already exist.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return readExport(ctx, s, reader)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
