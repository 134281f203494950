// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jobs

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "jobs.db"

// Store persists job records in a SQLite database under the data
// directory, so job state survives a server restart.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the job database at dataDir/jobs.db.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening job database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			total_files INTEGER NOT NULL DEFAULT 0,
			successful INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			average_quality REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Insert records a new job.
func (s *Store) Insert(j *Job) error {
	_, err := s.db.Exec(
		`INSERT INTO jobs (id, filename, status, progress, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Filename, string(j.Status), j.Progress, j.Error,
		j.CreatedAt.UTC().Format(time.RFC3339Nano),
		j.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", j.ID, err)
	}
	return nil
}

// SetStatus updates a job's status, clearing or setting its error text.
func (s *Store) SetStatus(id string, status Status, errText string) error {
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), errText, now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	return nil
}

// SetProgress updates the completion percentage of a running job.
func (s *Store) SetProgress(id string, pct int) error {
	_, err := s.db.Exec(
		`UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?`,
		pct, now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating job %s progress: %w", id, err)
	}
	return nil
}

// Finish marks a job completed and records the run summary.
func (s *Store) Finish(id string, total, successful, failed int, avgQuality float64) error {
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, progress = 100, total_files = ?, successful = ?,
			failed = ?, average_quality = ?, updated_at = ? WHERE id = ?`,
		string(StatusCompleted), total, successful, failed, avgQuality, now(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing job %s: %w", id, err)
	}
	return nil
}

// Get returns one job record. The boolean is false when no such job exists.
func (s *Store) Get(id string) (*Job, bool, error) {
	row := s.db.QueryRow(
		`SELECT id, filename, status, progress, error, total_files, successful,
			failed, average_quality, created_at, updated_at
		 FROM jobs WHERE id = ?`, id)

	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading job %s: %w", id, err)
	}
	return j, true, nil
}

// ExpiredIDs lists jobs created before the cutoff.
func (s *Store) ExpiredIDs(cutoff time.Time) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM jobs WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("listing expired jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a job record.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting job %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*Job, error) {
	var j Job
	var status, created, updated string
	var errText sql.NullString
	err := row.Scan(&j.ID, &j.Filename, &status, &j.Progress, &errText,
		&j.TotalFiles, &j.Successful, &j.Failed, &j.AverageQuality,
		&created, &updated)
	if err != nil {
		return nil, err
	}
	j.Status = Status(status)
	j.Error = errText.String
	j.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &j, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
