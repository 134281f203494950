// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jobs runs conversions submitted over the web API. Each job gets
// an isolated directory tree under the data directory, a background
// conversion run, and a downloadable ZIP of the output; records live in
// SQLite so status queries work across restarts.
package jobs

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/docsmith/internal/extract"
	"github.com/pdiddy/docsmith/internal/nav"
	"github.com/pdiddy/docsmith/internal/pipeline"
	"github.com/pdiddy/docsmith/internal/sanitize"
	"github.com/pdiddy/docsmith/pkg/types"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is the record the API reports for one submitted conversion.
type Job struct {
	ID             string    `json:"id"`
	Filename       string    `json:"filename"`
	Status         Status    `json:"status"`
	Progress       int       `json:"progress"`
	Error          string    `json:"error,omitempty"`
	TotalFiles     int       `json:"total_files"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	AverageQuality float64   `json:"average_quality"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ArchiveFile is the name of the downloadable result inside a job's
// directory.
const ArchiveFile = "result.zip"

// Manager owns the job database and the per-job directory trees.
type Manager struct {
	cfg    types.WebConfig
	store  *Store
	logger *slog.Logger
}

// NewManager opens the job store under cfg.DataDir.
func NewManager(cfg types.WebConfig, logger *slog.Logger) (*Manager, error) {
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}
	store, err := NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, store: store, logger: logger}, nil
}

// Close releases the job store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Submit stores the uploaded document and starts its conversion in the
// background. The returned job is in the queued state.
func (m *Manager) Submit(filename string, r io.Reader, opts types.ConvertConfig) (*Job, error) {
	if !extract.Supported(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	id := uuid.NewString()
	inputDir := filepath.Join(m.jobDir(id), "input")
	if err := os.MkdirAll(inputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating job directory: %w", err)
	}

	safe := sanitize.Filename(filepath.Base(filename), false)
	dst, err := os.Create(filepath.Join(inputDir, safe))
	if err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return nil, fmt.Errorf("storing upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	jobTime := time.Now().UTC()
	job := &Job{
		ID:        id,
		Filename:  safe,
		Status:    StatusQueued,
		CreatedAt: jobTime,
		UpdatedAt: jobTime,
	}
	if err := m.store.Insert(job); err != nil {
		return nil, err
	}

	go m.run(id, opts)
	return job, nil
}

// Get returns a job's current state.
func (m *Manager) Get(id string) (*Job, bool, error) {
	return m.store.Get(id)
}

// ArchivePath returns the path of a completed job's result archive.
func (m *Manager) ArchivePath(id string) (string, error) {
	job, ok, err := m.store.Get(id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no such job: %s", id)
	}
	if job.Status != StatusCompleted {
		return "", fmt.Errorf("job %s is %s, not completed", id, job.Status)
	}
	return filepath.Join(m.jobDir(id), ArchiveFile), nil
}

// Delete removes a job's record and its directory tree.
func (m *Manager) Delete(id string) error {
	if err := m.store.Delete(id); err != nil {
		return err
	}
	return os.RemoveAll(m.jobDir(id))
}

// Sweep deletes every job older than the retention window and returns how
// many were removed.
func (m *Manager) Sweep() (int, error) {
	ids, err := m.store.ExpiredIDs(time.Now().Add(-m.cfg.Retention))
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := m.Delete(id); err != nil {
			return 0, err
		}
		m.logger.Info("expired job removed", "job", id)
	}
	return len(ids), nil
}

// RunGC sweeps expired jobs on a timer until the context is cancelled.
func (m *Manager) RunGC(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(); err != nil {
				m.logger.Error("job sweep failed", "error", err)
			}
		}
	}
}

// run executes one job: convert, generate the nav snippet, archive.
func (m *Manager) run(id string, opts types.ConvertConfig) {
	if err := m.store.SetStatus(id, StatusRunning, ""); err != nil {
		m.logger.Error("job status update failed", "job", id, "error", err)
		return
	}

	jobDir := m.jobDir(id)
	opts.InputPath = filepath.Join(jobDir, "input")
	opts.OutputDir = filepath.Join(jobDir, "output")
	opts.Defaults()

	batch := pipeline.NewBatch(opts, m.logger)
	batch.Progress = func(done, total int) {
		if total == 0 {
			return
		}
		if err := m.store.SetProgress(id, done*100/total); err != nil {
			m.logger.Error("job progress update failed", "job", id, "error", err)
		}
	}

	rep, err := batch.Run(io.Discard)
	if err != nil {
		m.fail(id, err)
		return
	}
	if rep.TotalFiles == 0 {
		m.fail(id, fmt.Errorf("no convertible files in upload"))
		return
	}

	if opts.MkDocsNav {
		if err := nav.Write(opts.OutputDir, rep); err != nil {
			m.fail(id, err)
			return
		}
	}

	if err := archiveDir(opts.OutputDir, filepath.Join(jobDir, ArchiveFile)); err != nil {
		m.fail(id, err)
		return
	}

	err = m.store.Finish(id, rep.TotalFiles, rep.Successful, rep.Failed, rep.AverageQualityScore)
	if err != nil {
		m.logger.Error("job finish update failed", "job", id, "error", err)
		return
	}
	m.logger.Info("job completed", "job", id,
		"converted", rep.Successful, "failed", rep.Failed)
}

func (m *Manager) fail(id string, cause error) {
	m.logger.Error("job failed", "job", id, "error", cause)
	if err := m.store.SetStatus(id, StatusFailed, cause.Error()); err != nil {
		m.logger.Error("job status update failed", "job", id, "error", err)
	}
}

func (m *Manager) jobDir(id string) string {
	return filepath.Join(m.cfg.DataDir, id)
}

// archiveDir zips the contents of dir into a single archive at out, with
// entry names relative to dir.
func archiveDir(dir, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archiving %s: %w", dir, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return f.Sync()
}
