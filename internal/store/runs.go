package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/autosave/internal/manifest"
)

// IDGenerator produces run IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates UUIDv7 run IDs. The time-ordered prefix only
// helps index locality; ordering still comes from seq.
type UUIDGenerator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run is one recorded generation.
type Run struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	IOC          string `json:"ioc"`
	Arch         string `json:"arch"`
	ManifestHash string `json:"manifest_hash"`
}

// WriteRun records a manifest under runID and returns the stored run.
// The seq is assigned as one past the highest recorded seq.
//
// Writing an ID that already exists is a no-op that returns the stored
// run, so retrying a write is safe.
func (s *Store) WriteRun(ctx context.Context, runID string, m *manifest.Manifest) (Run, error) {
	hash, err := m.Hash()
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanRun(tx.QueryRowContext(ctx, `
		SELECT id, seq, ioc, arch, manifest_hash FROM runs WHERE id = ?
	`, runID))
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	run := Run{ID: runID, IOC: m.IOC, Arch: m.Arch, ManifestHash: hash}
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, ioc, arch, manifest_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Seq, run.IOC, run.Arch, run.ManifestHash)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	for _, a := range m.Artifacts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (run_id, name, content_hash, size)
			VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, run.ID, a.Name, a.Hash, a.Size)
		if err != nil {
			return Run{}, fmt.Errorf("write artifact %s: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recent run for an IOC. The bool is false when
// the IOC has no history.
func (s *Store) LatestRun(ctx context.Context, ioc string) (Run, bool, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, seq, ioc, arch, manifest_hash
		FROM runs
		WHERE ioc = ?
		ORDER BY seq DESC
		LIMIT 1
	`, ioc))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("latest run: %w", err)
	}
	return run, true, nil
}

// ListRuns returns all runs for an IOC ordered by seq ASC.
//
// Returns an empty slice (not nil) if the IOC has no history.
func (s *Store) ListRuns(ctx context.Context, ioc string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, ioc, arch, manifest_hash
		FROM runs
		WHERE ioc = ?
		ORDER BY seq ASC
	`, ioc)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadArtifacts returns the artifacts of a run ordered by name.
func (s *Store) ReadArtifacts(ctx context.Context, runID string) ([]manifest.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, content_hash, size
		FROM artifacts
		WHERE run_id = ?
		ORDER BY name COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []manifest.Artifact{}
	for rows.Next() {
		var a manifest.Artifact
		if err := rows.Scan(&a.Name, &a.Hash, &a.Size); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Seq, &r.IOC, &r.Arch, &r.ManifestHash)
	return r, err
}
