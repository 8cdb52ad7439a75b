// Package ledger keeps an optional SQLite record of extraction runs and
// their per-row outcomes, alongside the plain-text run log.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"speech-clipper/domain/clip"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run status values
const (
	RunRunning     = "running"
	RunFinished    = "finished"
	RunInterrupted = "interrupted"
)

// Ledger implements clip.OutcomeRecorder on SQLite
type Ledger struct {
	conn   *sql.DB
	logger *slog.Logger
}

// RunInfo is a stored run row
type RunInfo struct {
	ID           string
	ManifestPath string
	Status       string
	Completed    int
	Skipped      int
	Failed       int
}

// New opens (creating if needed) the ledger database at dbPath
func New(dbPath string, logger *slog.Logger) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	l := &Ledger{conn: conn, logger: logger}

	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := l.markInterruptedRuns(); err != nil && logger != nil {
		logger.Warn("failed to mark interrupted runs", "error", err)
	}

	return l, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.conn.Close()
}

func (l *Ledger) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}

		name := m.Name()

		if l.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		if _, err := l.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}

		if _, err := l.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}

		if l.logger != nil {
			l.logger.Debug("applied ledger migration", "name", name)
		}
	}

	return nil
}

func (l *Ledger) isMigrationApplied(name string) bool {
	var applied int
	err := l.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

// markInterruptedRuns closes out runs left "running" by a killed process
func (l *Ledger) markInterruptedRuns() error {
	_, err := l.conn.ExecContext(context.Background(),
		`UPDATE runs SET status = ?, finished_at = datetime('now') WHERE status = ?`,
		RunInterrupted, RunRunning)
	return err
}

// StartRun registers a new run
func (l *Ledger) StartRun(ctx context.Context, runID, manifestPath string) error {
	_, err := l.conn.ExecContext(ctx,
		`INSERT INTO runs (id, manifest_path, status) VALUES (?, ?, ?)`,
		runID, manifestPath, RunRunning)
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", runID, err)
	}
	return nil
}

// Record implements clip.OutcomeRecorder
func (l *Ledger) Record(ctx context.Context, runID string, o clip.Outcome) error {
	_, err := l.conn.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, line, segment_id, status, reason, exit_status, output_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Line, o.SegmentID, o.Status.String(), o.Reason, o.ExitStatus, o.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to record outcome for %s: %w", o.SegmentID, err)
	}
	return nil
}

// FinishRun stores the final counts and marks the run finished
func (l *Ledger) FinishRun(ctx context.Context, s *clip.Summary) error {
	_, err := l.conn.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed = ?, skipped = ?, failed = ?, finished_at = datetime('now')
		 WHERE id = ?`,
		RunFinished, s.Completed, s.Skipped, s.Failed, s.RunID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", s.RunID, err)
	}
	return nil
}

// GetRun returns a stored run, or nil if unknown
func (l *Ledger) GetRun(ctx context.Context, runID string) (*RunInfo, error) {
	var r RunInfo
	err := l.conn.QueryRowContext(ctx,
		`SELECT id, manifest_path, status, completed, skipped, failed FROM runs WHERE id = ?`, runID,
	).Scan(&r.ID, &r.ManifestPath, &r.Status, &r.Completed, &r.Skipped, &r.Failed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &r, nil
}

// Outcomes returns a run's outcomes in the order they were recorded
func (l *Ledger) Outcomes(ctx context.Context, runID string) ([]clip.Outcome, error) {
	rows, err := l.conn.QueryContext(ctx,
		`SELECT line, segment_id, status, reason, exit_status, output_path
		 FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var result []clip.Outcome
	for rows.Next() {
		var o clip.Outcome
		var status string
		if err := rows.Scan(&o.Line, &o.SegmentID, &status, &o.Reason, &o.ExitStatus, &o.OutputPath); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Status = parseStatus(status)
		result = append(result, o)
	}
	return result, rows.Err()
}

func parseStatus(s string) clip.Status {
	switch s {
	case clip.StatusSkipped.String():
		return clip.StatusSkipped
	case clip.StatusFailed.String():
		return clip.StatusFailed
	default:
		return clip.StatusCompleted
	}
}

// Ensure Ledger implements clip.OutcomeRecorder
var _ clip.OutcomeRecorder = (*Ledger)(nil)
