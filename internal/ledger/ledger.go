// Package ledger records sifting stage invocations in a SQLite database so
// that a pipeline operator can see what ran, with which parameters, and what
// it produced.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/spotlight-pulseline/pulsift/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ledger is a handle on the run database.
type Ledger struct {
	db *sql.DB
}

// Run is one recorded stage invocation.
type Run struct {
	ID         string
	Stage      string // consolidate, harmonics, beams, prepare-trials, foldlist
	Name       string // beam or observation name the stage worked on
	ParamsJSON string
	Inputs     int
	Outputs    int
	NoData     bool
	OutputPath string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the run took.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// EncodeParams renders stage parameters for Run.ParamsJSON.
func EncodeParams(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Open opens (creating if needed) the ledger at path and applies pending
// migrations.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	// Concurrent stage workers share one writer connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger %s: %s: %w", path, pragma, err)
		}
	}

	l := &Ledger{db: db}
	if err := l.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database.
func (l *Ledger) Close() error { return l.db.Close() }

// MigrateUp applies all pending embedded migrations.
func (l *Ledger) MigrateUp() error {
	m, err := l.newMigrate()
	if err != nil {
		return err
	}
	// The migrate instance is not closed: closing it would close l.db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (l *Ledger) SchemaVersion() (uint, bool, error) {
	m, err := l.newMigrate()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (l *Ledger) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(l.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// migrateLogger routes golang-migrate output to the diag stream.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Diagf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// RecordRun stores r. An empty ID is filled with a new run ID, which is
// returned.
func (l *Ledger) RecordRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	if r.ParamsJSON == "" {
		r.ParamsJSON = "{}"
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sifting_runs (
			run_id, stage, name, params_json, inputs, outputs, no_data,
			output_path, error, started_ns, finished_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Stage, r.Name, r.ParamsJSON, r.Inputs, r.Outputs, r.NoData,
		r.OutputPath, r.Error, r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return r.ID, nil
}

// ListRuns returns up to limit runs, most recent first. A stage filter of ""
// matches every stage.
func (l *Ledger) ListRuns(ctx context.Context, stage string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT run_id, stage, name, params_json, inputs, outputs, no_data,
		       output_path, error, started_ns, finished_ns
		FROM sifting_runs
		WHERE ? = '' OR stage = ?
		ORDER BY started_ns DESC, run_id
		LIMIT ?`, stage, stage, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Stage, &r.Name, &r.ParamsJSON, &r.Inputs, &r.Outputs,
			&r.NoData, &r.OutputPath, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		r.FinishedAt = time.Unix(0, finished).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
