// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package journal keeps a history of sync runs in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/walteh/profilesync/pkg/plan"
	"github.com/walteh/profilesync/pkg/status"
	"gitlab.com/tozd/go/errors"
)

const schema = `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		machine     TEXT NOT NULL,
		user        TEXT NOT NULL,
		source      TEXT NOT NULL,
		destination TEXT NOT NULL,
		dry_run     INTEGER NOT NULL,
		exit_code   INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS entries (
		run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		name        TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		simulated   INTEGER NOT NULL,
		exit_code   INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		attempts    INTEGER NOT NULL,
		detail      TEXT NOT NULL,
		error       TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// 📓 Run is one journaled sync
type Run struct {
	ID          int64
	Started     time.Time
	Finished    time.Time
	Machine     string
	User        string
	Source      string
	Destination string
	DryRun      bool
	ExitCode    int
	Entries     []Entry
}

// 📄 Entry is one journaled task or job
type Entry struct {
	Kind      string
	Name      string
	Outcome   string
	Simulated bool
	ExitCode  int
	Duration  time.Duration
	Attempts  int
	Detail    string
	Error     string
}

// Failed counts entries that did not succeed
func (r Run) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Error != "" || (e.Outcome != "success" && e.Outcome != "partial") {
			n++
		}
	}
	return n
}

// 🔄 FromSummary converts a finished run
func FromSummary(spec plan.ProfileSpec, sum *status.Summary) Run {
	run := Run{
		Started:     sum.Started(),
		Finished:    sum.Started().Add(sum.Elapsed()),
		Machine:     spec.Machine,
		User:        spec.User,
		Source:      spec.SourceRoot(),
		Destination: spec.Destination,
		DryRun:      sum.DryRun(),
		ExitCode:    sum.ExitCode(),
	}
	for _, e := range sum.Entries() {
		entry := Entry{
			Kind:      string(e.Kind),
			Name:      e.Name,
			Outcome:   e.Outcome.String(),
			Simulated: e.Simulated,
			ExitCode:  e.ExitCode,
			Duration:  e.Duration,
			Attempts:  e.Attempts,
			Detail:    e.Detail,
		}
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
		run.Entries = append(run.Entries, entry)
	}
	return run
}

// 🗄️ Journal is an open run history
type Journal struct {
	db   *sql.DB
	path string
}

// 🏭 Open opens or creates the journal at path
func Open(ctx context.Context, path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Errorf("opening journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Errorf("preparing journal schema: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("journal opened")

	return &Journal{db: db, path: path}, nil
}

// Path returns the database file
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// 📝 Record stores a run and its entries, returning the new run id
func (j *Journal) Record(ctx context.Context, run Run) (int64, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Errorf("starting journal transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, finished_at, machine, user, source, destination, dry_run, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Started.UnixMilli(), run.Finished.UnixMilli(), run.Machine, run.User, run.Source, run.Destination, run.DryRun, run.ExitCode)
	if err != nil {
		return 0, errors.Errorf("recording run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (run_id, seq, kind, name, outcome, simulated, exit_code, duration_ms, attempts, detail, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, errors.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range run.Entries {
		if _, err := stmt.ExecContext(ctx, id, i, e.Kind, e.Name, e.Outcome, e.Simulated, e.ExitCode, e.Duration.Milliseconds(), e.Attempts, e.Detail, e.Error); err != nil {
			return 0, errors.Errorf("recording entry %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Errorf("committing run: %w", err)
	}
	return id, nil
}

// 📚 Recent returns up to limit runs, newest first, with their entries
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, machine, user, source, destination, dry_run, exit_code
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Machine, &r.User, &r.Source, &r.Destination, &r.DryRun, &r.ExitCode); err != nil {
			return nil, errors.Errorf("scanning run: %w", err)
		}
		r.Started = time.UnixMilli(started)
		r.Finished = time.UnixMilli(finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("reading runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		entries, err := j.Entries(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Entries = entries
	}
	return runs, nil
}

// Entries returns the entries of one run in recorded order
func (j *Journal) Entries(ctx context.Context, runID int64) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, name, outcome, simulated, exit_code, duration_ms, attempts, detail, error
		FROM entries
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, errors.Errorf("querying entries for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.Kind, &e.Name, &e.Outcome, &e.Simulated, &e.ExitCode, &ms, &e.Attempts, &e.Detail, &e.Error); err != nil {
			return nil, errors.Errorf("scanning entry: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("reading entries: %w", err)
	}
	return out, nil
}
