package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"followup-cli/internal/model"

	_ "modernc.org/sqlite"
)

// Dispatch is one locally recorded outcome dispatch. The remote service never
// acknowledges writes, so this log is the only durable trail of what was sent.
type Dispatch struct {
	ID     int64
	At     time.Time
	Record model.OutcomeRecord
	// Err is the transport error text when the dispatch failed, empty on
	// success.
	Err string
}

// DispatchLog is an append-only sqlite log at <config dir>/dispatch.sqlite.
type DispatchLog struct {
	// Dir overrides the database directory (tests). Empty uses ConfigDir.
	Dir string
}

func ensureDir(dir string) error { return os.MkdirAll(dir, 0o755) }

func (l DispatchLog) path() (string, error) {
	dir := l.Dir
	if dir == "" {
		var err error
		dir, err = ConfigDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "dispatch.sqlite"), nil
}

func (l DispatchLog) open(ctx context.Context) (*sql.DB, error) {
	path, err := l.path()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout helps avoid
	// "database is locked" flakiness when CLI and TUI log concurrently.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS dispatches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at_unixms INTEGER NOT NULL,
		row_index INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		record_json TEXT NOT NULL,
		err TEXT NOT NULL DEFAULT ''
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Append records one dispatch attempt. dispatchErr may be nil.
func (l DispatchLog) Append(ctx context.Context, rec model.OutcomeRecord, dispatchErr error) error {
	path, err := l.path()
	if err != nil {
		return err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	db, err := l.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	errText := ""
	if dispatchErr != nil {
		errText = dispatchErr.Error()
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO dispatches(at_unixms, row_index, outcome, record_json, err) VALUES(?, ?, ?, ?, ?)`,
		time.Now().UTC().UnixMilli(), rec.RowIndex, string(rec.Outcome), string(b), errText)
	return err
}

// Recent returns the most recent dispatches, newest first. limit <= 0 returns
// everything.
func (l DispatchLog) Recent(ctx context.Context, limit int) ([]Dispatch, error) {
	db, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT id, at_unixms, record_json, err FROM dispatches ORDER BY id DESC`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.QueryContext(ctx, q+` LIMIT ?`, limit)
	} else {
		rows, err = db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		var tsMs int64
		var recJSON string
		if err := rows.Scan(&d.ID, &tsMs, &recJSON, &d.Err); err != nil {
			return nil, err
		}
		d.At = time.UnixMilli(tsMs).UTC()
		if err := json.Unmarshal([]byte(recJSON), &d.Record); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Dispatch{}
	}
	return out, nil
}
