package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const activityDirName = ".nihonjindes"

// ActivityLog is a local, append-only record of editing activity (structural
// edits, undo/redo, save outcomes) kept in SQLite beside the course file.
// It is an audit aid, not part of the document: losing it loses nothing but
// the trail.
type ActivityLog struct {
	db *sql.DB
}

// Entry is one recorded action.
type Entry struct {
	ID     int64
	At     time.Time
	Type   string
	Node   string
	Detail string
}

// ActivityLogPath returns the database location for a given course file.
func ActivityLogPath(coursePath string) string {
	return filepath.Join(filepath.Dir(coursePath), activityDirName, "activity.sqlite")
}

// OpenActivityLog opens (creating if needed) the activity log for a course
// file.
func OpenActivityLog(ctx context.Context, coursePath string) (*ActivityLog, error) {
	path := ActivityLogPath(coursePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout avoids "database is
	// locked" flakiness when the CLI tails the log while the editor runs.
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
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS activity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at_unixms INTEGER NOT NULL,
		type TEXT NOT NULL,
		node TEXT NOT NULL,
		detail TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ActivityLog{db: db}, nil
}

// Append records one action. Errors are returned but callers generally treat
// them as best-effort.
func (a *ActivityLog) Append(ctx context.Context, typ, node, detail string) error {
	if a == nil || a.db == nil {
		return nil
	}
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO activity (at_unixms, type, node, detail) VALUES (?, ?, ?, ?)`,
		time.Now().UnixMilli(), typ, node, detail)
	return err
}

// Tail returns the most recent entries, newest first. limit == 0 means all.
func (a *ActivityLog) Tail(ctx context.Context, limit int) ([]Entry, error) {
	if a == nil || a.db == nil {
		return nil, fmt.Errorf("activity log not open")
	}
	q := `SELECT id, at_unixms, type, node, detail FROM activity ORDER BY id DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = a.db.QueryContext(ctx, q+` LIMIT ?`, limit)
	} else {
		rows, err = a.db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var atMs int64
		if err := rows.Scan(&e.ID, &atMs, &e.Type, &e.Node, &e.Detail); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(atMs)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (a *ActivityLog) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}
