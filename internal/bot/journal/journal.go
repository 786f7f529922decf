// Package journal persists the lifecycle of every ledger submission to
// sqlite, so an unattended agent's mutations can be audited post-mortem.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id           TEXT PRIMARY KEY,
	description  TEXT NOT NULL,
	system       TEXT NOT NULL,
	submitted_at TEXT NOT NULL,
	status       TEXT,
	error        TEXT,
	resolved_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
`

type reqKind int

const (
	reqSubmitted reqKind = iota + 1
	reqResolved
)

type req struct {
	kind reqKind

	id     string
	desc   string
	system string
	status string
	errMsg string
	at     time.Time
}

// Journal implements txn.Recorder over a single background writer, the same
// single-writer discipline the rest of the storage layer assumes.
type Journal struct {
	db *sql.DB

	mu     sync.Mutex
	closed bool
	ch     chan req
	wg     sync.WaitGroup
}

func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	j := &Journal{db: db, ch: make(chan req, 256)}
	j.wg.Add(1)
	go j.writer()
	return j, nil
}

func (j *Journal) writer() {
	defer j.wg.Done()
	for r := range j.ch {
		switch r.kind {
		case reqSubmitted:
			_, _ = j.db.Exec(
				`INSERT OR REPLACE INTO submissions (id, description, system, submitted_at) VALUES (?, ?, ?, ?)`,
				r.id, r.desc, r.system, r.at.UTC().Format(time.RFC3339Nano))
		case reqResolved:
			_, _ = j.db.Exec(
				`UPDATE submissions SET status = ?, error = ?, resolved_at = ? WHERE id = ?`,
				r.status, r.errMsg, r.at.UTC().Format(time.RFC3339Nano), r.id)
		}
	}
}

// record drops events arriving after Close: detached submission watchers may
// resolve while the process is shutting down.
func (j *Journal) record(r req) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	j.ch <- r
}

// Submitted implements txn.Recorder.
func (j *Journal) Submitted(id, description, system string, at time.Time) {
	j.record(req{kind: reqSubmitted, id: id, desc: description, system: system, at: at})
}

// Resolved implements txn.Recorder.
func (j *Journal) Resolved(id, status, errMsg string, at time.Time) {
	j.record(req{kind: reqResolved, id: id, status: status, errMsg: errMsg, at: at})
}

// Entry is one journaled submission.
type Entry struct {
	ID          string
	Description string
	System      string
	SubmittedAt string
	Status      string
	Error       string
	ResolvedAt  string
}

// Unresolved lists submissions that never got a resolution, oldest first.
func (j *Journal) Unresolved() ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT id, description, system, submitted_at FROM submissions WHERE status IS NULL ORDER BY submitted_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Description, &e.System, &e.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get fetches one entry by submission id.
func (j *Journal) Get(id string) (Entry, error) {
	var e Entry
	var status, errMsg, resolvedAt sql.NullString
	err := j.db.QueryRow(
		`SELECT id, description, system, submitted_at, status, error, resolved_at FROM submissions WHERE id = ?`, id).
		Scan(&e.ID, &e.Description, &e.System, &e.SubmittedAt, &status, &errMsg, &resolvedAt)
	if err != nil {
		return Entry{}, err
	}
	e.Status, e.Error, e.ResolvedAt = status.String, errMsg.String, resolvedAt.String
	return e, nil
}

// Close drains queued writes and closes the database. Events recorded after
// Close are dropped, never sent.
func (j *Journal) Close() error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.ch)
	}
	j.mu.Unlock()
	j.wg.Wait()
	return j.db.Close()
}
