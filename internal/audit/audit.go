// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package audit keeps a local trail of profile mutations (switch, create,
// delete, regenerate) in a SQLite database next to the profile store.
// Audit failures are advisory: they must never fail the operation that
// triggered them, so callers log and continue.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Actions recorded in the trail.
const (
	ActionSwitch     = "SWITCH"
	ActionCreate     = "CREATE_PROFILE"
	ActionImport     = "IMPORT_KEY"
	ActionDelete     = "DELETE_PROFILE"
	ActionRegenerate = "REGENERATE_KEY"
	ActionRestore    = "RESTORE_BACKUP"
)

// Entry is one audit row.
type Entry struct {
	bun.BaseModel `bun:"table:audit_log"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Timestamp time.Time `bun:"timestamp,notnull"`
	Action    string    `bun:"action,notnull"`
	Profile   string    `bun:"profile"`
	Details   string    `bun:"details"`
}

// Log is an open audit database.
type Log struct {
	db *bun.DB
}

// Open opens (and if necessary initializes) the audit database at path.
func Open(path string) (*Log, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open audit database: %w", err)
	}
	db := bun.NewDB(sqlDB, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*Entry)(nil)).
		IfNotExists().
		Exec(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize audit schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Record appends one entry to the trail.
func (l *Log) Record(action, profile, details string) error {
	entry := &Entry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Profile:   profile,
		Details:   details,
	}
	_, err := l.db.NewInsert().Model(entry).Exec(context.Background())
	return err
}

// Entries returns the most recent entries, newest first. A limit of 0
// returns everything.
func (l *Log) Entries(limit int) ([]Entry, error) {
	var entries []Entry
	q := l.db.NewSelect().Model(&entries).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(context.Background()); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}
