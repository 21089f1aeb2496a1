// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package audit

import (
	"path/filepath"
	"testing"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	trail, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("could not open audit db: %v", err)
	}
	t.Cleanup(func() { trail.Close() })
	return trail
}

func TestRecordAndList(t *testing.T) {
	trail := openTestLog(t)

	if err := trail.Record(ActionCreate, "work", "SHA256:abc"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := trail.Record(ActionSwitch, "work", ""); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	entries, err := trail.Entries(0)
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Action != ActionSwitch || entries[1].Action != ActionCreate {
		t.Errorf("unexpected order: %s then %s", entries[0].Action, entries[1].Action)
	}
	if entries[1].Details != "SHA256:abc" {
		t.Errorf("details = %q", entries[1].Details)
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("timestamp not recorded")
	}
}

func TestEntriesLimit(t *testing.T) {
	trail := openTestLog(t)
	for i := 0; i < 5; i++ {
		if err := trail.Record(ActionSwitch, "work", ""); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	entries, err := trail.Entries(3)
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if err := first.Record(ActionDelete, "old", ""); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	first.Close()

	// Reopening an existing database must keep the trail intact.
	second, err := Open(path)
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	defer second.Close()
	entries, err := second.Entries(0)
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != ActionDelete {
		t.Errorf("trail lost across reopen: %+v", entries)
	}
}
