package journal

import (
	"testing"
	"time"
)

func TestBoltJournalRecordsAndForgetsKeys(t *testing.T) {
	jnl, err := New(t.TempDir() + "/journal.db")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer jnl.Close()

	entries := []Entry{
		{ID: "2", Name: "bob", Operation: "create"},
		{ID: "1", Name: "alice", Operation: "list"},
	}
	for _, entry := range entries {
		if err := jnl.RecordKey(entry); err != nil {
			t.Fatalf("RecordKey %s: %v", entry.ID, err)
		}
	}

	got, err := jnl.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "2" {
		t.Fatalf("entries not sorted by id: %+v", got)
	}
	if got[0].SeenAt.IsZero() {
		t.Error("SeenAt not defaulted")
	}

	// Re-recording the same id replaces the entry.
	if err := jnl.RecordKey(Entry{ID: "1", Name: "alice", Operation: "update", SeenAt: time.Now()}); err != nil {
		t.Fatalf("RecordKey update: %v", err)
	}
	got, err = jnl.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 2 || got[0].Operation != "update" {
		t.Fatalf("upsert failed: %+v", got)
	}

	if err := jnl.DeleteKey("1"); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if err := jnl.DeleteKey("does-not-exist"); err != nil {
		t.Fatalf("DeleteKey unknown id: %v", err)
	}

	got, err = jnl.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("delete failed: %+v", got)
	}
}

func TestBoltJournalRejectsEmptyID(t *testing.T) {
	jnl, err := New(t.TempDir() + "/journal.db")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer jnl.Close()

	if err := jnl.RecordKey(Entry{Name: "no-id"}); err == nil {
		t.Fatal("expected error for entry without id")
	}
}

func TestNewSupportsNoop(t *testing.T) {
	jnl, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := jnl.RecordKey(Entry{ID: "x"}); err != nil {
		t.Fatalf("noop RecordKey: %v", err)
	}
	entries, err := jnl.Keys()
	if err != nil || entries != nil {
		t.Fatalf("noop Keys: %v %v", entries, err)
	}
}
