package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/atemporal/internal/canon"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates an entry for a fixed instant in zone.
func createTestEntry(key, zone string, storedAt time.Time) Entry {
	ts := canon.MustNew(canon.Fields{
		Year: 2023, Month: 6, Day: 15, Hour: 14, Minute: 30, Second: 45,
		Millisecond: 123, Microsecond: 456, Nanosecond: 789,
	}, zone, canon.ISO8601)
	return Entry{
		Key:        key,
		Timestamp:  ts,
		Strategy:   "array",
		Confidence: 0.95,
		AttemptID:  "0190a4d2-0000-7000-8000-000000000001",
		StoredAt:   storedAt,
	}
}
