package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/atemporal/internal/cachekey"
	"github.com/roach88/atemporal/internal/canon"
)

// Entry is one cached parse result.
type Entry struct {
	Key        string
	Timestamp  canon.Timestamp
	Strategy   string
	Confidence float64
	AttemptID  string
	// StoredAt defaults to the write time.
	StoredAt time.Time
	// Hits is maintained by the store and ignored by Put.
	Hits int64
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries    int64            `json:"entries"`
	Hits       int64            `json:"hits"`
	ByStrategy map[string]int64 `json:"byStrategy"`
}

// storageKey bounds key to the stored key length and rejects keys that
// cannot be stored.
func storageKey(key string) (string, error) {
	bounded := cachekey.Bound(key)
	if err := cachekey.Validate(bounded); err != nil {
		return "", err
	}
	return bounded, nil
}

// Put inserts or replaces the entry for e.Key.
func (s *Store) Put(ctx context.Context, e Entry) error {
	key, err := storageKey(e.Key)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("put %q: zero timestamp", key)
	}
	storedAt := e.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}

	t := e.Timestamp.Time()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parse_cache
		(cache_key, unix_seconds, nanos, zone, calendar, strategy, confidence, attempt_id, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			unix_seconds = excluded.unix_seconds,
			nanos = excluded.nanos,
			zone = excluded.zone,
			calendar = excluded.calendar,
			strategy = excluded.strategy,
			confidence = excluded.confidence,
			attempt_id = excluded.attempt_id,
			stored_at = excluded.stored_at
	`,
		key,
		t.Unix(),
		t.Nanosecond(),
		e.Timestamp.Zone(),
		string(e.Timestamp.Calendar()),
		e.Strategy,
		e.Confidence,
		e.AttemptID,
		storedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Get returns the entry for key and counts the hit.
// A missing key returns ok=false and a nil error.
func (s *Store) Get(ctx context.Context, key string) (Entry, bool, error) {
	bounded, err := storageKey(key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("get: %w", err)
	}

	var (
		secs, nanos, storedAt int64
		zone, cal             string
		e                     Entry
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT unix_seconds, nanos, zone, calendar, strategy, confidence, attempt_id, stored_at, hits
		FROM parse_cache
		WHERE cache_key = ?
	`, bounded).Scan(&secs, &nanos, &zone, &cal, &e.Strategy, &e.Confidence, &e.AttemptID, &storedAt, &e.Hits)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %q: %w", bounded, err)
	}

	ts, err := canon.FromTime(time.Unix(secs, nanos), zone, canon.Calendar(cal))
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %q: rebuild timestamp: %w", bounded, err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE parse_cache SET hits = hits + 1 WHERE cache_key = ?`, bounded); err != nil {
		return Entry{}, false, fmt.Errorf("get %q: count hit: %w", bounded, err)
	}

	e.Key = bounded
	e.Timestamp = ts
	e.StoredAt = time.UnixMilli(storedAt)
	e.Hits++
	return e, true, nil
}

// Delete removes the entry for key, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	bounded, err := storageKey(key)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM parse_cache WHERE cache_key = ?`, bounded)
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", bounded, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", bounded, err)
	}
	return n > 0, nil
}

// Count returns the number of cached entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parse_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Purge deletes entries stored before cutoff and returns how many were
// removed. A zero cutoff deletes everything.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if cutoff.IsZero() {
		res, err = s.db.ExecContext(ctx, `DELETE FROM parse_cache`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM parse_cache WHERE stored_at < ?`, cutoff.UnixMilli())
	}
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return n, nil
}

// Stats returns entry and hit totals with a per-strategy breakdown.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByStrategy: map[string]int64{}}
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, COUNT(*), COALESCE(SUM(hits), 0)
		FROM parse_cache
		GROUP BY strategy
		ORDER BY strategy COLLATE BINARY ASC
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			strategy    string
			count, hits int64
		)
		if err := rows.Scan(&strategy, &count, &hits); err != nil {
			return Stats{}, fmt.Errorf("stats: scan: %w", err)
		}
		st.ByStrategy[strategy] = count
		st.Entries += count
		st.Hits += hits
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("stats: iterate: %w", err)
	}
	return st, nil
}
