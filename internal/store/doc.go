// Package store provides the SQLite-backed second level of the parse memo.
//
// Each row maps a bounded cache key to the canonical timestamp a successful
// parse produced, together with the strategy that produced it and the
// attempt ID for log correlation. Rows are rebuilt with canon.FromTime, so a
// cached result is identical to the original one.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: Incremental migrations
package store
