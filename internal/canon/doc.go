// Package canon provides the canonical timestamp types produced by the parse core.
//
// This package contains value types and calendar arithmetic only. All other
// internal packages import canon; canon imports nothing internal. This keeps
// the canonical representation the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - A Timestamp is always calendar-valid for its zone and calendar. There is
//     no "invalid timestamp" value; constructors return an error instead.
//   - Timestamps are immutable. Every transformation returns a new value.
//   - Only the proleptic Gregorian calendar is supported (iso8601 and gregory
//     tags both map onto it).
//   - Sub-second precision is the nanosecond, split into millisecond,
//     microsecond and nanosecond components (each 0-999).
package canon
