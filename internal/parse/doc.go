// Package parse defines the contracts shared by every parse strategy and the
// coordinator that dispatches between them.
//
// A parse attempt flows through a fixed sequence of stages:
//
//	CanHandle -> Confidence -> Validate -> Normalize -> Convert
//
// Validate accumulates every problem it finds rather than stopping at the
// first one. Normalize never fails; it fills defaults, rounds and clamps,
// logging each action as a named transform. Convert is the only stage allowed
// to fail because the calendar layer rejected a fully resolved value.
//
// Expected failures travel as values: a Result carries either a Timestamp or
// an *Error, never both. Panics raised while a strategy runs are recovered by
// Run and reported as conversion errors.
//
// Components holds the intermediate calendar record used by the list, record
// and text strategies, together with the shared range, normalization and
// confidence rules those strategies apply.
package parse
