// Package strategy implements the built-in parse strategies, one per input
// shape family:
//
//	canonical  canon.Timestamp, canon.DateTime and parse.Wrapper values
//	native     time.Time
//	external   seconds/nanoseconds structures
//	record     keyed component maps and canon.Fields
//	array      ordered numeric component lists
//	numeric    epoch milliseconds
//	text       ISO 8601 and common textual layouts
//	fallback   anything else, always unparseable
//
// Each strategy documents its structural predicate on CanHandle. All of them
// delegate Parse to parse.Run.
package strategy
