// Package cachekey builds deterministic fingerprints for memoized results.
//
// A key is an ordered sequence of typed parts joined with a reserved delimiter.
// Each part starts with a type sigil and escapes every reserved character, so
// the delimiter never appears inside a part and parts of different types never
// encode to the same text:
//
//	'text      string (NFC normalized, escaped)
//	#42        number (integral floats encode like integers)
//	1 / 0      boolean flag
//	~          nil
//	{k:v,...}  record, keys sorted by UTF-16 code units
//	[a,b]      list
//	^<sec>.<ns>@zone   time.Time
//	@<key>     value implementing Keyer
//
// Structurally equal records always produce the same text regardless of the
// insertion order of their keys.
//
// Keys that must be bounded in length (persisted cache rows) go through Bound,
// which keeps a hash of the full key as a suffix so keys that differ beyond
// the cut remain distinct.
package cachekey
