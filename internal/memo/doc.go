// Package memo provides the in-process memo table used by the parse
// coordinator: a bounded LRU map from cache keys to values with an optional
// time-to-live, hit/miss accounting and de-duplication of concurrent
// computations of the same key.
//
// All methods are safe for concurrent use.
package memo
