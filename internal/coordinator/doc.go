// Package coordinator dispatches raw input to the best parse strategy.
//
// A Coordinator holds an ordered Registry of strategies plus one fallback.
// For each call it:
//
//  1. filters the registry to strategies whose CanHandle accepts the input
//     (the fallback runs when none do);
//  2. ranks them by confidence, then static priority, then registration
//     order;
//  3. offers the selected strategy, and only that one, its fast path;
//  4. otherwise runs the selected strategy's full pipeline. A failure is
//     reported as is unless WithRetryOnFailure is set;
//  5. memoizes successful, cacheable results under a cache key derived
//     from the raw input and the resolved options.
//
// Results are memoized in process (memo.Cache) and, when configured, in a
// PersistentCache such as store.Store.
package coordinator
