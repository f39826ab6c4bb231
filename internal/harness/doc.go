// Package harness runs conformance scenarios against the parse coordinator.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: spec_scenarios
//	description: "What this scenario validates"
//	options:
//	  zone: UTC            # call-site zone for every step
//	  default_zone: ""     # process default zone
//	  strict: false
//	  retry: false         # retry the next candidate on failure
//	  memo: false          # enable the in-process memo
//	flow:
//	  - input: [2023, 6, 15, 14, 30, 45, 123]
//	    expect:
//	      timestamp: "2023-06-15T14:30:45.123+00:00[UTC]"
//	      strategy: array
//	      fast_path: true
//	  - input: [0, 1, 1]
//	    expect:
//	      code: ARRAY_VALIDATION
//	      message_contains: "1-9999"
//	assertions:
//	  - type: strategy_count
//	    strategy: array
//	    count: 2
//
// A step may set zone, calendar and strict to override the scenario options,
// and "as" to build a Go value YAML cannot express:
//
//   - native: an RFC 3339 string becomes a time.Time
//   - external: a {seconds, nanoseconds} record becomes a parse.ExternalTimestamp
//
// # Assertion Types
//
//   - strategy_used: the strategy produced at least one result
//   - strategy_order: the strategies appear in this order (gaps allowed)
//   - strategy_count: the strategy produced exactly count results
//   - failure_count: exactly count steps failed
//   - cached_count: exactly count steps were served from a memo
//
// # Deterministic Testing
//
// Every scenario runs on a fresh coordinator with a stepping clock, attempt
// IDs derived from the scenario name and no persistent cache, so the trace
// is identical across runs and can be compared with a golden file.
package harness
