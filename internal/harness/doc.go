// Package harness runs query build scenarios against a fully wired service.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: kql_process_hunt
//	description: "What this scenario validates"
//	schemas:              # optional, platform -> directory relative to the file
//	  cbc: schemas/cbc
//	max_limits:           # optional
//	  kql: 500
//	steps:
//	  - build:
//	      platform: kql
//	      dataset: DeviceProcessEvents
//	      filters:
//	        - {field: FileName, operator: "=~", value: powershell.exe}
//	    expect:
//	      query: |-
//	        DeviceProcessEvents
//	        | where FileName =~ "powershell.exe"
//	        ...
//	  - retrieve:
//	      query: network connections
//	      k: 3
//	assertions:
//	  - type: dataset
//	    step: 0
//	    value: DeviceProcessEvents
//
// Platforms without a schema directory use the embedded schemas.
//
// # Assertion Types
//
//   - query_contains: the step's query contains value
//   - warning_contains: one of the step's warnings contains value
//   - dataset: the step built against dataset value
//   - matched_fields: the step's matched fields equal values, in order
//   - suggestions: every entry of values is among the step's error suggestions
//   - min_matches: a retrieve step returned at least count matches
//   - top_match: the first match of a retrieve step came from source value
//   - same_query: every listed step produced the same query and AST digest
//
// # Deterministic Testing
//
// Every run builds a fresh service with sequential request IDs, no index
// cache and a discarded log, so the trace of two runs is identical and can be
// compared against golden files.
package harness
