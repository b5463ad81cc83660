// Package harness runs reconfiguration scenarios against a compiled graph
// and checks the result.
//
// A scenario names a graph description, a list of passes to run through the
// reconfiguration controller, and assertions over the final graph, the
// event trace and the pass journal.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: subtract_swap
//	description: "Swapping Subtract inputs renames downstream nodes"
//	graph: ../graphs/bench.cue      # relative to the scenario file
//	steps:
//	  - node: Subtract1
//	    inputs: { "IN+": scope.CH2, "IN-": scope.CH1 }
//	    params:
//	      - { name: Threshold, text: "3.3 V" }
//	    rename: diff                   # or use_default: true
//	    abandon: false
//	    expect:
//	      reconfigured: true
//	      rejections: [INVALID_FORMAT]
//	      candidates: { "IN+": [NULL, CH1, CH2] }
//	assertions:
//	  - type: binding
//	    node: FFT1
//	    input: din
//	    stream: Subtract1
//	  - type: display_name
//	    node: FFT1
//	    name: "FFT(diff)"
//
// graph_source may hold the CUE text inline instead of graph.
//
// # Assertion Types
//
//   - binding: an input is bound to the given stream reference
//   - param: a parameter renders as the given text
//   - display_name: a node's display name
//   - trace_count: number of trace events of a type, optionally for one node
//   - trace_order: nodes appear in pass events in the given order
//   - journal_count: number of journaled passes, optionally for one node
//
// # Deterministic Testing
//
// Every run uses sequential pass IDs, a deterministic clock and a fresh
// in-memory journal, so traces compare byte for byte against golden files.
package harness
