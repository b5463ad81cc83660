// Package store provides the SQLite-backed reconfiguration journal.
//
// Every pass that changed a node is appended as one row in passes, with its
// field changes in changes. The journal is a history of edits, not a graph
// save format: it records stream references and parameter text, which are
// enough to audit or diff but not to rebuild a graph.
//
// # Ordering
//
// Rows are ordered by seq, the logical clock value the controller stamped on
// the pass, and then by id. Queries always use
// ORDER BY seq ASC, id COLLATE BINARY ASC so two reads of the same journal
// return the same sequence.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: changes rows must reference an existing pass
package store
