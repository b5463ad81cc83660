// Package reconfig reconfigures a node of a live producer graph: it offers
// the legal streams for each input, buffers parameter text edits, commits
// staged edits and announces the result.
//
// # Passes
//
// A pass is one interaction cycle with a node:
//
//  1. Collect: Editor.BeginPass enumerates the catalog once and filters it
//     through the binding rules for every input. The current binding's
//     position in each list is reported so a front end can preselect it.
//  2. Stage: the caller selects candidates and edits parameter text. Nothing
//     is written to the node yet, and Pass.Abandon leaves no trace.
//  3. Commit: bindings are applied first, then parameters, then the display
//     name. A staged binding is re-checked if the graph revision moved
//     since step 1. Text that does not parse is rejected and the stored
//     value stays; the typed text stays pending in the editor.
//  4. Name: if anything changed and the node uses its default name, the
//     name is regenerated and the editor's working name follows.
//  5. Notify: one Event goes to every listener, however many fields
//     changed. A pass that changed nothing emits nothing.
//
// Only one pass may be open per Controller. The next pass cannot begin
// until the previous event has been delivered.
//
// # Errors
//
// Every rejection is an *Error with an ErrorCode. Use the Is* helpers,
// which see through wrapping and through Outcome.Err's aggregate.
//
// # Listeners
//
// Propagator regenerates default names of downstream nodes. JournalListener
// appends each event to a store.Store.
package reconfig
