// Package manager mediates all access to a single embedded SQLite store.
//
// A Handle owns exactly one pinned connection and moves through the states
// Disconnected, Connected and Closed. On top of the handle sit the statement
// executor (Execute), the two-phase script loader (LoadScript), the catalog
// introspector (ListTables, TableSchema) and the dumper/restorer (Dump,
// Export, Import).
//
// A Handle is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
//
// Typical use:
//
//	err := manager.WithHandle(ctx, "data/library.db", func(h *manager.Handle) error {
//		_, err := h.Execute(ctx, "INSERT INTO authors(name) VALUES (?)", name)
//		return err
//	})
package manager
