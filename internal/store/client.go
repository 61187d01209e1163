// Package store is the record-store boundary between the migration pipeline
// and a Frappe site.
//
// Everything the scanner, planner and executor know about a site comes
// through the Client interface: listing schema records with typed filters,
// fetching one record, counting data rows for a DocType, and staging field
// updates inside a single transaction that is committed or rolled back as a
// whole.
//
// Backends:
//   - MemoryStore: in-memory records, used by tests and as the base of FileStore
//   - FileStore: a site snapshot file (JSON or YAML) loaded into memory
//   - SQLStore: a live site database (MariaDB or PostgreSQL)
package store

import "context"

// Frappe record kinds read and written by the pipeline.
const (
	KindModuleDef      = "Module Def"
	KindDocType        = "DocType"
	KindDocField       = "DocField"
	KindCustomField    = "Custom Field"
	KindPropertySetter = "Property Setter"
)

// Client provides access to the records of one site.
// Implementations are used serially by a single command invocation.
type Client interface {
	// List returns all records of kind matching every filter, ordered by name.
	List(ctx context.Context, kind string, filters ...Filter) ([]Record, error)

	// Get returns the record of kind with the given name.
	// Returns an error wrapping ErrNotFound if no such record exists.
	Get(ctx context.Context, kind, id string) (Record, error)

	// Count returns the number of data records stored for the entity kind.
	Count(ctx context.Context, kind string) (int, error)

	// SetField updates one field of one record inside the current transaction.
	SetField(ctx context.Context, kind, id, field string, value any) error

	// Commit makes all staged writes durable.
	Commit(ctx context.Context) error

	// Rollback discards all staged writes.
	Rollback(ctx context.Context) error

	// Close releases the underlying connection. Uncommitted writes are discarded.
	Close() error
}

// Backuper is implemented by backends that can copy their durable state
// aside before an apply run.
type Backuper interface {
	// Backup copies the current durable state and returns where it went.
	Backup(ctx context.Context) (string, error)
}
