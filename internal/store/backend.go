package store

import (
	"context"
)

// Backend persists the records of path-addressed collections.
// Implementations report absent records with types.ErrNotFound.
type Backend interface {
	// List returns every record at path in stored order. An absent path is empty.
	List(ctx context.Context, path string) ([]Record, error)
	// Insert appends a record and returns its generated identifier.
	Insert(ctx context.Context, path string, fields map[string]any) (string, error)
	// Merge overwrites the given fields of one record.
	Merge(ctx context.Context, path, id string, fields map[string]any) error
	// Replace swaps the whole collection for recs, keeping their order and ids.
	Replace(ctx context.Context, path string, recs []Record) error
	// Remove deletes one record.
	Remove(ctx context.Context, path, id string) error
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	// Name identifies the backend in logs and health output.
	Name() string
}
