// Package storage persists the subscriber set.
//
// Two backends exist behind the Store interface: Postgres via pgx (what
// production runs, DATABASE_URL with sslmode as needed) and a sqlite
// file for local runs and tests. Both create their schema idempotently
// on open, so a fresh database needs no manual setup.
package storage

import "context"

// Store is the subscriber persistence API.
//
// Chat ids are kept as text, mirroring the platform's int64 identity.
// Add and Remove are idempotent: re-subscribing or re-unsubscribing the
// same chat is a no-op, never an error.
type Store interface {
	Add(ctx context.Context, chatID string) error
	Remove(ctx context.Context, chatID string) error
	ListAll(ctx context.Context) ([]string, error)
	Close() error
}
