// Package store defines the replicated document store the game core runs
// against, plus its adapters. A document is an opaque byte payload with an
// opaque revision token; every write is a compare-and-swap on the
// revision, so concurrent writers cannot silently overwrite each other.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no document exists at a path.
	ErrNotFound = errors.New("document not found")
	// ErrRevisionMismatch is returned when a write loses the
	// compare-and-swap race: the document changed since it was read.
	ErrRevisionMismatch = errors.New("document changed since read")
)

// SnapshotFunc receives document snapshots. A deleted document is
// delivered as nil data. Intermediate versions may be coalesced; only the
// latest committed snapshot is guaranteed.
type SnapshotFunc func(data []byte, revision string)

// Store is the port the session manager depends on.
type Store interface {
	// Read returns the current document at path and its revision.
	Read(ctx context.Context, path string) (data []byte, revision string, err error)

	// Write replaces the document at path only if its revision still
	// equals expect, returning the new revision. An empty expect requires
	// that the document does not exist yet.
	Write(ctx context.Context, path string, data []byte, expect string) (revision string, err error)

	// Subscribe delivers the current snapshot, if any, and every
	// subsequently observed snapshot at path. The returned cancel tears
	// the subscription down.
	Subscribe(ctx context.Context, path string, fn SnapshotFunc) (cancel func(), err error)

	// GenerateKey mints a unique child key under parent.
	GenerateKey(parent string) string

	// Delete removes the document at path and notifies subscribers.
	Delete(ctx context.Context, path string) error
}
