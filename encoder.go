package hummingbird

import (
	"github.com/12153/hummingbird/lib/encoding"
)

// Snapshot is an alias for encoding.Snapshot for convenience.
type Snapshot = encoding.Snapshot

// SnapshotStore is an alias for encoding.Store for convenience.
type SnapshotStore = encoding.Store

// NewSnapshotCodec creates a codec signing snapshots with key. Pass the same
// key to every navigator sharing a persistent store.
func NewSnapshotCodec(key []byte) (*encoding.Codec, error) {
	return encoding.NewCodec(key)
}

// NewSnapshotStore returns an in-memory store keeping the last limit
// snapshots.
func NewSnapshotStore(limit int) *encoding.MemoryStore {
	return encoding.NewMemoryStore(limit)
}
