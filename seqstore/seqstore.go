// Package seqstore hands out per-namespace transmission sequence numbers.
package seqstore

import "context"

// SeqStore abstracts where sequence counters live.
// Use LocalSeqStore (default) for a single process, or RedisSeqStore to share
// one counter across replicas and restarts.
type SeqStore interface {
	// Current returns the last issued sequence number; unused namespace => 0.
	Current(ctx context.Context, ns string) (uint64, error)
	// Next atomically increments and returns the new sequence number (first is 1).
	Next(ctx context.Context, ns string) (uint64, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
