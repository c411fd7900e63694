package seqstore

import (
	"context"
	"sync"
)

// LocalSeqStore keeps counters in-process (default).
type LocalSeqStore struct {
	mu   sync.RWMutex
	seqs map[string]uint64
}

var _ SeqStore = (*LocalSeqStore)(nil)

func NewLocalSeqStore() *LocalSeqStore {
	return &LocalSeqStore{seqs: make(map[string]uint64)}
}

func (s *LocalSeqStore) Current(_ context.Context, ns string) (uint64, error) {
	s.mu.RLock()
	v := s.seqs[ns]
	s.mu.RUnlock()
	return v, nil
}

func (s *LocalSeqStore) Next(_ context.Context, ns string) (uint64, error) {
	s.mu.Lock()
	s.seqs[ns]++
	v := s.seqs[ns]
	s.mu.Unlock()
	return v, nil
}

// Advance raises the counter of ns to at least seq. Used after importing
// transmissions so new ones do not reuse imported sequence numbers.
func (s *LocalSeqStore) Advance(_ context.Context, ns string, seq uint64) error {
	s.mu.Lock()
	if s.seqs[ns] < seq {
		s.seqs[ns] = seq
	}
	s.mu.Unlock()
	return nil
}

func (s *LocalSeqStore) Close(context.Context) error { return nil }
