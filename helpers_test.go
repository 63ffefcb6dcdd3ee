package memarena

import (
	"sync"
)

// recordingStore wraps a Store and records the extent of every block it
// hands out and takes back.
type recordingStore struct {
	Store

	mu       sync.Mutex
	acquired []int
	released []int
}

func (s *recordingStore) Acquire(n int, req StoreRequest) (Block, error) {
	b, err := s.Store.Acquire(n, req)
	if err == nil {
		s.mu.Lock()
		s.acquired = append(s.acquired, n)
		s.mu.Unlock()
	}
	return b, err
}

func (s *recordingStore) Release(b Block) error {
	s.mu.Lock()
	s.released = append(s.released, len(b.Bytes()))
	s.mu.Unlock()
	return s.Store.Release(b)
}

func (s *recordingStore) Released() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.released...)
}

func sizesOf(r ArenaReport) []int {
	out := make([]int, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Size
	}
	return out
}
