package arena

import (
	"errors"
	"sync"
)

// Fault defines specific failure behavior of a FaultyStore.
type Fault struct {
	FailAfterBytes int64 // Fail acquires once this many bytes were handed out. -1 to disable.
	FailOnRelease  bool
	Err            error
}

// FaultyStore is a Store wrapper that can inject errors.
type FaultyStore struct {
	Store

	mu       sync.Mutex
	fault    Fault
	acquired int64
	released int64
}

// NewFaultyStore wraps store (or HeapStore if nil) without any fault armed.
func NewFaultyStore(store Store) *FaultyStore {
	if store == nil {
		store = HeapStore{}
	}
	return &FaultyStore{
		Store: store,
		fault: Fault{FailAfterBytes: -1},
	}
}

// SetFault arms f. A nil Err is replaced by a generic injected error.
func (s *FaultyStore) SetFault(f Fault) {
	if f.Err == nil {
		f.Err = errors.New("injected store fault")
	}
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

// Acquired returns the bytes handed out so far.
func (s *FaultyStore) Acquired() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

// Released returns the bytes taken back so far, including failed releases.
func (s *FaultyStore) Released() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Acquire implements Store.
func (s *FaultyStore) Acquire(n int, req Request) (Block, error) {
	s.mu.Lock()
	f := s.fault
	if f.FailAfterBytes >= 0 && s.acquired+int64(n) > f.FailAfterBytes {
		s.mu.Unlock()
		return nil, f.Err
	}
	s.mu.Unlock()

	b, err := s.Store.Acquire(n, req)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.acquired += int64(n)
	s.mu.Unlock()
	return b, nil
}

// Release implements Store. With FailOnRelease the block is still returned
// to the wrapped store before the fault is reported.
func (s *FaultyStore) Release(b Block) error {
	err := s.Store.Release(b)

	s.mu.Lock()
	s.released += int64(b.Size())
	f := s.fault
	s.mu.Unlock()

	if err == nil && f.FailOnRelease {
		return f.Err
	}
	return err
}
