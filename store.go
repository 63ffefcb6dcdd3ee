package memarena

import "github.com/hupe1980/memarena/internal/arena"

// Store is a backing-store strategy. Every chunk is released through the
// Store that acquired it. Use WithHeapStore and WithMappedStore to install
// a custom one, for example to observe extents in tests.
type Store = arena.Store

// Block is one extent handed out by a Store.
type Block = arena.Block

// StoreRequest carries the mapping parameters of a Shared allocation.
type StoreRequest = arena.Request

// HeapStore hands out 16-byte aligned Go memory.
type HeapStore = arena.HeapStore

// MappedStore hands out one MAP_SHARED anonymous mapping per chunk.
type MappedStore = arena.MappedStore
