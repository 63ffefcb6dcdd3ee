// Package arena implements the chunk bookkeeping behind memarena.
//
// An Arena owns an ordered, doubly-linked list of chunks anchored at a
// sentinel node, plus a slot table that maps a (slot, generation) pair back
// to its chunk in O(1). Every chunk extent starts with a HeaderSize-byte
// in-band header followed by the payload, and is obtained from a Store:
// HeapStore for ordinary Go memory, MappedStore for anonymous mappings that
// survive fork(2).
//
// # Concurrency Model
//
// Nothing in this package is synchronized. An Arena and its chunks must be
// confined to one goroutine at a time; the caller owns that exclusion.
//
// # Release
//
// Chunks are released either one at a time (Free) or all at once
// (Release). Each chunk goes back to the Store that produced it, and a
// mapped chunk is unmapped with exactly the extent that was mapped.
package arena
