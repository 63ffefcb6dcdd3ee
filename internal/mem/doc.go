// Package mem provides heap allocation helpers for arena chunks.
//
// # Aligned Allocation
//
// Heap chunks are carved from AllocAligned so their start address matches
// the alignment a page-aligned anonymous mapping gives for free.
package mem
