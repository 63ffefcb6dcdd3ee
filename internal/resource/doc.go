// Package resource implements the memory budget shared by all arenas of a
// manager.
//
// Memory tracking uses a weighted semaphore for the hard limit and atomic
// counters for usage. AcquireMemory never blocks: an allocation that would
// exceed the budget fails immediately with ErrMemoryLimitExceeded, which the
// arena layer reports as out-of-memory.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if err := rc.AcquireMemory(4096); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(4096)
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows an optional budget without nil checks everywhere.
package resource
