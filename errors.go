package memarena

import (
	"errors"
	"fmt"

	"github.com/hupe1980/memarena/internal/arena"
)

var (
	// ErrInvalidHandle is returned when an Arena or Ptr does not name a live
	// arena or chunk: the zero value, a destroyed arena, a freed or reused
	// chunk, or a chunk whose in-band header no longer matches.
	ErrInvalidHandle = errors.New("memarena: invalid handle")
	// ErrOutOfMemory is returned when the backing store or the memory limit
	// refuses an allocation.
	ErrOutOfMemory = errors.New("memarena: out of memory")
	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("memarena: invalid size")
)

// OpError records a failed operation and the call site that issued it.
//
// The underlying cause can be matched with errors.Is against
// ErrInvalidHandle, ErrOutOfMemory or ErrInvalidSize.
type OpError struct {
	Op   string
	Site Site
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("memarena: %s failed (called from %s): %v", e.Op, e.Site, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidHandle), errors.Is(err, ErrOutOfMemory), errors.Is(err, ErrInvalidSize):
		return err
	case errors.Is(err, arena.ErrOutOfMemory):
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	case errors.Is(err, arena.ErrNegativeSize):
		return fmt.Errorf("%w: %w", ErrInvalidSize, err)
	case errors.Is(err, arena.ErrStale),
		errors.Is(err, arena.ErrReleased),
		errors.Is(err, arena.ErrForeignChunk),
		errors.Is(err, arena.ErrCorruptHeader):
		return fmt.Errorf("%w: %w", ErrInvalidHandle, err)
	}

	return err
}

func invalidHandle(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidHandle}, args...)...)
}
