package slabpool

import (
	"errors"
	"fmt"
)

var (
	// ErrForeignPointer indicates a pointer that was not handed out by the pool.
	ErrForeignPointer = errors.New("slabpool: pointer not owned by pool")

	// ErrDoubleFree indicates a deallocation of a slot that is already free.
	ErrDoubleFree = errors.New("slabpool: slot already free")

	// ErrInvalidCapacity indicates a pool or storage constructed with a bad size.
	ErrInvalidCapacity = errors.New("slabpool: invalid capacity")

	// ErrOutOfMemory indicates that a block allocator refused a reservation.
	ErrOutOfMemory = errors.New("slabpool: out of memory")
)

// fatalf reports a broken precondition. It never returns.
func fatalf(sentinel error, format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...))
}
