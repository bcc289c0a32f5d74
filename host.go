package slabpool

import (
	"fmt"
	"sync/atomic"
)

// BlockAllocator accounts for the memory behind the blocks of a
// SyncExpandablePool. Reserve is called before a block is created and
// Release after it is dropped.
type BlockAllocator interface {
	Reserve(size uintptr) error
	Release(size uintptr)
}

// HeapAllocator places no limit on block growth.
type HeapAllocator struct{}

// Reserve always succeeds.
func (HeapAllocator) Reserve(uintptr) error { return nil }

// Release is a no-op.
func (HeapAllocator) Release(uintptr) {}

// Budget is a BlockAllocator with a fixed byte limit. It is safe for
// concurrent use and may be shared between pools.
type Budget struct {
	limit uint64
	used  atomic.Uint64
}

// NewBudget returns a budget of limit bytes.
func NewBudget(limit uint64) *Budget {
	return &Budget{limit: limit}
}

// Reserve claims size bytes, or returns an error wrapping ErrOutOfMemory if
// that would exceed the limit.
func (b *Budget) Reserve(size uintptr) error {
	for {
		used := b.used.Load()
		next := used + uint64(size)
		if next > b.limit {
			return fmt.Errorf("%w: %d bytes requested, %d of %d in use",
				ErrOutOfMemory, size, used, b.limit)
		}
		if b.used.CompareAndSwap(used, next) {
			return nil
		}
	}
}

// Release returns size bytes to the budget.
func (b *Budget) Release(size uintptr) {
	b.used.Add(^uint64(size - 1))
}

// Used returns the bytes currently reserved.
func (b *Budget) Used() uint64 {
	return b.used.Load()
}

// Limit returns the budget's limit in bytes.
func (b *Budget) Limit() uint64 {
	return b.limit
}

// OutOfMemoryEvent describes a failed block reservation.
type OutOfMemoryEvent struct {
	Blocks int     // blocks held when growth failed
	Bytes  uintptr // size of the block that could not be reserved
	Err    error   // error returned by the BlockAllocator
}
