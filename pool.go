package slabpool

import (
	"iter"
	"unsafe"
)

// slot is one cell of a MemoryPool. value sits at offset 0 so the address
// of a slot is the address of its element. next is only meaningful while
// the slot is free.
type slot[T any] struct {
	value T
	next  int
}

// MemoryPool is a fixed-capacity slab allocator. Allocate and Deallocate
// are O(1); the free list is threaded through the free slots.
// Not goroutine-safe. Use SyncExpandablePool for concurrent access.
type MemoryPool[T any] struct {
	storage   RawStorage[slot[T]]
	active    activeSet
	head      int
	freeCount int

	base     uintptr
	lastBase uintptr
	slotSize uintptr
}

// NewMemoryPool creates a pool of n slots. It panics if n < 1.
func NewMemoryPool[T any](n int) *MemoryPool[T] {
	if n < 1 {
		fatalf(ErrInvalidCapacity, "memory pool of %d slots", n)
	}
	p := &MemoryPool[T]{
		storage:   NewRawStorage[slot[T]](n),
		active:    newActiveSet(n),
		freeCount: n,
		slotSize:  unsafe.Sizeof(slot[T]{}),
	}
	for i := 0; i < n; i++ {
		p.storage.At(i).next = i + 1
	}
	p.base = uintptr(unsafe.Pointer(p.storage.Data()))
	p.lastBase = uintptr(unsafe.Pointer(p.storage.At(n - 1)))
	return p
}

// Allocate stores v in a free slot and returns its address, or nil if the
// pool is exhausted.
func (p *MemoryPool[T]) Allocate(v T) *T {
	ptr := p.take()
	if ptr != nil {
		*ptr = v
	}
	return ptr
}

// AllocateFunc takes a free slot and lets init construct the value in
// place. A nil init leaves the zero value. Returns nil if the pool is
// exhausted.
func (p *MemoryPool[T]) AllocateFunc(init func(*T)) *T {
	ptr := p.take()
	if ptr != nil && init != nil {
		init(ptr)
	}
	return ptr
}

// take pops the free list head.
func (p *MemoryPool[T]) take() *T {
	if p.freeCount == 0 {
		return nil
	}
	i := p.head
	s := p.storage.At(i)
	p.head = s.next
	p.freeCount--
	p.active.set(i)
	return &s.value
}

// Deallocate destroys the value at ptr and returns its slot to the pool.
// It panics if ptr is not owned by the pool or its slot is already free.
func (p *MemoryPool[T]) Deallocate(ptr *T) {
	i, ok := p.IndexOf(ptr)
	if !ok {
		fatalf(ErrForeignPointer, "%p", ptr)
	}
	if !p.active.test(i) {
		fatalf(ErrDoubleFree, "slot %d", i)
	}
	s := p.storage.At(i)
	var zero T
	s.value = zero
	s.next = p.head
	p.head = i
	p.freeCount++
	p.active.clear(i)
}

// ContainsAddress reports whether ptr addresses one of the pool's slots,
// free or occupied.
func (p *MemoryPool[T]) ContainsAddress(ptr *T) bool {
	_, ok := p.IndexOf(ptr)
	return ok
}

// IndexOf returns the slot index of ptr.
func (p *MemoryPool[T]) IndexOf(ptr *T) (int, bool) {
	if ptr == nil {
		return -1, false
	}
	addr := uintptr(unsafe.Pointer(ptr))
	if addr < p.base || addr > p.lastBase {
		return -1, false
	}
	off := addr - p.base
	if off%p.slotSize != 0 {
		return -1, false
	}
	return int(off / p.slotSize), true
}

// Find returns the first live element, in ascending slot order, for which
// match returns true. It returns nil if nothing matches or match is nil.
// The pool must not be modified during the scan.
func (p *MemoryPool[T]) Find(match func(*T) bool) *T {
	if match == nil {
		return nil
	}
	var found *T
	p.active.each(p.Capacity(), func(i int) bool {
		v := &p.storage.At(i).value
		if match(v) {
			found = v
			return false
		}
		return true
	})
	return found
}

// FindWith is Find with an explicit context value passed to every call of
// match.
func FindWith[T, C any](p *MemoryPool[T], match func(*T, C) bool, ctx C) *T {
	if match == nil {
		return nil
	}
	return p.Find(func(v *T) bool { return match(v, ctx) })
}

// All yields every live element in ascending slot order.
// The pool must not be modified during iteration.
func (p *MemoryPool[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		p.active.each(p.Capacity(), func(i int) bool {
			return yield(&p.storage.At(i).value)
		})
	}
}

// FreeBlockCount returns the number of free slots.
func (p *MemoryPool[T]) FreeBlockCount() int {
	return p.freeCount
}

// Len returns the number of live elements.
func (p *MemoryPool[T]) Len() int {
	return p.Capacity() - p.freeCount
}

// Capacity returns the number of slots.
func (p *MemoryPool[T]) Capacity() int {
	return p.storage.Capacity()
}

// Empty reports whether no slot is in use.
func (p *MemoryPool[T]) Empty() bool {
	return p.freeCount == p.Capacity()
}

// Full reports whether every slot is in use.
func (p *MemoryPool[T]) Full() bool {
	return p.freeCount == 0
}
