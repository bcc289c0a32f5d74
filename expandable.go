package slabpool

import (
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/cpu"
)

// SyncExpandablePool is a mutex-protected chain of up to maxBlocks
// MemoryPool blocks of blockSize slots each. Blocks are appended when every
// existing block is full and the trailing block is released once it empties
// and the block before it has headroom. All operations are goroutine-safe.
type SyncExpandablePool[T any] struct {
	mu sync.Mutex
	_  cpu.CacheLinePad

	blocks       []*MemoryPool[T]
	blockSize    int
	maxBlocks    int
	staticBlocks int
	halfFull     int
	blockBytes   uintptr
	size         int

	allocator BlockAllocator
	onOOM     func(OutOfMemoryEvent)
	log       *zap.Logger
}

// NewSyncExpandablePool creates a pool of blocks of blockSize slots, holding
// at most maxBlocks blocks. The static blocks are reserved immediately.
// It panics if blockSize < 1, maxBlocks < 1, the static block count is not
// within [1, maxBlocks], or the allocator refuses a static block.
func NewSyncExpandablePool[T any](blockSize, maxBlocks int, opts ...Option) *SyncExpandablePool[T] {
	o := options{
		staticBlocks: 1,
		halfFull:     -1,
		allocator:    HeapAllocator{},
		logger:       logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if blockSize < 1 || maxBlocks < 1 {
		fatalf(ErrInvalidCapacity, "block size %d, max blocks %d", blockSize, maxBlocks)
	}
	if o.staticBlocks < 1 || o.staticBlocks > maxBlocks {
		fatalf(ErrInvalidCapacity, "static blocks %d not in [1, %d]", o.staticBlocks, maxBlocks)
	}
	if o.halfFull < 0 {
		o.halfFull = blockSize / 2
	}
	if o.allocator == nil {
		o.allocator = HeapAllocator{}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	s := &SyncExpandablePool[T]{
		blocks:       make([]*MemoryPool[T], 0, maxBlocks),
		blockSize:    blockSize,
		maxBlocks:    maxBlocks,
		staticBlocks: o.staticBlocks,
		halfFull:     o.halfFull,
		blockBytes:   uintptr(blockSize) * unsafe.Sizeof(slot[T]{}),
		allocator:    o.allocator,
		onOOM:        o.onOOM,
		log:          o.logger,
	}
	for i := 0; i < s.staticBlocks; i++ {
		if err := s.allocator.Reserve(s.blockBytes); err != nil {
			for range s.blocks {
				s.allocator.Release(s.blockBytes)
			}
			fatalf(ErrOutOfMemory, "static block %d of %d: %v", i+1, s.staticBlocks, err)
		}
		s.blocks = append(s.blocks, NewMemoryPool[T](blockSize))
	}
	return s
}

// Allocate stores v in a free slot, growing the pool by one block if every
// block is full. It returns nil when the pool holds maxBlocks full blocks or
// a new block cannot be reserved.
func (s *SyncExpandablePool[T]) Allocate(v T) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	ptr := s.take()
	if ptr != nil {
		*ptr = v
	}
	return ptr
}

// AllocateFunc is Allocate with in-place construction through init. init
// runs with the pool lock held and must not call back into the pool.
func (s *SyncExpandablePool[T]) AllocateFunc(init func(*T)) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	ptr := s.take()
	if ptr != nil && init != nil {
		init(ptr)
	}
	return ptr
}

// take must be called with s.mu held.
func (s *SyncExpandablePool[T]) take() *T {
	for _, b := range s.blocks {
		if ptr := b.take(); ptr != nil {
			s.size++
			return ptr
		}
	}
	if len(s.blocks) >= s.maxBlocks || !s.pushBlock() {
		return nil
	}
	ptr := s.blocks[len(s.blocks)-1].take()
	s.size++
	return ptr
}

// pushBlock must be called with s.mu held.
func (s *SyncExpandablePool[T]) pushBlock() bool {
	if err := s.allocator.Reserve(s.blockBytes); err != nil {
		s.log.Warn("slabpool: block allocation failed",
			zap.Int("blocks", len(s.blocks)),
			zap.Uintptr("bytes", s.blockBytes),
			zap.Error(err))
		if s.onOOM != nil {
			s.onOOM(OutOfMemoryEvent{Blocks: len(s.blocks), Bytes: s.blockBytes, Err: err})
		}
		return false
	}
	s.blocks = append(s.blocks, NewMemoryPool[T](s.blockSize))
	s.log.Debug("slabpool: block added", zap.Int("blocks", len(s.blocks)))
	return true
}

// Deallocate returns ptr to the block that owns it, then releases trailing
// empty blocks the shrink rule allows. It panics if no block owns ptr.
func (s *SyncExpandablePool[T]) Deallocate(ptr *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.blocks {
		if b.ContainsAddress(ptr) {
			b.Deallocate(ptr)
			s.size--
			s.shrink()
			return
		}
	}
	fatalf(ErrForeignPointer, "%p", ptr)
}

// shrink pops the last block while it is empty, the block before it is not
// half full, and more than the static blocks remain. Must be called with
// s.mu held.
func (s *SyncExpandablePool[T]) shrink() {
	floor := max(s.staticBlocks, 1)
	for len(s.blocks) > floor {
		last := len(s.blocks) - 1
		if !s.blocks[last].Empty() || s.isHalfFull(s.blocks[last-1]) {
			return
		}
		s.blocks[last] = nil
		s.blocks = s.blocks[:last]
		s.allocator.Release(s.blockBytes)
		s.log.Debug("slabpool: block released", zap.Int("blocks", len(s.blocks)))
	}
}

func (s *SyncExpandablePool[T]) isHalfFull(b *MemoryPool[T]) bool {
	return b.FreeBlockCount() < s.halfFull
}

// ContainsAddress reports whether any current block owns ptr.
func (s *SyncExpandablePool[T]) ContainsAddress(ptr *T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.blocks {
		if b.ContainsAddress(ptr) {
			return true
		}
	}
	return false
}

// Locate returns the block index and slot index of ptr. The location of a
// live element is stable until it is deallocated.
func (s *SyncExpandablePool[T]) Locate(ptr *T) (block, index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for bi, b := range s.blocks {
		if i, found := b.IndexOf(ptr); found {
			return bi, i, true
		}
	}
	return -1, -1, false
}

// Find returns the first live element, scanning blocks in order, for which
// match returns true. match runs with the pool lock held and must not call
// back into the pool.
func (s *SyncExpandablePool[T]) Find(match func(*T) bool) *T {
	if match == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.blocks {
		if v := b.Find(match); v != nil {
			return v
		}
	}
	return nil
}

// FreeSpaceCount returns how many more elements the pool can hold if it
// grows to maxBlocks blocks.
func (s *SyncExpandablePool[T]) FreeSpaceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockSize*s.maxBlocks - s.size
}

// BlockCount returns the number of blocks currently held.
func (s *SyncExpandablePool[T]) BlockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

// Len returns the number of live elements.
func (s *SyncExpandablePool[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Capacity returns blockSize * maxBlocks.
func (s *SyncExpandablePool[T]) Capacity() int {
	return s.blockSize * s.maxBlocks
}

// Full reports whether every slot of every possible block is in use.
func (s *SyncExpandablePool[T]) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size == s.blockSize*s.maxBlocks
}

// Empty reports whether the pool holds no live elements.
func (s *SyncExpandablePool[T]) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size == 0
}
