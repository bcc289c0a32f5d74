package slabpool

// PoolMetrics contains statistical information about a pool.
type PoolMetrics struct {
	InUse       int     // Live elements
	Free        int     // Elements that can still be allocated
	Capacity    int     // Maximum number of live elements
	Blocks      int     // Blocks currently held
	MaxBlocks   int     // Maximum number of blocks
	BlockSize   int     // Slots per block
	BlockBytes  uintptr // Bytes of backing storage per block
	Utilization float64 // Ratio of InUse to Capacity (0.0-1.0)
}

// Metrics returns a snapshot of pool statistics. A MemoryPool is a single
// block.
func (p *MemoryPool[T]) Metrics() PoolMetrics {
	return PoolMetrics{
		InUse:       p.Len(),
		Free:        p.freeCount,
		Capacity:    p.Capacity(),
		Blocks:      1,
		MaxBlocks:   1,
		BlockSize:   p.Capacity(),
		BlockBytes:  uintptr(p.Capacity()) * p.slotSize,
		Utilization: p.Utilization(),
	}
}

// Utilization returns the ratio of live elements to capacity (0.0 to 1.0).
func (p *MemoryPool[T]) Utilization() float64 {
	return float64(p.Len()) / float64(p.Capacity())
}

// Thread-safe metrics for SyncExpandablePool

// Metrics thread-safely returns a snapshot of pool statistics.
func (s *SyncExpandablePool[T]) Metrics() PoolMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	capacity := s.blockSize * s.maxBlocks
	return PoolMetrics{
		InUse:       s.size,
		Free:        capacity - s.size,
		Capacity:    capacity,
		Blocks:      len(s.blocks),
		MaxBlocks:   s.maxBlocks,
		BlockSize:   s.blockSize,
		BlockBytes:  s.blockBytes,
		Utilization: float64(s.size) / float64(capacity),
	}
}

// Utilization thread-safely returns the ratio of live elements to capacity.
func (s *SyncExpandablePool[T]) Utilization() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.size) / float64(s.blockSize*s.maxBlocks)
}
