// Package slabpool implements fixed-capacity, latency-deterministic
// allocators for Go.
//
// # Overview
//
// The package is built for always-on workloads where allocation jitter is
// unacceptable and the amount of memory in play must be known up front.
// It provides:
//
//   - RawStorage: a fixed backing array of N slots
//   - MemoryPool: a slab allocator over N slots with O(1) allocate and
//     deallocate and a bitmap-driven Find
//   - SyncExpandablePool: a mutex-guarded chain of up to M MemoryPool blocks
//     that grows on demand and shrinks with hysteresis
//
// The companion package intrusive provides a doubly-linked list whose nodes
// are owned by the caller, typically allocated from a MemoryPool.
//
// # Basic Usage
//
//	pool := slabpool.NewMemoryPool[Event](32)
//
//	ev := pool.Allocate(Event{ID: 7})
//	if ev == nil {
//		// pool exhausted
//	}
//	defer pool.Deallocate(ev)
//
//	hit := pool.Find(func(e *Event) bool { return e.ID == 7 })
//
// # Thread Safety
//
// MemoryPool is not thread-safe. For concurrent access use SyncExpandablePool:
//
//	pool := slabpool.NewSyncExpandablePool[Event](16, 8,
//		slabpool.WithStaticBlockCount(2),
//		slabpool.WithBlockAllocator(slabpool.NewBudget(64<<10)),
//	)
//	ev := pool.Allocate(Event{ID: 7})
//	pool.Deallocate(ev)
//
// # Memory Layout
//
// Each slot holds one T followed by a free-list link. A free slot's link is
// the index of the next free slot, so the free list costs no memory beyond
// the slots themselves. A packed bitmap records which slots are live; Find
// walks it word by word and never visits a free slot.
//
// # Failure Model
//
// Running out of capacity is recoverable: Allocate returns nil. Contract
// violations (freeing a pointer the pool does not own, freeing twice) are
// fatal and panic with an error wrapping one of the package sentinels, so
// a corrupted free list can never propagate.
//
// # Metrics and Monitoring
//
// Both pool kinds report a PoolMetrics snapshot, and NewCollector exposes
// it to Prometheus:
//
//	prometheus.MustRegister(slabpool.NewCollector("events", pool))
package slabpool
