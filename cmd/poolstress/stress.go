package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/panjf2000/ants/v2"
	queue "github.com/yireyun/go-queue"
	"go.uber.org/zap"

	"github.com/pavanmanishd/slabpool"
)

// record is the element type under test. Producers stamp seq; consumers
// check the stamp survived until deallocation.
type record struct {
	seq      uint64
	producer int
}

// handoff carries a live record from a producer to a consumer.
type handoff struct {
	rec  *record
	seq  uint64
	slot uint32
}

// Report summarises a stress run.
type Report struct {
	Allocations uint64
	FullRetries uint64
	OutOfMemory uint64
	Mismatches  uint64
	PeakBlocks  int64
	Duration    time.Duration
	Final       slabpool.PoolMetrics
}

// Stress drives a SyncExpandablePool with producers that allocate and
// consumers on other goroutines that deallocate.
type Stress struct {
	cfg   Config
	log   *zap.Logger
	pool  *slabpool.SyncExpandablePool[record]
	queue *queue.EsQueue

	mu   sync.Mutex
	live *roaring.Bitmap // global slot ids currently handed out

	allocs     atomic.Uint64
	retries    atomic.Uint64
	ooms       atomic.Uint64
	mismatches atomic.Uint64
	peak       atomic.Int64
}

// NewStress builds the pool described by cfg. A memory limit too small for
// the static blocks is reported as an error.
func NewStress(cfg Config, log *zap.Logger) (_ *Stress, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok || !(errors.Is(perr, slabpool.ErrOutOfMemory) || errors.Is(perr, slabpool.ErrInvalidCapacity)) {
				panic(r)
			}
			err = fmt.Errorf("build pool: %w", perr)
		}
	}()

	s := &Stress{
		cfg:   cfg,
		log:   log,
		queue: queue.NewQueue(uint32(cfg.Load.QueueCapacity)),
		live:  roaring.New(),
	}
	opts := []slabpool.Option{
		slabpool.WithStaticBlockCount(cfg.Pool.StaticBlocks),
		slabpool.WithLogger(log),
		slabpool.WithOutOfMemoryHook(func(slabpool.OutOfMemoryEvent) {
			s.ooms.Add(1)
		}),
	}
	if cfg.Pool.HalfFullThreshold > 0 {
		opts = append(opts, slabpool.WithHalfFullThreshold(cfg.Pool.HalfFullThreshold))
	}
	if cfg.Pool.MemoryLimit > 0 {
		opts = append(opts, slabpool.WithBlockAllocator(slabpool.NewBudget(cfg.Pool.MemoryLimit)))
	}
	s.pool = slabpool.NewSyncExpandablePool[record](cfg.Pool.BlockSize, cfg.Pool.MaxBlocks, opts...)
	s.peak.Store(int64(s.pool.BlockCount()))
	return s, nil
}

// Pool returns the pool under test.
func (s *Stress) Pool() *slabpool.SyncExpandablePool[record] {
	return s.pool
}

// Run executes the configured load. Cancelling ctx stops the producers;
// consumers still drain everything already handed off, so the pool ends
// empty either way.
func (s *Stress) Run(ctx context.Context) (Report, error) {
	load := s.cfg.Load
	workers, err := ants.NewPool(load.Producers + load.Consumers)
	if err != nil {
		return Report{}, fmt.Errorf("start workers: %w", err)
	}
	defer workers.Release()

	var (
		producers, consumers sync.WaitGroup
		produced             atomic.Bool
		errMu                sync.Mutex
		errs                 []error
	)
	fail := func(err error) {
		errMu.Lock()
		errs = append(errs, err)
		errMu.Unlock()
	}

	start := time.Now()
	for c := 0; c < load.Consumers; c++ {
		consumers.Add(1)
		if err := workers.Submit(func() {
			defer consumers.Done()
			s.consume(&produced)
		}); err != nil {
			consumers.Done()
			fail(fmt.Errorf("submit consumer %d: %w", c, err))
		}
	}
	for p := 0; p < load.Producers; p++ {
		producers.Add(1)
		if err := workers.Submit(func() {
			defer producers.Done()
			if err := s.produce(ctx, p); err != nil {
				fail(err)
			}
		}); err != nil {
			producers.Done()
			fail(fmt.Errorf("submit producer %d: %w", p, err))
		}
	}
	producers.Wait()
	produced.Store(true)
	consumers.Wait()

	report := Report{
		Allocations: s.allocs.Load(),
		FullRetries: s.retries.Load(),
		OutOfMemory: s.ooms.Load(),
		Mismatches:  s.mismatches.Load(),
		PeakBlocks:  s.peak.Load(),
		Duration:    time.Since(start),
		Final:       s.pool.Metrics(),
	}
	s.log.Info("stress run finished",
		zap.Uint64("allocations", report.Allocations),
		zap.Uint64("full-retries", report.FullRetries),
		zap.Uint64("oom", report.OutOfMemory),
		zap.Int64("peak-blocks", report.PeakBlocks),
		zap.Duration("duration", report.Duration))

	if report.Mismatches > 0 {
		errs = append(errs, fmt.Errorf("%d records changed while live", report.Mismatches))
	}
	if report.Final.InUse != 0 {
		errs = append(errs, fmt.Errorf("pool holds %d elements after drain", report.Final.InUse))
	}
	if n := s.live.GetCardinality(); n != 0 {
		errs = append(errs, fmt.Errorf("%d slots still marked live after drain", n))
	}
	return report, errors.Join(errs...)
}

func (s *Stress) produce(ctx context.Context, id int) error {
	for i := 0; i < s.cfg.Load.Operations; i++ {
		seq := uint64(id)<<40 | uint64(i)
		var rec *record
		for {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("producer %d: %w", id, err)
			}
			if rec = s.pool.Allocate(record{seq: seq, producer: id}); rec != nil {
				break
			}
			s.retries.Add(1)
			runtime.Gosched()
		}
		s.allocs.Add(1)
		s.observeBlocks()

		slot, err := s.claim(rec)
		if err != nil {
			s.pool.Deallocate(rec)
			return fmt.Errorf("producer %d: %w", id, err)
		}
		for {
			if ok, _ := s.queue.Put(handoff{rec: rec, seq: seq, slot: slot}); ok {
				break
			}
			runtime.Gosched()
		}
	}
	return nil
}

func (s *Stress) consume(produced *atomic.Bool) {
	for {
		v, ok, _ := s.queue.Get()
		if !ok {
			if produced.Load() && s.queue.Quantity() == 0 {
				return
			}
			runtime.Gosched()
			continue
		}
		h := v.(handoff)
		if h.rec.seq != h.seq {
			s.mismatches.Add(1)
		}
		s.unclaim(h.slot)
		s.pool.Deallocate(h.rec)
	}
}

// claim records rec's slot as live. A slot that is already live means the
// pool handed the same memory out twice.
func (s *Stress) claim(rec *record) (uint32, error) {
	block, index, ok := s.pool.Locate(rec)
	if !ok {
		return 0, fmt.Errorf("allocated record %p not owned by pool", rec)
	}
	slot := uint32(block*s.cfg.Pool.BlockSize + index)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live.Contains(slot) {
		return 0, fmt.Errorf("slot %d (block %d, index %d) handed out twice", slot, block, index)
	}
	s.live.Add(slot)
	return slot, nil
}

// unclaim must run before the record is deallocated so a producer that
// receives the same slot next never sees it still marked.
func (s *Stress) unclaim(slot uint32) {
	s.mu.Lock()
	s.live.Remove(slot)
	s.mu.Unlock()
}

func (s *Stress) observeBlocks() {
	n := int64(s.pool.BlockCount())
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}
