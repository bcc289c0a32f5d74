package slabpool

import "go.uber.org/zap"

type options struct {
	staticBlocks int
	halfFull     int
	allocator    BlockAllocator
	onOOM        func(OutOfMemoryEvent)
	logger       *zap.Logger
}

// Option configures a SyncExpandablePool.
type Option func(*options)

// WithStaticBlockCount sets the number of blocks created up front and never
// released. Defaults to 1.
func WithStaticBlockCount(n int) Option {
	return func(o *options) { o.staticBlocks = n }
}

// WithHalfFullThreshold sets the free-slot count below which a block counts
// as half full. The last block is only released while the block before it
// has at least n free slots. Defaults to blockSize/2.
func WithHalfFullThreshold(n int) Option {
	return func(o *options) { o.halfFull = n }
}

// WithBlockAllocator sets the allocator that accounts for block memory.
// Defaults to HeapAllocator.
func WithBlockAllocator(a BlockAllocator) Option {
	return func(o *options) { o.allocator = a }
}

// WithOutOfMemoryHook registers fn to run, with the pool lock held, when a
// block reservation fails.
func WithOutOfMemoryHook(fn func(OutOfMemoryEvent)) Option {
	return func(o *options) { o.onOOM = fn }
}

// WithLogger sets the pool's logger. Defaults to the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}
