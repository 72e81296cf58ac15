package arena

import (
	"unsafe"

	"github.com/go-kit/log"
)

// Strategy names accepted by Config and reported in Stats.
const (
	StrategyBump       = "bump"
	StrategyAtomicBump = "atomic-bump"
	StrategyFreeList   = "freelist"
	StrategyNull       = "null"
)

// Allocator hands out blocks of a single fixed-capacity arena.
//
// Allocate returns a pointer to a block satisfying l, or an error matching
// ErrOutOfMemory when no space is left. Release gives a block back; it must
// be called with the exact layout used to allocate it. Releasing anything
// else panics with a *ContractViolation.
//
// All implementations are safe for concurrent use and never hand out
// overlapping live blocks.
type Allocator interface {
	Allocate(l Layout) (unsafe.Pointer, error)
	Release(p unsafe.Pointer, l Layout)
	Capacity() int
	Stats() Stats
}

// Option configures an allocator.
type Option func(*options)

type options struct {
	logger        log.Logger
	strictRelease bool
}

// WithLogger sets the logger used for failures, resets and contract
// violations. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStrictRelease makes the free-list allocator check every released block
// against the regions already on the list and panic on overlap, catching
// double releases at O(n) cost per release. Other strategies ignore it.
func WithStrictRelease() Option {
	return func(o *options) {
		o.strictRelease = true
	}
}

func buildOptions(strategy string, opts []Option) options {
	o := options{logger: log.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = log.With(o.logger, "strategy", strategy)
	return o
}

// capacityOrDefault maps a negative capacity to DefaultCapacity. Zero is a
// valid, permanently empty arena.
func capacityOrDefault(capacity int) int {
	if capacity < 0 {
		return DefaultCapacity
	}
	return capacity
}
