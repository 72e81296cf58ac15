package arena

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/atomic"
)

// MaxAtomicCapacity is the largest arena an AtomicBump can manage; the next
// offset has to fit in the low half of the state word.
const MaxAtomicCapacity = math.MaxUint32

// AtomicBump is a lock-free bump allocator.
//
// The next offset and the outstanding count live in one 64-bit word (offset
// in the low 32 bits, count in the high 32 bits) updated with compare-and-swap.
// Keeping them in two separate atomics would let a release that drops the
// count to zero rewind the offset between another goroutine's reservation
// and its count increment, after which the same bytes could be handed out
// twice. Updating both halves in one CAS rules that interleaving out.
//
// Allocate and Release never block but may retry without bound under heavy
// contention.
type AtomicBump struct {
	buf    buffer
	state  atomic.Uint64
	logger log.Logger

	allocs, releases, failures atomic.Uint64
}

// NewAtomicBump creates a lock-free bump allocator over a fresh arena of
// capacity bytes. If capacity < 0, DefaultCapacity is used. It panics if
// capacity exceeds MaxAtomicCapacity.
func NewAtomicBump(capacity int, opts ...Option) *AtomicBump {
	capacity = capacityOrDefault(capacity)
	if uint64(capacity) > MaxAtomicCapacity {
		panic(fmt.Sprintf("arena: atomic bump capacity %d exceeds %d", capacity, uint64(MaxAtomicCapacity)))
	}
	o := buildOptions(StrategyAtomicBump, opts)
	return &AtomicBump{
		buf:    newBuffer(capacity),
		logger: o.logger,
	}
}

func packBump(s bumpState) uint64 {
	return uint64(s.outstanding)<<32 | uint64(s.next)
}

func unpackBump(w uint64) bumpState {
	return bumpState{next: uintptr(w & math.MaxUint32), outstanding: uintptr(w >> 32)}
}

// Allocate reserves a block for l from the unused tail of the arena.
func (a *AtomicBump) Allocate(l Layout) (unsafe.Pointer, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	for {
		old := a.state.Load()
		s := unpackBump(old)
		off, ok := s.reserve(&a.buf, l)
		if !ok {
			a.failures.Inc()
			return nil, outOfMemory(a.logger, l)
		}
		if a.state.CompareAndSwap(old, packBump(s)) {
			a.allocs.Inc()
			return a.buf.pointer(off), nil
		}
	}
}

// Release drops one outstanding allocation, rewinding the arena when it was
// the last one.
func (a *AtomicBump) Release(p unsafe.Pointer, l Layout) {
	if err := l.validate(); err != nil {
		violate(a.logger, StrategyAtomicBump, "release", "%v", err)
	}
	off, ok := a.buf.offsetOf(p)
	if !ok {
		violate(a.logger, StrategyAtomicBump, "release", "pointer %p was not allocated by this arena", p)
	}
	for {
		old := a.state.Load()
		s := unpackBump(old)
		if s.outstanding == 0 {
			violate(a.logger, StrategyAtomicBump, "release", "no allocations outstanding")
		}
		if off >= s.next {
			violate(a.logger, StrategyAtomicBump, "release", "pointer %p lies beyond the reserved region", p)
		}
		reset := s.release()
		if a.state.CompareAndSwap(old, packBump(s)) {
			n := a.releases.Inc()
			if reset {
				level.Debug(a.logger).Log("msg", "arena reset", "releases", n)
			}
			return
		}
	}
}

// Capacity returns the arena size in bytes.
func (a *AtomicBump) Capacity() int {
	return len(a.buf.data)
}

// Outstanding returns the number of allocations not yet released.
func (a *AtomicBump) Outstanding() int {
	return int(unpackBump(a.state.Load()).outstanding)
}

// Next returns the offset the next allocation will start from (before alignment).
func (a *AtomicBump) Next() int {
	return int(unpackBump(a.state.Load()).next)
}

// Stats returns a snapshot of the allocator. The counters are read
// individually and may be mutually inconsistent under concurrent traffic.
func (a *AtomicBump) Stats() Stats {
	s := unpackBump(a.state.Load())
	return Stats{
		Strategy: StrategyAtomicBump,
		Capacity: len(a.buf.data),
		Reserved: int(s.next),
		Live:     int(s.outstanding),
		Allocs:   a.allocs.Load(),
		Releases: a.releases.Load(),
		Failures: a.failures.Load(),
	}
}
