package arena

import (
	"sync"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// bumpState is the unsynchronized core shared by the bump allocators: a next
// free offset that only moves forward while allocations are outstanding, and
// the count of those allocations.
type bumpState struct {
	next        uintptr
	outstanding uintptr
}

// reserve returns the offset of a block for l, or false if it does not fit.
func (s *bumpState) reserve(buf *buffer, l Layout) (uintptr, bool) {
	start := buf.alignOffset(s.next, l.Align)
	size := l.blockSize()
	if start < s.next || start > buf.capacity() || size > buf.capacity()-start {
		return 0, false
	}
	s.next = start + size
	s.outstanding++
	return start, true
}

// release drops one outstanding allocation and reports whether the arena was
// reset because none remain.
func (s *bumpState) release() bool {
	s.outstanding--
	if s.outstanding == 0 {
		s.next = 0
		return true
	}
	return false
}

// Bump is a bump allocator whose state is guarded by a single mutex. Space is
// reclaimed all at once, when the last outstanding allocation is released.
type Bump struct {
	mu     sync.Mutex
	buf    buffer
	state  bumpState
	logger log.Logger

	allocs, releases, failures uint64
}

// NewBump creates a mutex-guarded bump allocator over a fresh arena of
// capacity bytes. If capacity < 0, DefaultCapacity is used.
func NewBump(capacity int, opts ...Option) *Bump {
	o := buildOptions(StrategyBump, opts)
	return &Bump{
		buf:    newBuffer(capacityOrDefault(capacity)),
		logger: o.logger,
	}
}

// Allocate reserves a block for l from the unused tail of the arena.
func (b *Bump) Allocate(l Layout) (unsafe.Pointer, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	off, ok := b.state.reserve(&b.buf, l)
	if !ok {
		b.failures++
		b.mu.Unlock()
		return nil, outOfMemory(b.logger, l)
	}
	b.allocs++
	b.mu.Unlock()
	return b.buf.pointer(off), nil
}

// Release drops one outstanding allocation. The block's bytes are left as
// they are; the arena is rewound only when nothing is outstanding.
func (b *Bump) Release(p unsafe.Pointer, l Layout) {
	if err := l.validate(); err != nil {
		violate(b.logger, StrategyBump, "release", "%v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	off, ok := b.buf.offsetOf(p)
	if !ok || off >= b.state.next {
		violate(b.logger, StrategyBump, "release", "pointer %p was not allocated by this arena", p)
	}
	if b.state.outstanding == 0 {
		violate(b.logger, StrategyBump, "release", "no allocations outstanding")
	}
	b.releases++
	if b.state.release() {
		level.Debug(b.logger).Log("msg", "arena reset", "releases", b.releases)
	}
}

// Capacity returns the arena size in bytes.
func (b *Bump) Capacity() int {
	return len(b.buf.data)
}

// Outstanding returns the number of allocations not yet released.
func (b *Bump) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.state.outstanding)
}

// Next returns the offset the next allocation will start from (before alignment).
func (b *Bump) Next() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.state.next)
}

// Stats returns a snapshot of the allocator.
func (b *Bump) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Strategy: StrategyBump,
		Capacity: len(b.buf.data),
		Reserved: int(b.state.next),
		Live:     int(b.state.outstanding),
		Allocs:   b.allocs,
		Releases: b.releases,
		Failures: b.failures,
	}
}
