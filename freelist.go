package arena

import (
	"encoding/binary"
	"math"
	"sync"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// nodeSize is the footprint of a free-list node: size and next offset.
	nodeSize = 16
	// nodeAlign is the alignment every node, and so every block, starts at.
	nodeAlign = 8
	// noNode terminates the list.
	noNode = math.MaxUint64
)

// node describes one free region. It is stored in the first nodeSize bytes
// of the region it describes.
type node struct {
	size uint64
	next uint64
}

// FreeList is a first-fit allocator over an intrusive singly linked list of
// free regions embedded in the arena's unused bytes. Regions are split on
// allocation; released blocks are pushed back at the head and never merged
// with their neighbours, so mixed-size traffic fragments the arena over time.
type FreeList struct {
	mu     sync.Mutex
	buf    buffer
	head   node // sentinel, size 0, lives outside the arena
	ready  bool
	free   uint64
	strict bool
	logger log.Logger

	allocs, releases, failures uint64
}

// NewFreeList creates a free-list allocator over a fresh arena of capacity
// bytes. If capacity < 0, DefaultCapacity is used. The list itself is built
// lazily by the first Allocate.
func NewFreeList(capacity int, opts ...Option) *FreeList {
	o := buildOptions(StrategyFreeList, opts)
	return &FreeList{
		buf:    newBuffer(capacityOrDefault(capacity)),
		head:   node{next: noNode},
		strict: o.strictRelease,
		logger: o.logger,
	}
}

// normalize returns the block size and alignment actually used for l: large
// enough and aligned enough to hold a node once the block is released.
func normalize(l Layout) (size, align uintptr) {
	size, align = max(l.Size, nodeSize), max(l.Align, nodeAlign)
	return alignUp(size, align), align
}

func (f *FreeList) readNode(off uint64) node {
	b := f.buf.bytes(uintptr(off), nodeSize)
	return node{
		size: binary.LittleEndian.Uint64(b[0:8]),
		next: binary.LittleEndian.Uint64(b[8:16]),
	}
}

func (f *FreeList) writeNode(off uint64, n node) {
	b := f.buf.bytes(uintptr(off), nodeSize)
	binary.LittleEndian.PutUint64(b[0:8], n.size)
	binary.LittleEndian.PutUint64(b[8:16], n.next)
}

// setNext points the node at prev (or the sentinel when prev is noNode) to next.
func (f *FreeList) setNext(prev, next uint64) {
	if prev == noNode {
		f.head.next = next
		return
	}
	n := f.readNode(prev)
	n.next = next
	f.writeNode(prev, n)
}

// push records [off, off+size) as free at the head of the list.
func (f *FreeList) push(off, size uint64) {
	f.writeNode(off, node{size: size, next: f.head.next})
	f.head.next = off
	f.free += size
}

func (f *FreeList) lazyInit() {
	f.ready = true
	if f.buf.capacity() >= nodeSize && f.buf.aligned(0, nodeAlign) {
		f.push(0, uint64(f.buf.capacity()))
	}
	level.Debug(f.logger).Log("msg", "free list initialized", "capacity", f.buf.capacity(), "free", f.free)
}

// fit returns where a block of size bytes aligned to align would start in
// the region at off, or false if the region cannot host it. A misaligned
// region start leaves a leading gap that must itself hold a node, and the
// trailing remainder must be either empty or large enough for a node, so no
// free bytes are ever lost track of.
func (f *FreeList) fit(off uint64, n node, size, align uintptr) (uint64, bool) {
	start := uint64(f.buf.alignOffset(uintptr(off), align))
	if pad := start - off; pad != 0 && pad < nodeSize {
		start = uint64(f.buf.alignOffset(uintptr(off)+nodeSize, align))
	}
	end := start + uint64(size)
	if end < start || end > off+n.size {
		return 0, false
	}
	if excess := off + n.size - end; excess != 0 && excess < nodeSize {
		return 0, false
	}
	return start, true
}

// Allocate carves the block from the first free region that fits (first
// fit). Any remainder after the block becomes a new free region at the head
// of the list.
func (f *FreeList) Allocate(l Layout) (unsafe.Pointer, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	size, align := normalize(l)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		f.lazyInit()
	}

	prev := uint64(noNode)
	for off := f.head.next; off != noNode; {
		n := f.readNode(off)
		if start, ok := f.fit(off, n, size, align); ok {
			end := start + uint64(size)
			if pad := start - off; pad > 0 {
				// The aligned block starts inside the region: keep the gap
				// in place as a smaller free region.
				f.writeNode(off, node{size: pad, next: n.next})
				f.free -= n.size - pad
			} else {
				f.setNext(prev, n.next)
				f.free -= n.size
			}
			if tail := off + n.size - end; tail > 0 {
				f.push(end, tail)
			}
			f.allocs++
			return f.buf.pointer(uintptr(start)), nil
		}
		prev, off = off, n.next
	}
	f.failures++
	return nil, outOfMemory(f.logger, l)
}

// Release returns the block at p to the head of the free list. l must be the
// layout p was allocated with.
func (f *FreeList) Release(p unsafe.Pointer, l Layout) {
	if err := l.validate(); err != nil {
		violate(f.logger, StrategyFreeList, "release", "%v", err)
	}
	size, _ := normalize(l)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		violate(f.logger, StrategyFreeList, "release", "nothing was ever allocated")
	}
	off, ok := f.buf.offsetOf(p)
	switch {
	case !ok:
		violate(f.logger, StrategyFreeList, "release", "pointer %p was not allocated by this arena", p)
	case !f.buf.aligned(off, nodeAlign):
		violate(f.logger, StrategyFreeList, "release", "offset %d is not %d-byte aligned", off, nodeAlign)
	case size < nodeSize:
		violate(f.logger, StrategyFreeList, "release", "block of %d bytes cannot hold a free-list node", size)
	case size > f.buf.capacity()-off:
		violate(f.logger, StrategyFreeList, "release", "block [%d, %d) exceeds capacity %d", off, off+size, f.buf.capacity())
	}
	if f.strict {
		f.checkOverlap(uint64(off), uint64(size))
	}
	f.push(uint64(off), uint64(size))
	f.releases++
}

// checkOverlap panics if [off, off+size) intersects a region already free.
func (f *FreeList) checkOverlap(off, size uint64) {
	for cur := f.head.next; cur != noNode; {
		n := f.readNode(cur)
		if off < cur+n.size && cur < off+size {
			violate(f.logger, StrategyFreeList, "release",
				"block [%d, %d) overlaps free region [%d, %d)", off, off+size, cur, cur+n.size)
		}
		cur = n.next
	}
}

// Capacity returns the arena size in bytes.
func (f *FreeList) Capacity() int {
	return len(f.buf.data)
}

// FreeRegions returns the number of regions on the free list, not counting
// the sentinel. It is 0 before the first allocation.
func (f *FreeList) FreeRegions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regions()
}

func (f *FreeList) regions() int {
	count := 0
	for cur := f.head.next; cur != noNode; cur = f.readNode(cur).next {
		count++
	}
	return count
}

// FreeBytes returns the total size of all regions on the free list.
func (f *FreeList) FreeBytes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int(f.free)
}

// Stats returns a snapshot of the allocator.
func (f *FreeList) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	reserved := 0
	if f.ready {
		reserved = len(f.buf.data) - int(f.free)
	}
	return Stats{
		Strategy:    StrategyFreeList,
		Capacity:    len(f.buf.data),
		Reserved:    reserved,
		Live:        int(f.allocs - f.releases),
		FreeRegions: f.regions(),
		Allocs:      f.allocs,
		Releases:    f.releases,
		Failures:    f.failures,
	}
}
