package arena

import "unsafe"

// DefaultCapacity is the arena size used when a negative capacity is given (128 KiB).
const DefaultCapacity = 128 << 10

// buffer is the arena itself: a fixed, zero-initialized run of bytes that is
// never resized or aliased outside the allocator owning it.
type buffer struct {
	data []byte
}

// newBuffer allocates capacity zeroed bytes. The backing store is a []uint64
// so the base address is at least 8-byte aligned.
func newBuffer(capacity int) buffer {
	if capacity <= 0 {
		return buffer{}
	}
	words := make([]uint64, (capacity+7)/8)
	return buffer{data: unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), capacity)}
}

func (b *buffer) capacity() uintptr {
	return uintptr(len(b.data))
}

func (b *buffer) base() uintptr {
	if len(b.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b.data)))
}

// alignOffset rounds off up so that the absolute address base+off is a
// multiple of align.
func (b *buffer) alignOffset(off, align uintptr) uintptr {
	base := b.base()
	return alignUp(base+off, align) - base
}

// aligned reports whether the address at off is a multiple of align.
func (b *buffer) aligned(off, align uintptr) bool {
	return (b.base()+off)&(align-1) == 0
}

// pointer turns an in-bounds offset into an address. Out of range offsets
// panic through the slice bounds check.
func (b *buffer) pointer(off uintptr) unsafe.Pointer {
	return unsafe.Pointer(&b.data[off])
}

// offsetOf maps p back to its arena offset. It reports false for nil and for
// addresses outside [base, base+capacity).
func (b *buffer) offsetOf(p unsafe.Pointer) (uintptr, bool) {
	if p == nil || len(b.data) == 0 {
		return 0, false
	}
	addr, base := uintptr(p), b.base()
	if addr < base || addr-base >= b.capacity() {
		return 0, false
	}
	return addr - base, true
}

// bytes returns the n bytes starting at off, with capacity clipped to n.
func (b *buffer) bytes(off, n uintptr) []byte {
	return b.data[off : off+n : off+n]
}
