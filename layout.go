package arena

import (
	"unsafe"

	"github.com/pkg/errors"
)

const maxUintptr = ^uintptr(0)

// Layout describes a requested block: its size in bytes and the alignment
// its start address must satisfy.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout returns a validated Layout. align must be a non-zero power of two
// and size rounded up to align must not overflow.
func NewLayout(size, align uintptr) (Layout, error) {
	l := Layout{Size: size, Align: align}
	if err := l.validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// MustLayout is like NewLayout but panics on an invalid layout.
func MustLayout(size, align uintptr) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// LayoutOf returns the layout of a single T.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{Size: unsafe.Sizeof(zero), Align: unsafe.Alignof(zero)}
}

// SliceLayout returns the layout of n contiguous T values.
func SliceLayout[T any](n int) (Layout, error) {
	if n < 0 {
		return Layout{}, errors.Wrapf(ErrInvalidLayout, "negative element count %d", n)
	}
	var zero T
	elem := unsafe.Sizeof(zero)
	if elem != 0 && uintptr(n) > maxUintptr/elem {
		return Layout{}, errors.Wrapf(ErrInvalidLayout, "%d elements of %d bytes overflow", n, elem)
	}
	return NewLayout(elem*uintptr(n), unsafe.Alignof(zero))
}

// PadToAlign returns the layout with Size rounded up to a multiple of Align.
func (l Layout) PadToAlign() Layout {
	return Layout{Size: alignUp(l.Size, l.Align), Align: l.Align}
}

func (l Layout) validate() error {
	if l.Align == 0 || l.Align&(l.Align-1) != 0 {
		return errors.Wrapf(ErrInvalidLayout, "alignment %d is not a power of two", l.Align)
	}
	if l.Size > maxUintptr-(l.Align-1) {
		return errors.Wrapf(ErrInvalidLayout, "size %d overflows when aligned to %d", l.Size, l.Align)
	}
	return nil
}

// blockSize is the number of bytes a bump allocation of l consumes.
// Zero-sized requests still take one alignment unit.
func (l Layout) blockSize() uintptr {
	if l.Size == 0 {
		return l.Align
	}
	return alignUp(l.Size, l.Align)
}

// alignUp rounds off up to a multiple of align, which must be a power of two.
func alignUp(off, align uintptr) uintptr {
	mask := align - 1
	return (off + mask) &^ mask
}
