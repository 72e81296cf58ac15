package arena

import (
	"unsafe"
)

// New returns a pointer to a zeroed T stored inside the arena.
// T must not contain Go pointers: the garbage collector does not scan arena
// memory, so anything referenced only from there may be collected.
func New[T any](a Allocator) (*T, error) {
	p, err := a.Allocate(LayoutOf[T]())
	if err != nil {
		return nil, err
	}
	var zero T
	clear(unsafe.Slice((*byte)(p), unsafe.Sizeof(zero)))
	return (*T)(p), nil
}

// Free releases a value obtained from New on the same allocator.
func Free[T any](a Allocator, t *T) {
	a.Release(unsafe.Pointer(t), LayoutOf[T]())
}

// MakeSlice allocates a zeroed slice of n elements of type T inside the arena.
// Returns nil if n == 0. The same restriction on Go pointers as New applies.
func MakeSlice[T any](a Allocator, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	l, err := SliceLayout[T](n)
	if err != nil {
		return nil, err
	}
	p, err := a.Allocate(l)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(p), l.Size))
	return unsafe.Slice((*T)(p), n), nil
}

// FreeSlice releases a slice obtained from MakeSlice on the same allocator.
// The slice's capacity must be the length it was allocated with.
func FreeSlice[T any](a Allocator, s []T) {
	if cap(s) == 0 {
		return
	}
	l, err := SliceLayout[T](cap(s))
	if err != nil {
		panic(err)
	}
	a.Release(unsafe.Pointer(unsafe.SliceData(s)), l)
}

// AllocBytes allocates n zeroed bytes inside the arena.
func AllocBytes(a Allocator, n int) ([]byte, error) {
	return MakeSlice[byte](a, n)
}

// FreeBytes releases a buffer obtained from AllocBytes.
func FreeBytes(a Allocator, b []byte) {
	FreeSlice(a, b)
}
