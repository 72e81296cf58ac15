package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	a int64
	b int32
	c int16
	d int8
}

func TestNew(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			a := s.make(1024)

			ptr, err := New[int](a)
			require.NoError(t, err)
			require.NotNil(t, ptr)
			assert.Zero(t, *ptr)

			st, err := New[testStruct](a)
			require.NoError(t, err)
			assert.Equal(t, testStruct{}, *st)
			assert.Zero(t, uintptr(unsafe.Pointer(st))%unsafe.Alignof(testStruct{}))

			*ptr = 42
			st.a = 100
			assert.Equal(t, 42, *ptr)
			assert.Equal(t, int64(100), st.a)

			Free(a, st)
			Free(a, ptr)
			assert.Zero(t, a.Stats().Live)
		})
	}
}

// TestNewZeroesReusedMemory checks that a value recycled through the free list
// does not see what the previous owner wrote.
func TestNewZeroesReusedMemory(t *testing.T) {
	a := NewFreeList(1024)

	first, err := New[testStruct](a)
	require.NoError(t, err)
	*first = testStruct{a: -1, b: -1, c: -1, d: -1}
	Free(a, first)

	second, err := New[testStruct](a)
	require.NoError(t, err)
	require.Equal(t, unsafe.Pointer(first), unsafe.Pointer(second))
	require.Equal(t, testStruct{}, *second)
}

func TestNewOutOfMemory(t *testing.T) {
	_, err := New[[64]byte](NewBump(32))
	require.ErrorIs(t, err, ErrOutOfMemory)

	_, err = New[int](NewNull())
	require.ErrorIs(t, err, ErrOutOfMemory)
}

func TestMakeSlice(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			a := s.make(1024)

			ints, err := MakeSlice[int64](a, 10)
			require.NoError(t, err)
			require.Len(t, ints, 10)
			require.Equal(t, 10, cap(ints))
			for i, v := range ints {
				require.Zero(t, v, "element %d", i)
				ints[i] = int64(i * i)
			}

			structs, err := MakeSlice[testStruct](a, 4)
			require.NoError(t, err)
			require.Len(t, structs, 4)

			for i, v := range ints {
				require.Equal(t, int64(i*i), v)
			}

			FreeSlice(a, structs)
			FreeSlice(a, ints)
			assert.Zero(t, a.Stats().Live)
		})
	}
}

func TestMakeSliceEmpty(t *testing.T) {
	a := NewBump(1024)
	s, err := MakeSlice[int](a, 0)
	require.NoError(t, err)
	require.Nil(t, s)
	assert.Zero(t, a.Stats().Allocs)

	FreeSlice(a, s)
	assert.Zero(t, a.Stats().Releases)
}

func TestMakeSliceInvalidCount(t *testing.T) {
	a := NewBump(1024)

	_, err := MakeSlice[int](a, -1)
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = MakeSlice[[1 << 20]byte](a, int(^uint(0)>>1))
	require.ErrorIs(t, err, ErrInvalidLayout)
}

func TestAllocBytes(t *testing.T) {
	a := NewFreeList(1024)
	b, err := AllocBytes(a, 100)
	require.NoError(t, err)
	require.Len(t, b, 100)

	copy(b, "hello")
	assert.Equal(t, "hello", string(b[:5]))

	FreeBytes(a, b)
	assert.Equal(t, 1024, a.FreeBytes())
}

func TestFreeSliceUsesCapacity(t *testing.T) {
	a := NewBump(1024)
	s, err := MakeSlice[int32](a, 8)
	require.NoError(t, err)

	// Reslicing keeps cap, so the whole block is released.
	FreeSlice(a, s[:2])
	assert.Zero(t, a.Outstanding())
	assert.Zero(t, a.Next())
}
