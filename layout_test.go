package arena

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout(t *testing.T) {
	tests := []struct {
		name    string
		size    uintptr
		align   uintptr
		wantErr bool
	}{
		{"byte", 1, 1, false},
		{"zero size", 0, 8, false},
		{"page aligned", 10, 4096, false},
		{"zero align", 8, 0, true},
		{"odd align", 8, 3, true},
		{"non power of two", 8, 24, true},
		{"size overflows when padded", maxUintptr, 8, true},
		{"largest padded size", maxUintptr - 7, 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLayout(tt.size, tt.align)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidLayout)
				require.Panics(t, func() { MustLayout(tt.size, tt.align) })
				return
			}
			require.NoError(t, err)
			require.Equal(t, Layout{Size: tt.size, Align: tt.align}, l)
		})
	}
}

func TestLayoutOf(t *testing.T) {
	assert.Equal(t, Layout{Size: 8, Align: 8}, LayoutOf[int64]())
	assert.Equal(t, Layout{Size: 1, Align: 1}, LayoutOf[byte]())
	assert.Equal(t, Layout{Size: 0, Align: 1}, LayoutOf[struct{}]())
	assert.Equal(t, Layout{Size: 16, Align: 8}, LayoutOf[testStruct]())
}

func TestSliceLayout(t *testing.T) {
	l, err := SliceLayout[int32](10)
	require.NoError(t, err)
	assert.Equal(t, Layout{Size: 40, Align: 4}, l)

	l, err = SliceLayout[struct{}](1000)
	require.NoError(t, err)
	assert.Equal(t, Layout{Size: 0, Align: 1}, l)

	_, err = SliceLayout[int64](-1)
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = SliceLayout[int64](math.MaxInt)
	require.ErrorIs(t, err, ErrInvalidLayout)
}

func TestPadToAlign(t *testing.T) {
	tests := []struct {
		in   Layout
		want Layout
	}{
		{MustLayout(0, 8), Layout{0, 8}},
		{MustLayout(1, 8), Layout{8, 8}},
		{MustLayout(8, 8), Layout{8, 8}},
		{MustLayout(10, 4), Layout{12, 4}},
		{MustLayout(3, 1), Layout{3, 1}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.PadToAlign(), "PadToAlign(%+v)", tt.in)
	}
}

func TestBlockSize(t *testing.T) {
	assert.Equal(t, uintptr(8), MustLayout(0, 8).blockSize())
	assert.Equal(t, uintptr(1), MustLayout(0, 1).blockSize())
	assert.Equal(t, uintptr(16), MustLayout(9, 8).blockSize())
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		off   uintptr
		align uintptr
		want  uintptr
	}{
		{0, 8, 0},
		{1, 8, 8},
		{7, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{15, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{5, 1, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, alignUp(tt.off, tt.align), "alignUp(%d, %d)", tt.off, tt.align)
	}
}
