package arena

import (
	"unsafe"

	"github.com/go-kit/log"
)

// Null is an allocator with no arena: every allocation fails with
// ErrOutOfMemory and every release is a no-op. Use it to drive callers'
// out-of-memory paths in tests or as a last-resort fallback.
type Null struct {
	logger log.Logger
}

// NewNull returns a Null allocator.
func NewNull(opts ...Option) *Null {
	return &Null{logger: buildOptions(StrategyNull, opts).logger}
}

func (n *Null) Allocate(l Layout) (unsafe.Pointer, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	return nil, outOfMemory(n.logger, l)
}

func (*Null) Release(unsafe.Pointer, Layout) {}

func (*Null) Capacity() int { return 0 }

func (*Null) Stats() Stats { return Stats{Strategy: StrategyNull} }
