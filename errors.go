package arena

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

var (
	// ErrOutOfMemory is returned when the arena has no region able to satisfy
	// a request. It is the only recoverable allocation failure.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrInvalidLayout is returned for layouts whose alignment is not a power
	// of two or whose padded size overflows.
	ErrInvalidLayout = errors.New("arena: invalid layout")
	// ErrUnknownStrategy is returned by NewFromConfig for an unrecognised strategy name.
	ErrUnknownStrategy = errors.New("arena: unknown strategy")
)

// ContractViolation is the panic value raised when a caller breaks the
// allocator contract, e.g. releasing a pointer this allocator never handed
// out or releasing with a different layout. The arena can no longer be
// trusted after one of these.
type ContractViolation struct {
	Strategy string
	Op       string
	Reason   string
}

func (c *ContractViolation) Error() string {
	return fmt.Sprintf("arena: %s %s: %s", c.Strategy, c.Op, c.Reason)
}

// violate logs the violation and panics with it.
func violate(logger log.Logger, strategy, op, format string, args ...interface{}) {
	v := &ContractViolation{Strategy: strategy, Op: op, Reason: fmt.Sprintf(format, args...)}
	level.Error(logger).Log("msg", "allocator contract violated", "op", op, "reason", v.Reason)
	panic(v)
}

func outOfMemory(logger log.Logger, l Layout) error {
	level.Debug(logger).Log("msg", "allocation failed", "size", l.Size, "align", l.Align)
	return errors.Wrapf(ErrOutOfMemory, "size %d align %d", l.Size, l.Align)
}
