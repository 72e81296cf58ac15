package arena

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"strings"

	"github.com/grafana/dskit/flagext"
	pkgerrors "github.com/pkg/errors"
)

// Strategies lists every strategy NewFromConfig understands.
var Strategies = []string{StrategyBump, StrategyAtomicBump, StrategyFreeList, StrategyNull}

// Config selects and sizes an allocator.
type Config struct {
	// Strategy is one of Strategies.
	Strategy string `yaml:"strategy"`

	// Capacity is the arena size. It is fixed for the allocator's lifetime.
	Capacity flagext.Bytes `yaml:"capacity"`

	// StrictRelease enables double-release detection in the free-list
	// allocator.
	StrictRelease bool `yaml:"strict_release"`
}

// RegisterFlags registers flags under the "arena." prefix.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("arena.", f)
}

// RegisterFlagsWithPrefix registers flags with the given prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	_ = cfg.Capacity.Set("128KiB")

	f.StringVar(&cfg.Strategy, prefix+"strategy", StrategyBump, fmt.Sprintf("Allocation strategy, one of: %s.", strings.Join(Strategies, ", ")))
	f.Var(&cfg.Capacity, prefix+"capacity", "Size of the fixed arena backing the allocator.")
	f.BoolVar(&cfg.StrictRelease, prefix+"strict-release", false, "Detect double releases in the freelist strategy at O(n) cost per release.")
}

// Validate validates the Config.
func (cfg *Config) Validate() error {
	var errs []error

	known := false
	for _, s := range Strategies {
		known = known || s == cfg.Strategy
	}
	if !known {
		errs = append(errs, pkgerrors.Wrapf(ErrUnknownStrategy, "%q", cfg.Strategy))
	}

	if uint64(cfg.Capacity) > math.MaxInt {
		errs = append(errs, pkgerrors.Errorf("capacity %d does not fit in an int", uint64(cfg.Capacity)))
	} else if cfg.Strategy == StrategyAtomicBump && uint64(cfg.Capacity) > MaxAtomicCapacity {
		errs = append(errs, pkgerrors.Errorf("capacity %d exceeds the %s limit of %d bytes", uint64(cfg.Capacity), StrategyAtomicBump, uint64(MaxAtomicCapacity)))
	}

	return errors.Join(errs...)
}

// NewFromConfig builds the allocator described by cfg.
func NewFromConfig(cfg Config, opts ...Option) (Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StrictRelease {
		opts = append(opts, WithStrictRelease())
	}
	capacity := int(cfg.Capacity)
	switch cfg.Strategy {
	case StrategyBump:
		return NewBump(capacity, opts...), nil
	case StrategyAtomicBump:
		return NewAtomicBump(capacity, opts...), nil
	case StrategyFreeList:
		return NewFreeList(capacity, opts...), nil
	default:
		return NewNull(opts...), nil
	}
}
