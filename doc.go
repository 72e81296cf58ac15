// Package arena implements fixed-capacity allocators backed by a single
// owned byte arena.
//
// # Overview
//
// Each allocator owns one zero-initialized arena whose size is fixed at
// construction. It never grows and never falls back to the Go heap, which
// makes memory use bounded and predictable. This is useful for:
//
//   - Embedded or memory-constrained services with a hard budget
//   - Subsystems that must fail fast instead of growing the heap
//   - Exercising out-of-memory handling deterministically
//
// # Strategies
//
//   - Bump: hands out monotonically advancing blocks under a mutex and
//     reclaims the whole arena when the last outstanding block is released.
//   - AtomicBump: the same contract, lock-free. Offset and outstanding count
//     share one CAS-updated word.
//   - FreeList: first-fit search over a list of free regions stored inside
//     the free bytes themselves, splitting regions on allocation. Adjacent
//     free regions are never merged.
//   - Null: always out of memory.
//
// # Basic Usage
//
//	a := arena.NewFreeList(64 << 10)
//
//	// Raw blocks
//	l := arena.MustLayout(24, 8)
//	p, err := a.Allocate(l)
//	if errors.Is(err, arena.ErrOutOfMemory) {
//		// shed load, release something, ...
//	}
//	a.Release(p, l)
//
//	// Typed values
//	v, err := arena.New[MyStruct](a)
//	defer arena.Free(a, v)
//	s, err := arena.MakeSlice[int64](a, 100)
//	defer arena.FreeSlice(a, s)
//
// # Contract
//
// Release must be given a pointer returned by the same allocator together
// with the layout used to allocate it. Anything else panics with a
// *ContractViolation: continuing would risk handing the same bytes out twice.
// ErrOutOfMemory is the only error Allocate returns for a valid layout.
//
// # Configuration
//
//	var cfg arena.Config
//	cfg.RegisterFlags(flag.CommandLine) // -arena.strategy, -arena.capacity
//	flag.Parse()
//	a, err := arena.NewFromConfig(cfg, arena.WithLogger(logger))
//
// # Metrics
//
//	prometheus.MustRegister(arena.NewCollector(a, nil))
package arena
