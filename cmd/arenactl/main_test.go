package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arena "github.com/pavanmanishd/arenalloc"
)

func TestHello(t *testing.T) {
	for _, strategy := range []string{arena.StrategyBump, arena.StrategyAtomicBump, arena.StrategyFreeList} {
		t.Run(strategy, func(t *testing.T) {
			a, err := arena.NewFromConfig(arena.Config{Strategy: strategy, Capacity: 1024})
			require.NoError(t, err)

			var out bytes.Buffer
			require.NoError(t, hello(&out, a, log.NewNopLogger()))
			assert.Contains(t, out.String(), "Hello, world!\n")
			assert.Contains(t, out.String(), "3 live allocations")
			assert.Zero(t, a.Stats().Live)
		})
	}
}

func TestHelloNull(t *testing.T) {
	err := hello(&bytes.Buffer{}, arena.NewNull(), log.NewNopLogger())
	require.ErrorIs(t, err, arena.ErrOutOfMemory)
}

func TestStress(t *testing.T) {
	cfg := stressConfig{workers: 4, iterations: 200, size: 48}
	for _, strategy := range []string{arena.StrategyBump, arena.StrategyAtomicBump, arena.StrategyFreeList} {
		t.Run(strategy, func(t *testing.T) {
			a, err := arena.NewFromConfig(arena.Config{Strategy: strategy, Capacity: 4096})
			require.NoError(t, err)

			res, err := stress(context.Background(), a, cfg, log.NewNopLogger())
			require.NoError(t, err)
			assert.Equal(t, uint64(cfg.workers*cfg.iterations), res.allocs+res.failures)
			assert.Equal(t, res.allocs*cfg.size, res.bytes)
			assert.Zero(t, a.Stats().Live)

			var out bytes.Buffer
			printSummary(&out, a, cfg, res)
			assert.Contains(t, out.String(), "strategy: "+strategy)
			assert.Contains(t, out.String(), "capacity: 4.0 KiB")
		})
	}
}

// lastBlock remembers the most recent block it handed out.
type lastBlock struct {
	arena.Allocator
	last unsafe.Pointer
}

func (a *lastBlock) Allocate(l arena.Layout) (unsafe.Pointer, error) {
	p, err := a.Allocator.Allocate(l)
	a.last = p
	return p, err
}

func TestStressDetectsForeignWrite(t *testing.T) {
	a := &lastBlock{Allocator: arena.NewBump(1024)}
	cfg := stressConfig{
		workers:    1,
		iterations: 10,
		size:       32,
		// another owner of the same bytes writes while the worker is paused
		pause: func() { *(*byte)(unsafe.Add(a.last, 5)) = 0xee },
	}

	res, err := stress(context.Background(), a, cfg, log.NewNopLogger())
	require.ErrorIs(t, err, errCorrupted)
	assert.Equal(t, uint64(1), res.allocs)
	assert.Zero(t, a.Stats().Live, "the corrupted block is still released")
}

func TestStressNullOnlyFails(t *testing.T) {
	cfg := stressConfig{workers: 2, iterations: 10, size: 8}
	res, err := stress(context.Background(), arena.NewNull(), cfg, log.NewNopLogger())
	require.NoError(t, err)
	assert.Zero(t, res.allocs)
	assert.Equal(t, uint64(20), res.failures)
}

func TestWriteMetrics(t *testing.T) {
	a := arena.NewFreeList(1024)
	_, err := a.Allocate(arena.MustLayout(16, 8))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeMetrics(&out, a))
	assert.Contains(t, out.String(), `arena_capacity_bytes{strategy="freelist"} 1024`)
	assert.Contains(t, out.String(), `arena_allocations_total{strategy="freelist"} 1`)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: freelist\ncapacity: 1MiB\nstrict_release: true\n"), 0o600))

	var cfg arena.Config
	require.NoError(t, loadConfig(path, &cfg))
	assert.Equal(t, arena.StrategyFreeList, cfg.Strategy)
	assert.Equal(t, uint64(1<<20), uint64(cfg.Capacity))
	assert.True(t, cfg.StrictRelease)

	require.NoError(t, os.WriteFile(path, []byte("strategy: bump\nchunk_size: 12\n"), 0o600))
	require.Error(t, loadConfig(path, &cfg), "unknown fields are rejected")
}
