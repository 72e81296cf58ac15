package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
	"unsafe"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	arena "github.com/pavanmanishd/arenalloc"
)

// errCorrupted is returned when a worker finds its block overwritten by
// someone else.
var errCorrupted = errors.New("block corrupted by a concurrent writer")

type stressConfig struct {
	workers    int
	iterations int
	size       uint64

	// pause runs between filling a block and checking it, so other workers
	// get to write in between. Defaults to runtime.Gosched.
	pause func()
}

type stressResult struct {
	allocs   uint64
	failures uint64
	bytes    uint64
	elapsed  time.Duration
}

// stressCommand hammers one shared allocator from several goroutines, each
// writing a private pattern into every block and checking it is intact
// before releasing it.
type stressCommand struct {
	g            *globals
	cfg          stressConfig
	printMetrics bool
}

func (cmd *stressCommand) run(*kingpin.ParseContext) error {
	a, err := cmd.g.allocator()
	if err != nil {
		return err
	}

	res, err := stress(context.Background(), a, cmd.cfg, cmd.g.logger)
	printSummary(os.Stdout, a, cmd.cfg, res)
	if err != nil {
		exitWithErr(err)
	}

	if cmd.printMetrics {
		return writeMetrics(os.Stdout, a)
	}
	return nil
}

func stress(ctx context.Context, a arena.Allocator, cfg stressConfig, logger log.Logger) (stressResult, error) {
	l, err := arena.NewLayout(uintptr(cfg.size), 8)
	if err != nil {
		return stressResult{}, err
	}

	pause := cfg.pause
	if pause == nil {
		pause = runtime.Gosched
	}

	var allocs, failures atomic.Uint64
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.workers; w++ {
		pattern := byte(w%255 + 1)
		g.Go(func() error {
			for i := 0; i < cfg.iterations; i++ {
				if ctx.Err() != nil {
					return nil
				}
				p, err := a.Allocate(l)
				if errors.Is(err, arena.ErrOutOfMemory) {
					failures.Inc()
					continue
				}
				if err != nil {
					return err
				}
				allocs.Inc()

				block := unsafe.Slice((*byte)(p), l.Size)
				for j := range block {
					block[j] = pattern
				}
				pause()
				for j, b := range block {
					if b != pattern {
						level.Error(logger).Log("msg", "block corrupted", "worker", w, "iteration", i, "offset", j, "want", pattern, "got", b)
						a.Release(p, l)
						return fmt.Errorf("worker %d: %w", w, errCorrupted)
					}
				}
				a.Release(p, l)
			}
			return nil
		})
	}
	err = g.Wait()

	res := stressResult{
		allocs:   allocs.Load(),
		failures: failures.Load(),
		elapsed:  time.Since(start),
	}
	res.bytes = res.allocs * uint64(l.Size)
	level.Debug(logger).Log("msg", "stress finished", "allocs", res.allocs, "failures", res.failures, "elapsed", res.elapsed)
	return res, err
}

func printSummary(w io.Writer, a arena.Allocator, cfg stressConfig, res stressResult) {
	st := a.Stats()
	bold := color.New(color.Bold)

	bold.Fprintln(w, "Allocator:")
	fmt.Fprintf(w, "\tstrategy: %s, capacity: %s\n", st.Strategy, humanize.IBytes(uint64(st.Capacity)))
	bold.Fprintln(w, "Workload:")
	fmt.Fprintf(w, "\tworkers: %d, iterations: %s, block size: %s\n",
		cfg.workers, humanize.Comma(int64(cfg.iterations)), humanize.IBytes(cfg.size))
	bold.Fprintln(w, "Result:")

	rate := 0.0
	if secs := res.elapsed.Seconds(); secs > 0 {
		rate = float64(res.allocs) / secs
	}
	fmt.Fprintf(w, "\tallocations: %s (%s/s), written: %s, elapsed: %v\n",
		humanize.Comma(int64(res.allocs)), humanize.CommafWithDigits(rate, 0), humanize.IBytes(res.bytes), res.elapsed.Round(time.Millisecond))

	failures := fmt.Sprintf("%s out of memory", humanize.Comma(int64(res.failures)))
	if res.failures > 0 {
		failures = color.YellowString(failures)
	}
	fmt.Fprintf(w, "\tfailures: %s, live after run: %d\n", failures, st.Live)
}

// writeMetrics prints the allocator's metrics in the Prometheus text format.
func writeMetrics(w io.Writer, a arena.Allocator) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(arena.NewCollector(a, nil)); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func addStressCommand(app *kingpin.Application, g *globals) {
	cmd := &stressCommand{g: g}
	c := app.Command("stress", "Allocate, fill, verify and release blocks from concurrent workers.").Action(cmd.run)
	c.Flag("workers", "Number of concurrent workers.").Default("8").IntVar(&cmd.cfg.workers)
	c.Flag("iterations", "Allocations per worker.").Default("10000").IntVar(&cmd.cfg.iterations)
	c.Flag("size", "Block size in bytes.").Default("64").Uint64Var(&cmd.cfg.size)
	c.Flag("print-metrics", "Print the allocator's metrics after the run.").BoolVar(&cmd.printMetrics)
}
