package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	arena "github.com/pavanmanishd/arenalloc"
)

const greeting = "Hello, world!"

// helloCommand stores a few values in the arena and prints a greeting built
// from arena memory.
type helloCommand struct {
	g *globals
}

func (cmd *helloCommand) run(*kingpin.ParseContext) error {
	a, err := cmd.g.allocator()
	if err != nil {
		return err
	}
	return hello(os.Stdout, a, cmd.g.logger)
}

func hello(w io.Writer, a arena.Allocator, logger log.Logger) error {
	n, err := arena.New[int64](a)
	if err != nil {
		return fmt.Errorf("failed to allocate an int: %w", err)
	}
	defer arena.Free(a, n)
	*n = 42

	nums, err := arena.MakeSlice[int32](a, 3)
	if err != nil {
		return fmt.Errorf("failed to allocate a slice: %w", err)
	}
	defer arena.FreeSlice(a, nums)
	for i := range nums {
		nums[i] = int32(i + 1)
	}

	msg, err := arena.AllocBytes(a, len(greeting))
	if err != nil {
		return fmt.Errorf("failed to allocate the greeting: %w", err)
	}
	defer arena.FreeBytes(a, msg)
	copy(msg, greeting)

	fmt.Fprintln(w, string(msg))
	st := a.Stats()
	fmt.Fprintf(w, "%s arena: %d live allocations, %s of %s reserved (int %d, slice %v)\n",
		st.Strategy, st.Live, humanize.IBytes(uint64(st.Reserved)), humanize.IBytes(uint64(st.Capacity)), *n, nums)
	level.Debug(logger).Log("msg", "hello done", "reserved", st.Reserved)
	return nil
}

func addHelloCommand(app *kingpin.Application, g *globals) {
	cmd := &helloCommand{g: g}
	app.Command("hello", "Allocate a few values and print a greeting.").Default().Action(cmd.run)
}
