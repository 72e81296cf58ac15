// Command arenactl builds a fixed-capacity allocator from flags or a config
// file and exercises it.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gopkg.in/yaml.v2"

	arena "github.com/pavanmanishd/arenalloc"
)

// globals holds the configuration shared by every subcommand.
type globals struct {
	cfg        arena.Config
	configFile string
	logLevel   string
	logger     log.Logger
}

func main() {
	app := kingpin.New("arenactl", "Exercise fixed-capacity arena allocators.")
	app.HelpFlag.Short('h')

	g := &globals{}
	g.registerFlags(app)
	app.PreAction(g.setup)

	addHelloCommand(app, g)
	addStressCommand(app, g)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}

func (g *globals) registerFlags(app *kingpin.Application) {
	_ = g.cfg.Capacity.Set("128KiB")

	app.Flag("strategy", "Allocation strategy.").Default(arena.StrategyBump).EnumVar(&g.cfg.Strategy, arena.Strategies...)
	app.Flag("capacity", "Size of the fixed arena, e.g. 64KiB or 1MiB.").SetValue(&g.cfg.Capacity)
	app.Flag("strict-release", "Detect double releases in the freelist strategy.").BoolVar(&g.cfg.StrictRelease)
	app.Flag("config.file", "YAML file with strategy, capacity and strict_release. Values in the file override flags.").ExistingFileVar(&g.configFile)
	app.Flag("log.level", "Only log messages with the given severity or above.").Default("info").EnumVar(&g.logLevel, "debug", "info", "warn", "error")
}

// setup runs after flags are parsed and before any subcommand.
func (g *globals) setup(*kingpin.ParseContext) error {
	if g.configFile != "" {
		if err := loadConfig(g.configFile, &g.cfg); err != nil {
			return err
		}
	}
	if err := g.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	g.logger = newLogger(g.logLevel)
	return nil
}

func (g *globals) allocator() (arena.Allocator, error) {
	return arena.NewFromConfig(g.cfg, arena.WithLogger(g.logger))
}

func loadConfig(path string, cfg *arena.Config) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(buf, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(lvl, level.InfoValue())))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func exitWithErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
