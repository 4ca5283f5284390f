package xor

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lucadivit/neat-gdg/neat"
)

// DefaultSeed and DefaultGenerations reproduce the reference run.
const (
	DefaultSeed        int64 = 2072571730719029873
	DefaultGenerations       = 300
)

// Engine is the part of the evolutionary engine the driver needs.
// *neat.Population satisfies it.
type Engine interface {
	AddReporter(r neat.Reporter)
	Run(ctx context.Context, fitnessFunc neat.FitnessFunc, n int) (*neat.Genome, error)
	State() neat.State
}

var _ Engine = (*neat.Population)(nil)

// NewEngine creates a seeded population for cfg.
func NewEngine(cfg *neat.Config, seed int64, logger *slog.Logger) (*neat.Population, error) {
	return neat.NewPopulation(cfg, neat.WithSeed(seed), neat.WithLogger(logger))
}

// Options controls a single Evolve call.
type Options struct {
	Generations int
	// Progress receives StdOutReporter text; nil disables it.
	Progress      io.Writer
	SpeciesDetail bool
	// Sinks are attached after the statistics reporter, in order.
	Sinks  []neat.Reporter
	Logger *slog.Logger
}

// Result is the outcome of an evolution run.
type Result struct {
	Winner *neat.Genome
	Stats  *neat.StatisticsReporter
	State  neat.State
}

// Solved reports whether the run stopped on the fitness threshold.
func (r *Result) Solved() bool {
	return r.State == neat.TerminatedByThreshold
}

// Evolve runs the engine on the XOR task. Extinction and evaluation
// failures are returned as errors; running out of generations is not.
func Evolve(ctx context.Context, engine Engine, opts Options) (*Result, error) {
	if opts.Generations <= 0 {
		opts.Generations = DefaultGenerations
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stats := neat.NewStatisticsReporter()
	engine.AddReporter(stats)
	if opts.Progress != nil {
		engine.AddReporter(neat.NewStdOutReporter(opts.Progress, opts.SpeciesDetail))
	}
	for _, sink := range opts.Sinks {
		engine.AddReporter(sink)
	}

	winner, err := engine.Run(ctx, EvalGenomes, opts.Generations)
	result := &Result{Winner: winner, Stats: stats, State: engine.State()}
	if err != nil {
		return result, fmt.Errorf("evolution failed: %w", err)
	}
	if winner == nil {
		return result, fmt.Errorf("evolution finished without a winner")
	}

	logger.Info("neat_xor done",
		"state", result.State.String(),
		"generations", stats.Generations(),
		"fitness", winner.Fitness,
		"key", winner.Key)
	return result, nil
}
