package storage

import (
	"context"
	"log/slog"
	"sort"

	"github.com/lucadivit/neat-gdg/neat"
)

// Reporter writes one row per evaluated generation to a RunStore. Write
// errors do not stop the run; the first one is kept and logged.
type Reporter struct {
	neat.BaseReporter
	ctx        context.Context
	store      *RunStore
	runID      string
	logger     *slog.Logger
	generation int
	err        error
}

func NewReporter(ctx context.Context, store *RunStore, runID string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{ctx: ctx, store: store, runID: runID, logger: logger}
}

func (r *Reporter) StartGeneration(generation int) {
	r.generation = generation
}

func (r *Reporter) PostEvaluate(_ *neat.Config, population map[int]*neat.Genome, species *neat.SpeciesSet, best *neat.Genome) {
	keys := make([]int, 0, len(population))
	for k := range population {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fitnesses := make([]float64, 0, len(keys))
	for _, k := range keys {
		fitnesses = append(fitnesses, population[k].Fitness)
	}
	bestSpecies, _ := species.GetSpeciesID(best.Key)
	row := GenerationRow{
		Generation:  r.generation,
		Best:        best.Fitness,
		Mean:        neat.Mean(fitnesses),
		Stdev:       neat.Stdev(fitnesses),
		Species:     len(species.Species),
		Population:  len(population),
		BestGenome:  best.Key,
		BestSpecies: bestSpecies,
	}
	if err := r.store.AppendGeneration(r.ctx, r.runID, row); err != nil {
		r.logger.Error("failed to store generation", "run", r.runID, "generation", r.generation, "err", err)
		if r.err == nil {
			r.err = err
		}
	}
}

// RunID returns the id of the run being recorded.
func (r *Reporter) RunID() string { return r.runID }

// Err returns the first write error, if any.
func (r *Reporter) Err() error { return r.err }
