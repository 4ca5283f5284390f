package neat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPopulation(t *testing.T, cfg *Config, seed int64) *Population {
	t.Helper()
	pop, err := NewPopulation(cfg, WithSeed(seed), WithLogger(discardLogger()))
	require.NoError(t, err)
	return pop
}

// unreachable returns the test config with a threshold no genome can meet.
func unreachable(t *testing.T, extra map[string]string) *Config {
	t.Helper()
	settings := map[string]string{
		"pop_size":          "50",
		"fitness_threshold": "1e9",
	}
	for k, v := range extra {
		settings[k] = v
	}
	return configWith(t, settings)
}

func TestNewPopulation(t *testing.T) {
	cfg := unreachable(t, nil)
	pop := newTestPopulation(t, cfg, 3)

	assert.Equal(t, int64(3), pop.Seed())
	assert.Equal(t, Initializing, pop.State())
	assert.Len(t, pop.Population, 50)
	assert.NotEmpty(t, pop.SpeciesSet.Species)
	assert.Equal(t, 0, pop.Generation)

	genomes := pop.Genomes()
	require.Len(t, genomes, 50)
	for i := 1; i < len(genomes); i++ {
		assert.Less(t, genomes[i-1].Key, genomes[i].Key)
	}
}

func TestNewPopulationUnknownActivation(t *testing.T) {
	cfg := configWith(t, map[string]string{"activation_default": "no_such_fn"})
	_, err := NewPopulation(cfg, WithSeed(1))
	assert.Error(t, err)
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := unreachable(t, nil)
	a := newTestPopulation(t, cfg, 42)
	b := newTestPopulation(t, cfg, 42)

	bestA, err := a.Run(context.Background(), structuralFitness, 8)
	require.NoError(t, err)
	bestB, err := b.Run(context.Background(), structuralFitness, 8)
	require.NoError(t, err)

	assert.Equal(t, bestA.Key, bestB.Key)
	assert.Equal(t, bestA.String(), bestB.String())
	assert.Equal(t, sortedGenomeKeys(a.Population), sortedGenomeKeys(b.Population))
	assert.Equal(t, a.SpeciesSet.Keys(), b.SpeciesSet.Keys())

	c := newTestPopulation(t, cfg, 43)
	_, err = c.Run(context.Background(), structuralFitness, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a.Genomes()[0].String(), c.Genomes()[0].String())
}

func TestRunStopsAtGenerationLimit(t *testing.T) {
	cfg := unreachable(t, nil)
	pop := newTestPopulation(t, cfg, 5)
	rec := &recordingReporter{}
	pop.AddReporter(rec)

	best, err := pop.Run(context.Background(), structuralFitness, 5)
	require.NoError(t, err)
	require.NotNil(t, best)

	assert.Equal(t, TerminatedByGenerationLimit, pop.State())
	assert.True(t, pop.State().Terminal())
	assert.Equal(t, 5, pop.Generation)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, rec.started)
	assert.Equal(t, 5, rec.evaluated)
	assert.Equal(t, 5, rec.ended)
	assert.Empty(t, rec.solutions)
	assert.Same(t, pop.BestGenome, best)

	// A population stopped by the limit can be run further.
	_, err = pop.Run(context.Background(), structuralFitness, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, pop.Generation)
}

func TestRunStopsAtThreshold(t *testing.T) {
	cfg := configWith(t, map[string]string{"pop_size": "30"})
	pop := newTestPopulation(t, cfg, 6)
	rec := &recordingReporter{}
	pop.AddReporter(rec)

	calls := 0
	staged := func(genomes []*Genome, _ *Config) error {
		calls++
		for _, g := range genomes {
			g.Fitness = 0.5
		}
		if calls == 3 {
			genomes[len(genomes)-1].Fitness = 1.0
		}
		return nil
	}

	best, err := pop.Run(context.Background(), staged, 10)
	require.NoError(t, err)
	require.NotNil(t, best)

	assert.Equal(t, TerminatedByThreshold, pop.State())
	assert.Equal(t, 1.0, best.Fitness)
	assert.Equal(t, 2, pop.Generation)
	assert.Equal(t, []int{2}, rec.solutions)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, rec.ended)

	_, err = pop.Run(context.Background(), staged, 1)
	assert.Error(t, err)
}

func TestRunNoFitnessTermination(t *testing.T) {
	cfg := configWith(t, map[string]string{
		"pop_size":               "30",
		"no_fitness_termination": "True",
	})
	pop := newTestPopulation(t, cfg, 7)
	rec := &recordingReporter{}
	pop.AddReporter(rec)

	_, err := pop.Run(context.Background(), constantFitness(5), 3)
	require.NoError(t, err)
	assert.Equal(t, TerminatedByGenerationLimit, pop.State())
	assert.Equal(t, []int{3}, rec.solutions)
}

func TestRunCompleteExtinction(t *testing.T) {
	cfg := unreachable(t, map[string]string{
		"compatibility_threshold": "1000",
		"max_stagnation":          "1",
		"species_elitism":         "0",
	})
	pop := newTestPopulation(t, cfg, 8)
	rec := &recordingReporter{}
	pop.AddReporter(rec)

	_, err := pop.Run(context.Background(), constantFitness(0), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompleteExtinction))
	assert.Equal(t, Extinct, pop.State())
	assert.Equal(t, 1, pop.Generation)
	assert.Equal(t, 1, rec.extinctions)
	assert.NotNil(t, pop.BestGenome)

	_, err = pop.Run(context.Background(), constantFitness(0), 1)
	assert.Error(t, err)
}

func TestRunResetOnExtinction(t *testing.T) {
	cfg := unreachable(t, map[string]string{
		"compatibility_threshold": "1000",
		"max_stagnation":          "1",
		"species_elitism":         "0",
		"reset_on_extinction":     "True",
	})
	pop := newTestPopulation(t, cfg, 9)
	rec := &recordingReporter{}
	pop.AddReporter(rec)

	_, err := pop.Run(context.Background(), constantFitness(0), 4)
	require.NoError(t, err)
	assert.Equal(t, TerminatedByGenerationLimit, pop.State())
	assert.Positive(t, rec.extinctions)
	assert.Len(t, pop.Population, 50)
	assert.NotEmpty(t, pop.SpeciesSet.Species)
}

func TestRunErrors(t *testing.T) {
	cfg := unreachable(t, nil)

	t.Run("non-positive limit", func(t *testing.T) {
		pop := newTestPopulation(t, cfg, 1)
		_, err := pop.Run(context.Background(), structuralFitness, 0)
		assert.Error(t, err)
		assert.Equal(t, Initializing, pop.State())
	})

	t.Run("missing fitness", func(t *testing.T) {
		pop := newTestPopulation(t, cfg, 1)
		noop := func([]*Genome, *Config) error { return nil }
		_, err := pop.Run(context.Background(), noop, 1)
		assert.ErrorIs(t, err, ErrNoFitness)
	})

	t.Run("fitness failure", func(t *testing.T) {
		pop := newTestPopulation(t, cfg, 1)
		boom := errors.New("boom")
		failing := func([]*Genome, *Config) error { return boom }
		_, err := pop.Run(context.Background(), failing, 1)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		pop := newTestPopulation(t, cfg, 1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := pop.Run(ctx, structuralFitness, 3)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, pop.Generation)
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "TerminatedByThreshold", TerminatedByThreshold.String())
	assert.Equal(t, "State(42)", State(42).String())
	assert.False(t, EvaluatingGeneration.Terminal())
}
