package metrics

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucadivit/neat-gdg/neat"
)

// gathered returns the value of every metric in the reporter's registry.
func gathered(t *testing.T, r *Reporter) map[string]float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				out[mf.GetName()] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				out[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	return out
}

func TestReporterTracksGenerations(t *testing.T) {
	r := NewReporter()

	g1 := neat.NewGenome(1)
	g1.Fitness = 0.5
	g2 := neat.NewGenome(2)
	g2.Fitness = 1
	pop := map[int]*neat.Genome{1: g1, 2: g2}
	ss := neat.NewSpeciesSet(&neat.SpeciesSetConfig{}, nil)
	ss.Species[1] = neat.NewSpecies(1, 0)

	r.StartGeneration(4)
	r.PostEvaluate(nil, pop, ss, g2)
	r.EndGeneration(nil, pop, ss)
	r.SpeciesStagnant(3, nil)
	r.SpeciesStagnant(4, nil)
	r.CompleteExtinction()
	r.FoundSolution(nil, 4, g2)

	got := gathered(t, r)
	assert.Equal(t, 4.0, got["neat_xor_generation"])
	assert.Equal(t, 1.0, got["neat_xor_best_fitness"])
	assert.Equal(t, 0.75, got["neat_xor_mean_fitness"])
	assert.Equal(t, 0.25, got["neat_xor_fitness_stdev"])
	assert.Equal(t, 2.0, got["neat_xor_population"])
	assert.Equal(t, 1.0, got["neat_xor_species"])
	assert.Equal(t, 1.0, got["neat_xor_solved"])
	assert.Equal(t, 2.0, got["neat_xor_stagnant_species_total"])
	assert.Equal(t, 1.0, got["neat_xor_extinctions_total"])
}

func TestWriteTextfile(t *testing.T) {
	r := NewReporter()
	g := neat.NewGenome(1)
	g.Fitness = 0.75
	r.PostEvaluate(nil, map[int]*neat.Genome{1: g}, neat.NewSpeciesSet(&neat.SpeciesSetConfig{}, nil), g)

	path := filepath.Join(t.TempDir(), "neat_xor.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "neat_xor_best_fitness 0.75")
	assert.Contains(t, string(data), "# TYPE neat_xor_extinctions_total counter")
}

func TestReportersAreIndependent(t *testing.T) {
	a, b := NewReporter(), NewReporter()
	a.CompleteExtinction()
	assert.Equal(t, 1.0, gathered(t, a)["neat_xor_extinctions_total"])
	assert.Equal(t, 0.0, gathered(t, b)["neat_xor_extinctions_total"])
}

func TestSolvedIgnoresLimitWithoutFitnessTermination(t *testing.T) {
	cfg := &neat.Config{Neat: neat.NeatConfig{FitnessThreshold: 1, NoFitnessTermination: true}}
	g := neat.NewGenome(1)
	g.Fitness = 0.75

	r := NewReporter()
	r.FoundSolution(cfg, 300, g)
	assert.Equal(t, 0.0, gathered(t, r)["neat_xor_solved"])

	g.Fitness = 1
	r.FoundSolution(cfg, 300, g)
	assert.Equal(t, 1.0, gathered(t, r)["neat_xor_solved"])

	// Driven by the engine: the limit is reached with nobody at the threshold.
	full, err := neat.LoadConfig("../../neat/testdata/config_xor")
	require.NoError(t, err)
	full.Neat.NoFitnessTermination = true
	full.Neat.PopSize = 20
	pop, err := neat.NewPopulation(full, neat.WithSeed(1), neat.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	engineSink := NewReporter()
	pop.AddReporter(engineSink)
	half := func(genomes []*neat.Genome, _ *neat.Config) error {
		for _, g := range genomes {
			g.Fitness = 0.5
		}
		return nil
	}
	_, err = pop.Run(context.Background(), half, 2)
	require.NoError(t, err)
	assert.Equal(t, neat.TerminatedByGenerationLimit, pop.State())
	assert.Equal(t, 0.0, gathered(t, engineSink)["neat_xor_solved"])
}
