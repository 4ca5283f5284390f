package neat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfEven(t *testing.T) {
	assert.Equal(t, 2, roundHalfEven(2.5))
	assert.Equal(t, 4, roundHalfEven(3.5))
	assert.Equal(t, 0, roundHalfEven(-0.5))
	assert.Equal(t, -36, roundHalfEven(-36.5))
	assert.Equal(t, 3, roundHalfEven(2.6))
}

func TestComputeSpawn(t *testing.T) {
	tests := []struct {
		name     string
		adjusted []float64
		previous []int
		popSize  int
		want     []int
	}{
		{"balanced", []float64{0.5, 0.5}, []int{75, 75}, 150, []int{75, 75}},
		{"one dominant", []float64{1, 0}, []int{75, 75}, 150, []int{112, 38}},
		{"no fitness", []float64{0, 0}, []int{10, 10}, 20, []int{10, 10}},
		{"single species grows", []float64{1}, []int{100}, 150, []int{150}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, computeSpawn(tt.adjusted, tt.previous, tt.popSize, 2))
		})
	}
}

func newTestReproduction(t *testing.T, cfg *Config, reporters *ReporterSet) *Reproduction {
	t.Helper()
	stag, err := NewStagnation(&cfg.Stagnation)
	require.NoError(t, err)
	return NewReproduction(cfg, stag, reporters)
}

func TestReproduceKeepsElitesAndRecordsAncestors(t *testing.T) {
	cfg := loadTestConfig(t)
	rng := newTestRand(7)
	repro := newTestReproduction(t, cfg, &ReporterSet{})

	pop := repro.CreateNewPopulation(&cfg.Genome, cfg.Neat.PopSize, rng)
	require.Len(t, pop, 150)
	require.Equal(t, 151, repro.GenomeIndexer.Next)

	genomes := make([]*Genome, 0, len(pop))
	for _, k := range sortedGenomeKeys(pop) {
		genomes = append(genomes, pop[k])
	}
	require.NoError(t, structuralFitness(genomes, cfg))
	var best *Genome
	for _, g := range genomes {
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
	}

	ss := NewSpeciesSet(&cfg.SpeciesSet, nil)
	require.NoError(t, ss.Speciate(cfg, pop, 0))
	speciesBefore := ss.Keys()

	next := repro.Reproduce(cfg, ss, cfg.Neat.PopSize, 0, rng)

	assert.InDelta(t, 150, len(next), float64(2*len(speciesBefore)))
	assert.Same(t, best, next[best.Key])
	assert.Equal(t, speciesBefore, ss.Keys())
	for _, sid := range ss.Keys() {
		assert.Empty(t, ss.Species[sid].Members)
		assert.False(t, math.IsNaN(ss.Species[sid].AdjustedFitness))
	}

	children := 0
	for key, g := range next {
		if key > 150 {
			children++
			require.Len(t, repro.Ancestors[key], 2)
			assert.False(t, g.Evaluated())
			assert.False(t, hasCycle(g))
		} else {
			assert.Empty(t, repro.Ancestors[key])
		}
	}
	assert.Positive(t, children)
}

func TestReproduceAllStagnant(t *testing.T) {
	cfg := configWith(t, map[string]string{
		"pop_size":        "20",
		"max_stagnation":  "1",
		"species_elitism": "0",
	})
	rng := newTestRand(8)
	rec := &recordingReporter{}
	reporters := &ReporterSet{}
	reporters.Add(rec)
	repro := newTestReproduction(t, cfg, reporters)

	pop := repro.CreateNewPopulation(&cfg.Genome, cfg.Neat.PopSize, rng)
	for _, g := range pop {
		g.Fitness = 0
	}
	ss := NewSpeciesSet(&cfg.SpeciesSet, nil)
	require.NoError(t, ss.Speciate(cfg, pop, 0))
	for _, s := range ss.Species {
		s.FitnessHistory = []float64{1}
		s.LastImproved = 0
	}
	n := len(ss.Species)

	next := repro.Reproduce(cfg, ss, cfg.Neat.PopSize, 10, rng)
	assert.Empty(t, next)
	assert.Empty(t, ss.Species)
	assert.Len(t, rec.stagnant, n)
}
