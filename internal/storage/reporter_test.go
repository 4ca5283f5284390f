package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucadivit/neat-gdg/neat"
)

func TestReporterAppendsGenerations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	id, err := store.CreateRun(ctx, 1, "cfg")
	require.NoError(t, err)

	cfg, err := neat.LoadConfig("../../neat/testdata/config_xor")
	require.NoError(t, err)
	pop, err := neat.NewPopulation(cfg, neat.WithSeed(5), neat.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	rep := NewReporter(ctx, store, id, nil)
	assert.Equal(t, id, rep.RunID())
	pop.AddReporter(rep)

	half := func(genomes []*neat.Genome, _ *neat.Config) error {
		for _, g := range genomes {
			g.Fitness = 0.5
		}
		return nil
	}
	_, err = pop.Run(ctx, half, 3)
	require.NoError(t, err)
	require.NoError(t, rep.Err())

	rows, err := store.Generations(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, i, r.Generation)
		assert.Equal(t, 0.5, r.Best)
		assert.Equal(t, 0.5, r.Mean)
		assert.Equal(t, 0.0, r.Stdev)
		assert.Equal(t, 150, r.Population)
		assert.Positive(t, r.Species)
		assert.Positive(t, r.BestSpecies)
	}
}

func TestReporterKeepsFirstError(t *testing.T) {
	store := NewRunStore("unused.db")
	rep := NewReporter(context.Background(), store, "run", slog.New(slog.NewTextHandler(io.Discard, nil)))

	g := neat.NewGenome(1)
	g.Fitness = 1
	rep.PostEvaluate(nil, map[int]*neat.Genome{1: g}, neat.NewSpeciesSet(&neat.SpeciesSetConfig{}, nil), g)
	assert.Error(t, rep.Err())
}
