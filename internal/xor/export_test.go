package xor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lucadivit/neat-gdg/neat"
	"github.com/lucadivit/neat-gdg/neat/nn"
)

func TestExportRoundTrip(t *testing.T) {
	cfg := loadConfig(t)
	winner := xorGenome(12)
	winner.Fitness = 1

	stats := neat.NewStatisticsReporter()
	stats.PostEvaluate(cfg, map[int]*neat.Genome{12: winner}, neat.NewSpeciesSet(&cfg.SpeciesSet, nil), winner)
	res := &Result{Winner: winner, Stats: stats, State: neat.TerminatedByThreshold}

	paths := ArtifactsIn(filepath.Join(t.TempDir(), "out"))
	_, err := Export(res, cfg, 99, paths)
	require.NoError(t, err)

	// The saved network runs on its own.
	loaded, err := nn.Load(paths.NetworkPath)
	require.NoError(t, err)
	outputs, err := Evaluate(loaded)
	require.NoError(t, err)
	require.Len(t, outputs, 4)
	for _, o := range outputs {
		assert.Equal(t, o.Expected, o.Got, "inputs %v", o.Inputs)
	}

	data, err := os.ReadFile(paths.SummaryPath)
	require.NoError(t, err)
	var summary Summary
	require.NoError(t, yaml.Unmarshal(data, &summary))
	assert.Equal(t, int64(99), summary.Seed)
	assert.Equal(t, "TerminatedByThreshold", summary.State)
	assert.Equal(t, 12, summary.WinnerKey)
	assert.Equal(t, 1, summary.Generations)
	assert.Equal(t, 3, summary.Nodes)
	assert.Equal(t, 6, summary.Connections)
	assert.Len(t, summary.Cases, 4)

	info, err := os.Stat(paths.DiagramPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	history, err := os.ReadFile(paths.FitnessCSVPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(history), "1,"), "fitness history %q", history)
	assert.FileExists(t, paths.SpeciesCountCSVPath)
	assert.FileExists(t, paths.SpeciesFitnessCSVPath)
}

func TestExportWithoutStats(t *testing.T) {
	cfg := loadConfig(t)
	dir := t.TempDir()
	paths := ArtifactsIn(dir)

	_, err := Export(&Result{Winner: xorGenome(1)}, cfg, 1, paths)
	require.NoError(t, err)
	assert.FileExists(t, paths.NetworkPath)
	assert.FileExists(t, paths.DiagramPath)
	assert.NoFileExists(t, paths.SummaryPath)
	assert.NoFileExists(t, paths.FitnessCSVPath)
	assert.NoFileExists(t, paths.SpeciesCountCSVPath)
	assert.NoFileExists(t, paths.SpeciesFitnessCSVPath)
}

func TestExportWriteFailure(t *testing.T) {
	cfg := loadConfig(t)
	res := &Result{Winner: xorGenome(1)}

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err := Export(res, cfg, 1, ArtifactsIn(filepath.Join(file, "out")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")

	// The network is written before the diagram fails.
	dir := t.TempDir()
	paths := ArtifactsIn(dir)
	paths.DiagramPath = filepath.Join(dir, "taken")
	require.NoError(t, os.Mkdir(paths.DiagramPath, 0o755))
	_, err = Export(res, cfg, 1, paths)
	assert.Error(t, err)
	assert.FileExists(t, paths.NetworkPath)

	dir = t.TempDir()
	paths = ArtifactsIn(dir)
	require.NoError(t, os.Mkdir(paths.NetworkPath, 0o755))
	_, err = Export(res, cfg, 1, paths)
	assert.Error(t, err)
	assert.NoFileExists(t, paths.DiagramPath)
}

func TestExportNoWinner(t *testing.T) {
	cfg := loadConfig(t)
	_, err := Export(&Result{}, cfg, 1, ArtifactsIn(t.TempDir()))
	assert.Error(t, err)
}
