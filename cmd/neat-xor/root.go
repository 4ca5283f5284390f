package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucadivit/neat-gdg/internal/metrics"
	"github.com/lucadivit/neat-gdg/internal/storage"
	"github.com/lucadivit/neat-gdg/internal/xor"
	"github.com/lucadivit/neat-gdg/neat"
	"github.com/lucadivit/neat-gdg/neat/nn"
)

type runFlags struct {
	configPath       string
	generations      int
	seed             int64
	randomSeed       bool
	outDir           string
	speciesDetail    bool
	quiet            bool
	checkpointEvery  int
	checkpointPrefix string
	resume           string
	statsDB          string
	metricsFile      string
	logLevel         string
}

func newRootCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "neat-xor",
		Short: "Evolve a NEAT network that solves XOR with a heaviside activation",
		Long: `neat-xor runs NEAT on the four XOR cases, scoring each genome by how many
cases its network gets exactly right. The winner is printed, saved as a gob
file that can be reloaded without the genome or config, and drawn as a PNG.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvolution(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", filepath.Join("data", "neat", "config_neat_xor_gdg"), "NEAT config file")
	fl.IntVar(&f.generations, "generations", xor.DefaultGenerations, "maximum number of generations")
	fl.Int64Var(&f.seed, "seed", xor.DefaultSeed, "random seed")
	fl.BoolVar(&f.randomSeed, "random-seed", false, "draw a fresh seed instead of --seed")
	fl.StringVar(&f.outDir, "out-dir", filepath.Join("data", "neat"), "directory for the winner network and diagrams")
	fl.BoolVar(&f.speciesDetail, "species-detail", true, "print the per-species table every generation")
	fl.BoolVar(&f.quiet, "quiet", false, "suppress per-generation progress")
	fl.IntVar(&f.checkpointEvery, "checkpoint-every", 0, "save a checkpoint every N generations (0 disables)")
	fl.StringVar(&f.checkpointPrefix, "checkpoint-prefix", filepath.Join("data", "neat", "neat-checkpoint-"), "checkpoint file prefix")
	fl.StringVar(&f.resume, "resume", "", "resume from a checkpoint file")
	fl.StringVar(&f.statsDB, "stats-db", "", "record the run in this SQLite database")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fl.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(newReplayCmd())
	return cmd
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func runEvolution(ctx context.Context, stdout, stderr io.Writer, f *runFlags) error {
	logger, err := newLogger(stderr, f.logLevel)
	if err != nil {
		return err
	}

	cfg, err := neat.LoadConfig(f.configPath)
	if err != nil {
		return err
	}

	seed := f.seed
	if f.randomSeed {
		seed = rand.Int64()
	}

	var pop *neat.Population
	if f.resume != "" {
		pop, err = neat.RestoreCheckpoint(f.resume, cfg, neat.WithLogger(logger))
		if err == nil {
			seed = pop.Seed()
		}
	} else {
		pop, err = xor.NewEngine(cfg, seed, logger)
	}
	if err != nil {
		return err
	}
	logger.Info("starting evolution", "config", f.configPath, "seed", seed, "generations", f.generations, "start", pop.Generation)

	var sinks []neat.Reporter
	var checkpointer *neat.Checkpointer
	if f.checkpointEvery > 0 {
		if err := os.MkdirAll(filepath.Dir(f.checkpointPrefix), 0o755); err != nil {
			return err
		}
		checkpointer = neat.NewCheckpointer(pop, f.checkpointEvery, f.checkpointPrefix)
		sinks = append(sinks, checkpointer)
	}

	var store *storage.RunStore
	var recorder *storage.Reporter
	if f.statsDB != "" {
		store = storage.NewRunStore(f.statsDB)
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("failed to open stats db: %w", err)
		}
		defer store.Close()
		runID, err := store.CreateRun(ctx, seed, f.configPath)
		if err != nil {
			return err
		}
		recorder = storage.NewReporter(ctx, store, runID, logger)
		sinks = append(sinks, recorder)
		logger.Info("recording run", "db", f.statsDB, "run", runID)
	}

	var gauges *metrics.Reporter
	if f.metricsFile != "" {
		gauges = metrics.NewReporter()
		sinks = append(sinks, gauges)
	}

	var progress io.Writer
	if !f.quiet {
		progress = stdout
	}
	result, err := xor.Evolve(ctx, pop, xor.Options{
		Generations:   f.generations,
		Progress:      progress,
		SpeciesDetail: f.speciesDetail,
		Sinks:         sinks,
		Logger:        logger,
	})
	if gauges != nil {
		if werr := gauges.WriteTextfile(f.metricsFile); werr != nil {
			logger.Error("failed to write metrics", "path", f.metricsFile, "err", werr)
		}
	}
	if err != nil {
		if recorder != nil {
			_ = store.FinishRun(ctx, recorder.RunID(), result.State.String(), 0, 0, nil)
		}
		return err
	}

	fmt.Fprintf(stdout, "\nBest genome:\n%s\n", result.Winner)

	net, err := nn.CreateFeedForwardNetwork(result.Winner, &cfg.Genome)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "\nOutput:")
	if err := printCases(stdout, net); err != nil {
		return err
	}

	paths := xor.ArtifactsIn(f.outDir)
	if _, err := xor.Export(result, cfg, seed, paths); err != nil {
		return err
	}

	if recorder != nil {
		var buf bytes.Buffer
		if err := net.Encode(&buf); err != nil {
			return err
		}
		if err := store.FinishRun(ctx, recorder.RunID(), result.State.String(), result.Winner.Key, result.Winner.Fitness, buf.Bytes()); err != nil {
			return fmt.Errorf("failed to record winner: %w", err)
		}
		if err := recorder.Err(); err != nil {
			logger.Warn("some generations were not recorded", "err", err)
		}
	}
	if checkpointer != nil && checkpointer.Err() != nil {
		logger.Warn("some checkpoints were not written", "err", checkpointer.Err())
	}

	logger.Info("artifacts written", "network", paths.NetworkPath, "diagram", paths.DiagramPath,
		"fitness_plot", paths.FitnessPlotPath, "summary", paths.SummaryPath, "fitness_csv", paths.FitnessCSVPath,
		"speciation_csv", paths.SpeciesCountCSVPath, "species_fitness_csv", paths.SpeciesFitnessCSVPath)
	return nil
}

func printCases(w io.Writer, net *nn.FeedForwardNetwork) error {
	outputs, err := xor.Evaluate(net)
	if err != nil {
		return err
	}
	for _, o := range outputs {
		fmt.Fprintf(w, "  input %v, expected output %v, got %v\n", o.Inputs, o.Expected, o.Got)
	}
	return nil
}
