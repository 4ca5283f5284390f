// Package metrics exposes evolution progress as Prometheus metrics.
package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lucadivit/neat-gdg/neat"
)

const namespace = "neat_xor"

// Reporter updates gauges and counters in its own registry on every
// generation. It never touches the population.
type Reporter struct {
	neat.BaseReporter

	registry *prometheus.Registry

	generation  prometheus.Gauge
	bestFitness prometheus.Gauge
	meanFitness prometheus.Gauge
	stdevFit    prometheus.Gauge
	species     prometheus.Gauge
	population  prometheus.Gauge
	solved      prometheus.Gauge
	stagnant    prometheus.Counter
	extinctions prometheus.Counter
}

func NewReporter() *Reporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}
	return &Reporter{
		registry:    reg,
		generation:  gauge("generation", "Current generation number."),
		bestFitness: gauge("best_fitness", "Fitness of the best genome of the last evaluated generation."),
		meanFitness: gauge("mean_fitness", "Mean fitness of the last evaluated generation."),
		stdevFit:    gauge("fitness_stdev", "Fitness standard deviation of the last evaluated generation."),
		species:     gauge("species", "Number of species after the last speciation."),
		population:  gauge("population", "Number of genomes in the last evaluated generation."),
		solved:      gauge("solved", "1 once a genome met the fitness threshold."),
		stagnant: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stagnant_species_total",
			Help:      "Species removed for stagnation.",
		}),
		extinctions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extinctions_total",
			Help:      "Complete extinctions.",
		}),
	}
}

// Registry returns the registry holding the reporter's metrics.
func (r *Reporter) Registry() *prometheus.Registry { return r.registry }

func (r *Reporter) StartGeneration(generation int) {
	r.generation.Set(float64(generation))
}

func (r *Reporter) PostEvaluate(_ *neat.Config, population map[int]*neat.Genome, _ *neat.SpeciesSet, best *neat.Genome) {
	keys := make([]int, 0, len(population))
	for k := range population {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	fitnesses := make([]float64, 0, len(keys))
	for _, k := range keys {
		fitnesses = append(fitnesses, population[k].Fitness)
	}
	r.bestFitness.Set(best.Fitness)
	r.meanFitness.Set(neat.Mean(fitnesses))
	r.stdevFit.Set(neat.Stdev(fitnesses))
	r.population.Set(float64(len(population)))
}

func (r *Reporter) EndGeneration(_ *neat.Config, _ map[int]*neat.Genome, species *neat.SpeciesSet) {
	r.species.Set(float64(len(species.Species)))
}

// FoundSolution marks the run solved. With no_fitness_termination the engine
// also calls it when the generation limit is reached; then the best genome
// must itself reach the threshold.
func (r *Reporter) FoundSolution(config *neat.Config, _ int, best *neat.Genome) {
	if config != nil && config.Neat.NoFitnessTermination {
		if best == nil || best.Fitness < config.Neat.FitnessThreshold {
			return
		}
	}
	r.solved.Set(1)
}

func (r *Reporter) SpeciesStagnant(int, *neat.Species) {
	r.stagnant.Inc()
}

func (r *Reporter) CompleteExtinction() {
	r.extinctions.Inc()
}

// WriteTextfile writes the current values in the node exporter textfile format.
func (r *Reporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
