package neat

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// Reporter observes the evolution loop. Reporters must not modify the
// population, species or genomes they are handed.
type Reporter interface {
	StartGeneration(generation int)
	EndGeneration(config *Config, population map[int]*Genome, species *SpeciesSet)
	PostEvaluate(config *Config, population map[int]*Genome, species *SpeciesSet, best *Genome)
	PostReproduction(config *Config, population map[int]*Genome, species *SpeciesSet)
	CompleteExtinction()
	FoundSolution(config *Config, generation int, best *Genome)
	SpeciesStagnant(sid int, species *Species)
	Info(msg string)
}

// BaseReporter implements every Reporter method as a no-op. Embed it and
// override the callbacks of interest.
type BaseReporter struct{}

func (BaseReporter) StartGeneration(int)                                         {}
func (BaseReporter) EndGeneration(*Config, map[int]*Genome, *SpeciesSet)         {}
func (BaseReporter) PostEvaluate(*Config, map[int]*Genome, *SpeciesSet, *Genome) {}
func (BaseReporter) PostReproduction(*Config, map[int]*Genome, *SpeciesSet)      {}
func (BaseReporter) CompleteExtinction()                                         {}
func (BaseReporter) FoundSolution(*Config, int, *Genome)                         {}
func (BaseReporter) SpeciesStagnant(int, *Species)                               {}
func (BaseReporter) Info(string)                                                 {}

// ReporterSet fans every callback out to its reporters in insertion order.
type ReporterSet struct {
	reporters []Reporter
}

func (rs *ReporterSet) Add(r Reporter) {
	rs.reporters = append(rs.reporters, r)
}

// Remove detaches r; it is a no-op if r was never added.
func (rs *ReporterSet) Remove(r Reporter) {
	for i, x := range rs.reporters {
		if x == r {
			rs.reporters = append(rs.reporters[:i], rs.reporters[i+1:]...)
			return
		}
	}
}

func (rs *ReporterSet) Len() int {
	return len(rs.reporters)
}

func (rs *ReporterSet) StartGeneration(generation int) {
	for _, r := range rs.reporters {
		r.StartGeneration(generation)
	}
}

func (rs *ReporterSet) EndGeneration(config *Config, population map[int]*Genome, species *SpeciesSet) {
	for _, r := range rs.reporters {
		r.EndGeneration(config, population, species)
	}
}

func (rs *ReporterSet) PostEvaluate(config *Config, population map[int]*Genome, species *SpeciesSet, best *Genome) {
	for _, r := range rs.reporters {
		r.PostEvaluate(config, population, species, best)
	}
}

func (rs *ReporterSet) PostReproduction(config *Config, population map[int]*Genome, species *SpeciesSet) {
	for _, r := range rs.reporters {
		r.PostReproduction(config, population, species)
	}
}

func (rs *ReporterSet) CompleteExtinction() {
	for _, r := range rs.reporters {
		r.CompleteExtinction()
	}
}

func (rs *ReporterSet) FoundSolution(config *Config, generation int, best *Genome) {
	for _, r := range rs.reporters {
		r.FoundSolution(config, generation, best)
	}
}

func (rs *ReporterSet) SpeciesStagnant(sid int, species *Species) {
	for _, r := range rs.reporters {
		r.SpeciesStagnant(sid, species)
	}
}

func (rs *ReporterSet) Info(msg string) {
	for _, r := range rs.reporters {
		r.Info(msg)
	}
}

// --------------------------- StdOutReporter ---------------------------

// StdOutReporter prints human-readable progress for every generation.
type StdOutReporter struct {
	BaseReporter
	out               io.Writer
	showSpeciesDetail bool
	generation        int
	generationStart   time.Time
	generationTimes   []time.Duration
	numExtinctions    int
}

// NewStdOutReporter writes progress to out; showSpeciesDetail adds a
// per-species table after every generation.
func NewStdOutReporter(out io.Writer, showSpeciesDetail bool) *StdOutReporter {
	return &StdOutReporter{out: out, showSpeciesDetail: showSpeciesDetail}
}

func (r *StdOutReporter) StartGeneration(generation int) {
	r.generation = generation
	fmt.Fprintf(r.out, "\n ****** Running generation %d ****** \n\n", generation)
	r.generationStart = time.Now()
}

func (r *StdOutReporter) EndGeneration(_ *Config, population map[int]*Genome, species *SpeciesSet) {
	ng := len(population)
	ns := len(species.Species)
	if r.showSpeciesDetail {
		fmt.Fprintf(r.out, "Population of %d members in %d species:\n", ng, ns)
		fmt.Fprintln(r.out, "   ID   age  size   fitness   adj fit  stag")
		fmt.Fprintln(r.out, "  ====  ===  ====  =========  =======  ====")
		for _, sid := range species.Keys() {
			s := species.Species[sid]
			fmt.Fprintf(r.out, "  %4d  %3d  %4d  %9s  %7s  %4d\n",
				sid, r.generation-s.Created, len(s.Members),
				formatOptional(s.Fitness, "%.3f"), formatOptional(s.AdjustedFitness, "%.3f"),
				r.generation-s.LastImproved)
		}
	} else {
		fmt.Fprintf(r.out, "Population of %d members in %d species\n", ng, ns)
	}

	elapsed := time.Since(r.generationStart)
	r.generationTimes = append(r.generationTimes, elapsed)
	if len(r.generationTimes) > 10 {
		r.generationTimes = r.generationTimes[1:]
	}
	var total time.Duration
	for _, d := range r.generationTimes {
		total += d
	}
	average := total / time.Duration(len(r.generationTimes))
	fmt.Fprintf(r.out, "Total extinctions: %d\n", r.numExtinctions)
	if len(r.generationTimes) > 1 {
		fmt.Fprintf(r.out, "Generation time: %.3f sec (%.3f average)\n", elapsed.Seconds(), average.Seconds())
	} else {
		fmt.Fprintf(r.out, "Generation time: %.3f sec\n", elapsed.Seconds())
	}
}

func (r *StdOutReporter) PostEvaluate(_ *Config, population map[int]*Genome, species *SpeciesSet, best *Genome) {
	fitnesses := make([]float64, 0, len(population))
	for _, key := range sortedGenomeKeys(population) {
		fitnesses = append(fitnesses, population[key].Fitness)
	}
	bestSpecies, _ := species.GetSpeciesID(best.Key)
	nodes, conns := best.Size()
	fmt.Fprintf(r.out, "Population's average fitness: %3.5f stdev: %3.5f\n", Mean(fitnesses), Stdev(fitnesses))
	fmt.Fprintf(r.out, "Best fitness: %3.5f - size: (%d, %d) - species %d - id %d\n",
		best.Fitness, nodes, conns, bestSpecies, best.Key)
}

func (r *StdOutReporter) CompleteExtinction() {
	r.numExtinctions++
	fmt.Fprintln(r.out, "All species extinct.")
}

func (r *StdOutReporter) FoundSolution(_ *Config, generation int, best *Genome) {
	nodes, conns := best.Size()
	fmt.Fprintf(r.out, "\nBest individual in generation %d meets fitness threshold - complexity: (%d, %d)\n",
		generation, nodes, conns)
}

func (r *StdOutReporter) SpeciesStagnant(sid int, species *Species) {
	if r.showSpeciesDetail {
		fmt.Fprintf(r.out, "\nSpecies %d with %d members is stagnated: removing it\n", sid, len(species.Members))
	}
}

func (r *StdOutReporter) Info(msg string) {
	fmt.Fprintln(r.out, msg)
}

func formatOptional(v float64, format string) string {
	if math.IsNaN(v) {
		return "--"
	}
	return fmt.Sprintf(format, v)
}

func sortedGenomeKeys(population map[int]*Genome) []int {
	keys := make([]int, 0, len(population))
	for k := range population {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
