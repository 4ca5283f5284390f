package neat

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Reproduction handles the creation of new genomes, either from scratch or
// through crossover and mutation. It owns the genome and node key counters.
type Reproduction struct {
	GenomeIndexer Indexer       // next genome key, starting at 1
	NodeIndexer   Indexer       // next hidden node key, starting after the outputs
	Ancestors     map[int][]int // genome key -> parent keys

	config     *ReproductionConfig
	stagnation *Stagnation
	reporters  *ReporterSet
}

// NewReproduction creates a new reproduction manager.
func NewReproduction(config *Config, stagnation *Stagnation, reporters *ReporterSet) *Reproduction {
	return &Reproduction{
		GenomeIndexer: Indexer{Next: 1},
		NodeIndexer:   Indexer{Next: config.Genome.NumOutputs},
		Ancestors:     make(map[int][]int),
		config:        &config.Reproduction,
		stagnation:    stagnation,
		reporters:     reporters,
	}
}

// CreateNewPopulation creates popSize fresh genomes with keys from the genome indexer.
func (r *Reproduction) CreateNewPopulation(genomeConfig *GenomeConfig, popSize int, rng *rand.Rand) map[int]*Genome {
	newGenomes := make(map[int]*Genome, popSize)
	for i := 0; i < popSize; i++ {
		key := r.GenomeIndexer.NextKey()
		g := NewGenome(key)
		g.ConfigureNew(genomeConfig, rng, &r.NodeIndexer)
		newGenomes[key] = g
		r.Ancestors[key] = []int{}
	}
	return newGenomes
}

// Reproduce creates the next generation from the evaluated species set.
// Stagnant species are dropped and reported; the survivors keep their keys
// but lose their members, which are re-assigned by the next speciation.
// An empty map means every species went extinct.
func (r *Reproduction) Reproduce(config *Config, speciesSet *SpeciesSet, popSize, generation int, rng *rand.Rand) map[int]*Genome {
	var allFitnesses []float64
	var remainingSpecies []*Species
	for _, info := range r.stagnation.Update(speciesSet, generation) {
		if info.IsStagnant {
			r.reporters.SpeciesStagnant(info.SpeciesID, info.Species)
			continue
		}
		allFitnesses = append(allFitnesses, info.Species.GetFitnesses()...)
		remainingSpecies = append(remainingSpecies, info.Species)
	}

	if len(remainingSpecies) == 0 {
		speciesSet.Species = make(map[int]*Species)
		return make(map[int]*Genome)
	}

	// Fitness sharing: each species is scored by its mean member fitness,
	// rescaled against the whole surviving population.
	minFitness := MinFloat(allFitnesses)
	maxFitness := MaxFloat(allFitnesses)
	fitnessRange := math.Max(1.0, maxFitness-minFitness)

	adjustedFitnesses := make([]float64, len(remainingSpecies))
	previousSizes := make([]int, len(remainingSpecies))
	for i, sp := range remainingSpecies {
		sp.AdjustedFitness = (Mean(sp.GetFitnesses()) - minFitness) / fitnessRange
		adjustedFitnesses[i] = sp.AdjustedFitness
		previousSizes[i] = len(sp.Members)
	}
	r.reporters.Info(fmt.Sprintf("Average adjusted fitness: %.3f", Mean(adjustedFitnesses)))

	minSpeciesSize := max(r.config.MinSpeciesSize, r.config.Elitism)
	spawnAmounts := computeSpawn(adjustedFitnesses, previousSizes, popSize, minSpeciesSize)

	newPopulation := make(map[int]*Genome, popSize)
	speciesSet.Species = make(map[int]*Species, len(remainingSpecies))
	for i, sp := range remainingSpecies {
		spawn := max(spawnAmounts[i], r.config.Elitism)

		oldMembers := make([]*Genome, 0, len(sp.Members))
		for _, k := range sortedGenomeKeys(sp.Members) {
			oldMembers = append(oldMembers, sp.Members[k])
		}
		sort.SliceStable(oldMembers, func(i, j int) bool {
			return oldMembers[i].Fitness > oldMembers[j].Fitness
		})
		sp.Members = make(map[int]*Genome)
		speciesSet.Species[sp.Key] = sp

		for j := 0; j < r.config.Elitism && j < len(oldMembers); j++ {
			newPopulation[oldMembers[j].Key] = oldMembers[j]
			spawn--
		}
		if spawn <= 0 {
			continue
		}

		cutoff := int(math.Ceil(r.config.SurvivalThreshold * float64(len(oldMembers))))
		cutoff = min(max(cutoff, 2), len(oldMembers))
		parents := oldMembers[:cutoff]

		for ; spawn > 0; spawn-- {
			parent1 := parents[rng.IntN(len(parents))]
			parent2 := parents[rng.IntN(len(parents))]

			childKey := r.GenomeIndexer.NextKey()
			child := NewGenome(childKey)
			child.ConfigureCrossover(parent1, parent2, rng)
			child.Mutate(&config.Genome, rng, &r.NodeIndexer)

			newPopulation[childKey] = child
			r.Ancestors[childKey] = []int{parent1.Key, parent2.Key}
		}
	}
	return newPopulation
}

// computeSpawn decides how many offspring each species gets. Species move
// halfway from their previous size towards the size their adjusted fitness
// earns them, then the amounts are normalised to popSize. The result may
// differ slightly from popSize because of rounding and minimum sizes.
func computeSpawn(adjustedFitnesses []float64, previousSizes []int, popSize, minSpeciesSize int) []int {
	afSum := Sum(adjustedFitnesses)

	spawnAmounts := make([]int, len(adjustedFitnesses))
	totalSpawn := 0
	for i, af := range adjustedFitnesses {
		ps := previousSizes[i]
		s := float64(minSpeciesSize)
		if afSum > 0 {
			s = math.Max(s, af/afSum*float64(popSize))
		}

		d := (s - float64(ps)) * 0.5
		c := roundHalfEven(d)
		spawn := ps
		switch {
		case c != 0:
			spawn += c
		case d > 0:
			spawn++
		case d < 0:
			spawn--
		}
		spawnAmounts[i] = spawn
		totalSpawn += spawn
	}

	if totalSpawn <= 0 {
		for i := range spawnAmounts {
			spawnAmounts[i] = minSpeciesSize
		}
		return spawnAmounts
	}

	norm := float64(popSize) / float64(totalSpawn)
	for i, n := range spawnAmounts {
		spawnAmounts[i] = max(minSpeciesSize, roundHalfEven(float64(n)*norm))
	}
	return spawnAmounts
}
