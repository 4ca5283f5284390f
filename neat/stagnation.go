package neat

import (
	"fmt"
	"math"
	"sort"
)

// Stagnation manages the detection of stagnant species.
type Stagnation struct {
	Config             *StagnationConfig
	SpeciesFitnessFunc func([]float64) float64
}

// NewStagnation creates a new stagnation manager.
func NewStagnation(config *StagnationConfig) (*Stagnation, error) {
	fn, ok := StatFunctions[config.SpeciesFitnessFunc]
	if !ok {
		return nil, fmt.Errorf("invalid species_fitness_func in config: %s", config.SpeciesFitnessFunc)
	}

	return &Stagnation{
		Config:             config,
		SpeciesFitnessFunc: fn,
	}, nil
}

// StagnationInfo holds the results of the stagnation update for a single species.
type StagnationInfo struct {
	SpeciesID  int
	Species    *Species
	IsStagnant bool
}

// Update recomputes each species' fitness, appends it to the species'
// history and decides which species are stagnant. The result is ordered by
// ascending species fitness (ties by species key). The species_elitism
// fittest species are never stagnant, and stagnation stops marking species
// once only species_elitism non-stagnant ones would remain.
func (s *Stagnation) Update(speciesSet *SpeciesSet, generation int) []StagnationInfo {
	speciesData := make([]*Species, 0, len(speciesSet.Species))

	for _, sid := range speciesSet.Keys() {
		sp := speciesSet.Species[sid]

		previousMax := -math.MaxFloat64
		if len(sp.FitnessHistory) > 0 {
			previousMax = MaxFloat(sp.FitnessHistory)
		}

		sp.Fitness = s.SpeciesFitnessFunc(sp.GetFitnesses())
		sp.FitnessHistory = append(sp.FitnessHistory, sp.Fitness)
		sp.AdjustedFitness = math.NaN()
		if sp.Fitness > previousMax {
			sp.LastImproved = generation
		}

		speciesData = append(speciesData, sp)
	}

	sort.SliceStable(speciesData, func(i, j int) bool {
		return speciesData[i].Fitness < speciesData[j].Fitness
	})

	result := make([]StagnationInfo, len(speciesData))
	numNonStagnant := len(speciesData)
	for i, sp := range speciesData {
		stagnantTime := generation - sp.LastImproved
		isStagnant := false
		if numNonStagnant > s.Config.SpeciesElitism {
			isStagnant = stagnantTime >= s.Config.MaxStagnation
		}
		if len(speciesData)-i <= s.Config.SpeciesElitism {
			isStagnant = false
		}
		if isStagnant {
			numNonStagnant--
		}
		result[i] = StagnationInfo{SpeciesID: sp.Key, Species: sp, IsStagnant: isStagnant}
	}
	return result
}
