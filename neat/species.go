package neat

import (
	"fmt"
	"math"
	"sort"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	Key             int
	Created         int // Generation the species first appeared in.
	LastImproved    int // Last generation its fitness improved.
	Representative  *Genome
	Members         map[int]*Genome
	Fitness         float64 // NaN until stagnation assigns it
	AdjustedFitness float64 // NaN until reproduction assigns it
	FitnessHistory  []float64
}

// NewSpecies creates a new, empty species.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:             key,
		Created:         generation,
		LastImproved:    generation,
		Members:         make(map[int]*Genome),
		Fitness:         math.NaN(),
		AdjustedFitness: math.NaN(),
		FitnessHistory:  []float64{},
	}
}

// Update replaces the representative and the member set.
func (s *Species) Update(representative *Genome, members map[int]*Genome) {
	s.Representative = representative
	s.Members = members
}

// GetFitnesses returns member fitness values ordered by genome key.
func (s *Species) GetFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, k := range sortedGenomeKeys(s.Members) {
		fitnesses = append(fitnesses, s.Members[k].Fitness)
	}
	return fitnesses
}

// --------------------------- GenomeDistanceCache ---------------------------

// GenomeDistanceCache memoises pairwise genome distances for one speciation pass.
type GenomeDistanceCache struct {
	distances map[[2]int]float64
	config    *GenomeConfig
	Hits      int
	Misses    int
}

func NewGenomeDistanceCache(config *GenomeConfig) *GenomeDistanceCache {
	return &GenomeDistanceCache{
		distances: make(map[[2]int]float64),
		config:    config,
	}
}

// Distance calculates or retrieves the distance between two genomes.
func (dc *GenomeDistanceCache) Distance(genome1, genome2 *Genome) float64 {
	key := [2]int{genome1.Key, genome2.Key}
	if d, ok := dc.distances[key]; ok {
		dc.Hits++
		return d
	}
	dc.Misses++
	d := genome1.Distance(genome2, dc.config)
	dc.distances[key] = d
	dc.distances[[2]int{genome2.Key, genome1.Key}] = d
	return d
}

// Values returns every cached distance, each unordered pair once, ordered by pair.
func (dc *GenomeDistanceCache) Values() []float64 {
	pairs := make([][2]int, 0, len(dc.distances)/2)
	for k := range dc.distances {
		if k[0] <= k[1] {
			pairs = append(pairs, k)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	values := make([]float64, len(pairs))
	for i, p := range pairs {
		values[i] = dc.distances[p]
	}
	return values
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species         map[int]*Species
	GenomeToSpecies map[int]int
	Indexer         Indexer // next species key, starting at 1

	config    *SpeciesSetConfig
	reporters *ReporterSet
}

// NewSpeciesSet creates a new species set manager.
func NewSpeciesSet(config *SpeciesSetConfig, reporters *ReporterSet) *SpeciesSet {
	return &SpeciesSet{
		Species:         make(map[int]*Species),
		GenomeToSpecies: make(map[int]int),
		Indexer:         Indexer{Next: 1},
		config:          config,
		reporters:       reporters,
	}
}

// Keys returns species keys in ascending order.
func (ss *SpeciesSet) Keys() []int {
	keys := make([]int, 0, len(ss.Species))
	for k := range ss.Species {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Speciate partitions the population into species based on genetic distance.
// Each existing species first adopts the closest unspeciated genome to its
// old representative; the remaining genomes join the closest species whose
// representative is within the compatibility threshold, or found a new one.
func (ss *SpeciesSet) Speciate(config *Config, population map[int]*Genome, generation int) error {
	if len(population) == 0 {
		return fmt.Errorf("cannot speciate an empty population")
	}

	threshold := ss.config.CompatibilityThreshold
	distances := NewGenomeDistanceCache(&config.Genome)

	unspeciated := make(map[int]bool, len(population))
	for k := range population {
		unspeciated[k] = true
	}
	newRepresentatives := make(map[int]int) // species key -> genome key
	newMembers := make(map[int][]int)

	for _, sid := range ss.Keys() {
		if len(unspeciated) == 0 {
			break
		}
		s := ss.Species[sid]
		bestKey, bestDist := -1, math.Inf(1)
		for _, gid := range sortedKeysOfSet(unspeciated) {
			d := distances.Distance(s.Representative, population[gid])
			if d < bestDist {
				bestKey, bestDist = gid, d
			}
		}
		newRepresentatives[sid] = bestKey
		newMembers[sid] = []int{bestKey}
		delete(unspeciated, bestKey)
	}

	for _, gid := range sortedKeysOfSet(unspeciated) {
		g := population[gid]

		bestSID, bestDist := -1, math.Inf(1)
		for _, sid := range sortedMapKeys(newRepresentatives) {
			rep := population[newRepresentatives[sid]]
			d := distances.Distance(rep, g)
			if d < threshold && d < bestDist {
				bestSID, bestDist = sid, d
			}
		}

		if bestSID != -1 {
			newMembers[bestSID] = append(newMembers[bestSID], gid)
		} else {
			sid := ss.Indexer.NextKey()
			newRepresentatives[sid] = gid
			newMembers[sid] = []int{gid}
		}
	}

	ss.GenomeToSpecies = make(map[int]int, len(population))
	newSpecies := make(map[int]*Species, len(newRepresentatives))
	for sid, rid := range newRepresentatives {
		s, ok := ss.Species[sid]
		if !ok {
			s = NewSpecies(sid, generation)
		}
		members := make(map[int]*Genome, len(newMembers[sid]))
		for _, gid := range newMembers[sid] {
			members[gid] = population[gid]
			ss.GenomeToSpecies[gid] = sid
		}
		s.Update(population[rid], members)
		newSpecies[sid] = s
	}
	ss.Species = newSpecies

	if ss.reporters != nil {
		values := distances.Values()
		ss.reporters.Info(fmt.Sprintf("Mean genetic distance %.3f, standard deviation %.3f", Mean(values), Stdev(values)))
	}
	return nil
}

// GetSpeciesID returns the species ID for a given genome ID.
func (ss *SpeciesSet) GetSpeciesID(genomeID int) (int, bool) {
	sid, exists := ss.GenomeToSpecies[genomeID]
	return sid, exists
}

// GetSpecies returns the Species object for a given genome ID.
func (ss *SpeciesSet) GetSpecies(genomeID int) (*Species, bool) {
	sid, exists := ss.GenomeToSpecies[genomeID]
	if !exists {
		return nil, false
	}
	s, exists := ss.Species[sid]
	return s, exists
}

func sortedKeysOfSet(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedMapKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
