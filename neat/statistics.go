package neat

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
)

// StatisticsReporter gathers per-generation statistics for later analysis.
// It keeps a copy of the fittest genome of every generation and the member
// fitnesses of every species.
type StatisticsReporter struct {
	BaseReporter
	MostFitGenomes []*Genome
	// GenerationStatistics[generation][species key][genome key] = fitness
	GenerationStatistics []map[int]map[int]float64
}

func NewStatisticsReporter() *StatisticsReporter {
	return &StatisticsReporter{}
}

func (s *StatisticsReporter) PostEvaluate(_ *Config, _ map[int]*Genome, species *SpeciesSet, best *Genome) {
	s.MostFitGenomes = append(s.MostFitGenomes, best.Copy())

	speciesStats := make(map[int]map[int]float64, len(species.Species))
	for sid, sp := range species.Species {
		members := make(map[int]float64, len(sp.Members))
		for gid, g := range sp.Members {
			members[gid] = g.Fitness
		}
		speciesStats[sid] = members
	}
	s.GenerationStatistics = append(s.GenerationStatistics, speciesStats)
}

// Generations returns the number of evaluated generations recorded.
func (s *StatisticsReporter) Generations() int {
	return len(s.GenerationStatistics)
}

func (s *StatisticsReporter) getFitnessStat(f func([]float64) float64) []float64 {
	stat := make([]float64, 0, len(s.GenerationStatistics))
	for _, stats := range s.GenerationStatistics {
		var scores []float64
		for _, sid := range sortedMapKeys(stats) {
			members := stats[sid]
			for _, gid := range sortedMapKeys(members) {
				scores = append(scores, members[gid])
			}
		}
		stat = append(stat, f(scores))
	}
	return stat
}

// GetFitnessMean returns the mean fitness of every generation.
func (s *StatisticsReporter) GetFitnessMean() []float64 {
	return s.getFitnessStat(Mean)
}

// GetFitnessStdev returns the fitness standard deviation of every generation.
func (s *StatisticsReporter) GetFitnessStdev() []float64 {
	return s.getFitnessStat(Stdev)
}

// GetFitnessMedian returns the median fitness of every generation.
func (s *StatisticsReporter) GetFitnessMedian() []float64 {
	return s.getFitnessStat(Median)
}

// GetBestFitness returns the fitness of the fittest genome of every generation.
func (s *StatisticsReporter) GetBestFitness() []float64 {
	out := make([]float64, len(s.MostFitGenomes))
	for i, g := range s.MostFitGenomes {
		out[i] = g.Fitness
	}
	return out
}

// BestGenomes returns up to n of the most fit genomes ever seen, fittest first.
// A genome that led several generations appears once per generation.
func (s *StatisticsReporter) BestGenomes(n int) []*Genome {
	sorted := make([]*Genome, len(s.MostFitGenomes))
	copy(sorted, s.MostFitGenomes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Fitness > sorted[j].Fitness })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// BestUniqueGenomes is BestGenomes with duplicate genome keys removed.
func (s *StatisticsReporter) BestUniqueGenomes(n int) []*Genome {
	seen := make(map[int]bool)
	var unique []*Genome
	for _, g := range s.BestGenomes(len(s.MostFitGenomes)) {
		if seen[g.Key] {
			continue
		}
		seen[g.Key] = true
		unique = append(unique, g)
		if len(unique) == n {
			break
		}
	}
	return unique
}

// BestGenome returns the most fit genome ever seen, or nil before the first evaluation.
func (s *StatisticsReporter) BestGenome() *Genome {
	best := s.BestGenomes(1)
	if len(best) == 0 {
		return nil
	}
	return best[0]
}

// speciesKeys returns every species key that ever appeared, ascending.
func (s *StatisticsReporter) speciesKeys() []int {
	all := make(map[int]bool)
	for _, stats := range s.GenerationStatistics {
		for sid := range stats {
			all[sid] = true
		}
	}
	return sortedKeysOfSet(all)
}

// GetSpeciesSizes returns, per generation, the member count of every species
// that ever existed (0 where the species was absent).
func (s *StatisticsReporter) GetSpeciesSizes() [][]int {
	keys := s.speciesKeys()
	counts := make([][]int, 0, len(s.GenerationStatistics))
	for _, stats := range s.GenerationStatistics {
		row := make([]int, len(keys))
		for i, sid := range keys {
			row[i] = len(stats[sid])
		}
		counts = append(counts, row)
	}
	return counts
}

// GetSpeciesFitness returns, per generation, the mean member fitness of
// every species that ever existed (NaN where the species was absent).
func (s *StatisticsReporter) GetSpeciesFitness() [][]float64 {
	keys := s.speciesKeys()
	out := make([][]float64, 0, len(s.GenerationStatistics))
	for _, stats := range s.GenerationStatistics {
		row := make([]float64, len(keys))
		for i, sid := range keys {
			members, ok := stats[sid]
			if !ok || len(members) == 0 {
				row[i] = math.NaN()
				continue
			}
			fitnesses := make([]float64, 0, len(members))
			for _, gid := range sortedMapKeys(members) {
				fitnesses = append(fitnesses, members[gid])
			}
			row[i] = Mean(fitnesses)
		}
		out = append(out, row)
	}
	return out
}

// SaveGenomeFitness writes one "best average" row per generation.
func (s *StatisticsReporter) SaveGenomeFitness(path string, delimiter rune) error {
	best := s.GetBestFitness()
	avg := s.GetFitnessMean()
	rows := make([][]string, len(best))
	for i := range best {
		rows[i] = []string{formatFloat(best[i]), formatFloat(avg[i])}
	}
	return writeCSV(path, delimiter, rows)
}

// SaveSpeciesCount writes the species size table, one row per generation.
func (s *StatisticsReporter) SaveSpeciesCount(path string, delimiter rune) error {
	sizes := s.GetSpeciesSizes()
	rows := make([][]string, len(sizes))
	for i, row := range sizes {
		rows[i] = make([]string, len(row))
		for j, n := range row {
			rows[i][j] = strconv.Itoa(n)
		}
	}
	return writeCSV(path, delimiter, rows)
}

// SaveSpeciesFitness writes the species fitness table, with nullValue for
// absent species.
func (s *StatisticsReporter) SaveSpeciesFitness(path string, delimiter rune, nullValue string) error {
	fitness := s.GetSpeciesFitness()
	rows := make([][]string, len(fitness))
	for i, row := range fitness {
		rows[i] = make([]string, len(row))
		for j, f := range row {
			if math.IsNaN(f) {
				rows[i][j] = nullValue
			} else {
				rows[i][j] = formatFloat(f)
			}
		}
	}
	return writeCSV(path, delimiter, rows)
}

func writeCSV(path string, delimiter rune, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return f.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
