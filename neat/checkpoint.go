package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
)

// populationSaveData holds the parts of a Population needed to resume it.
// The Config is not saved; it is reloaded from the original file.
type populationSaveData struct {
	Population   map[int]*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction // indexers and ancestors
	Generation   int
	BestGenome   *Genome
	Seed         int64
	RandState    []byte
}

// SaveCheckpoint writes the population state, including the random source,
// to a gzip-compressed gob file.
func (p *Population) SaveCheckpoint(filePath string) error {
	randState, err := p.pcg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal random state: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	saveData := populationSaveData{
		Population:   p.Population,
		SpeciesSet:   p.SpeciesSet,
		Reproduction: p.Reproduction,
		Generation:   p.Generation,
		BestGenome:   p.BestGenome,
		Seed:         p.seed,
		RandState:    randState,
	}
	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint '%s': %w", filePath, err)
	}
	return file.Close()
}

// RestoreCheckpoint rebuilds a Population from a checkpoint file and the
// configuration the run was started with. The restored population continues
// exactly where the saved one would have.
func RestoreCheckpoint(checkpointPath string, config *Config, opts ...Option) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	var saveData populationSaveData
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}
	if len(saveData.Population) == 0 || saveData.SpeciesSet == nil || saveData.Reproduction == nil {
		return nil, fmt.Errorf("checkpoint '%s' is incomplete", checkpointPath)
	}

	opts = append(opts, WithSeed(saveData.Seed), withoutInitialPopulation())
	p, err := NewPopulation(config, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.pcg.UnmarshalBinary(saveData.RandState); err != nil {
		return nil, fmt.Errorf("failed to restore random state: %w", err)
	}

	for _, g := range saveData.Population {
		ensureGenomeMaps(g)
	}
	p.Population = saveData.Population
	p.Generation = saveData.Generation

	// Gob does not preserve pointer identity; point species members and
	// representatives back at the genomes of the restored population.
	p.SpeciesSet.Indexer = saveData.SpeciesSet.Indexer
	p.SpeciesSet.GenomeToSpecies = saveData.SpeciesSet.GenomeToSpecies
	if p.SpeciesSet.GenomeToSpecies == nil {
		p.SpeciesSet.GenomeToSpecies = make(map[int]int)
	}
	for sid, s := range saveData.SpeciesSet.Species {
		members := make(map[int]*Genome, len(s.Members))
		for gid := range s.Members {
			g, ok := p.Population[gid]
			if !ok {
				return nil, fmt.Errorf("checkpoint species %d references unknown genome %d", sid, gid)
			}
			members[gid] = g
		}
		s.Members = members
		if s.Representative != nil {
			if g, ok := p.Population[s.Representative.Key]; ok {
				s.Representative = g
			} else {
				ensureGenomeMaps(s.Representative)
			}
		}
		if s.FitnessHistory == nil {
			s.FitnessHistory = []float64{}
		}
		p.SpeciesSet.Species[sid] = s
	}

	p.Reproduction.GenomeIndexer = saveData.Reproduction.GenomeIndexer
	p.Reproduction.NodeIndexer = saveData.Reproduction.NodeIndexer
	if saveData.Reproduction.Ancestors != nil {
		p.Reproduction.Ancestors = saveData.Reproduction.Ancestors
	}

	if best := saveData.BestGenome; best != nil {
		if g, ok := p.Population[best.Key]; ok {
			best = g
		} else {
			ensureGenomeMaps(best)
		}
		p.BestGenome = best
	}

	p.logger.Debug("checkpoint restored", "path", checkpointPath, "generation", p.Generation)
	return p, nil
}

func ensureGenomeMaps(g *Genome) {
	if g.Nodes == nil {
		g.Nodes = make(map[int]*NodeGene)
	}
	if g.Connections == nil {
		g.Connections = make(map[ConnectionKey]*ConnectionGene)
	}
}

// --------------------------- Checkpointer ---------------------------

// Checkpointer saves the population every few generations. A checkpoint
// named prefix+N holds the state at the start of generation N, before
// evaluation, so restoring it replays generation N onward.
type Checkpointer struct {
	BaseReporter
	population *Population
	every      int
	prefix     string
	logger     *slog.Logger
	saved      []string
	err        error
}

// NewCheckpointer returns a reporter that checkpoints pop every `every`
// generations to files named prefix followed by the generation number and ".gz".
func NewCheckpointer(pop *Population, every int, prefix string) *Checkpointer {
	return &Checkpointer{population: pop, every: every, prefix: prefix, logger: pop.logger}
}

// Path returns the checkpoint file name for a generation.
func (c *Checkpointer) Path(generation int) string {
	return fmt.Sprintf("%s%d.gz", c.prefix, generation)
}

func (c *Checkpointer) StartGeneration(generation int) {
	if c.every <= 0 || generation == 0 || generation%c.every != 0 {
		return
	}
	path := c.Path(generation)
	if err := c.population.SaveCheckpoint(path); err != nil {
		c.logger.Error("checkpoint failed", "path", path, "err", err)
		if c.err == nil {
			c.err = err
		}
		return
	}
	c.saved = append(c.saved, path)
	c.logger.Info("checkpoint saved", "path", path, "generation", generation)
}

// Saved lists the checkpoint files written so far.
func (c *Checkpointer) Saved() []string { return c.saved }

// Err returns the first save error, if any.
func (c *Checkpointer) Err() error { return c.err }
