package neat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
)

var (
	// ErrCompleteExtinction is returned when every species dies out and
	// reset_on_extinction is disabled.
	ErrCompleteExtinction = errors.New("neat: complete extinction")
	// ErrNoFitness is returned when the fitness function leaves a genome unevaluated.
	ErrNoFitness = errors.New("neat: genome has no fitness")
)

// FitnessFunc assigns a Fitness to every genome it is given. Genomes are
// passed in ascending key order.
type FitnessFunc func(genomes []*Genome, config *Config) error

// State is the lifecycle phase of a Population.
type State int

const (
	Initializing State = iota
	EvaluatingGeneration
	SelectingAndReproducing
	TerminatedByThreshold
	TerminatedByGenerationLimit
	Extinct
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case EvaluatingGeneration:
		return "EvaluatingGeneration"
	case SelectingAndReproducing:
		return "SelectingAndReproducing"
	case TerminatedByThreshold:
		return "TerminatedByThreshold"
	case TerminatedByGenerationLimit:
		return "TerminatedByGenerationLimit"
	case Extinct:
		return "Extinct"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further generation will run.
func (s State) Terminal() bool {
	return s == TerminatedByThreshold || s == TerminatedByGenerationLimit || s == Extinct
}

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Config       *Config
	Population   map[int]*Genome // Current generation of genomes (maps genome key -> genome)
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Generation   int
	BestGenome   *Genome // Best genome found so far

	reporters *ReporterSet
	pcg       *rand.PCG
	rng       *rand.Rand
	seed      int64
	state     State
	logger    *slog.Logger
}

// Option customises NewPopulation.
type Option func(*options)

type options struct {
	seed    int64
	seeded  bool
	logger  *slog.Logger
	restore bool
}

// WithSeed fixes the random source so that equal seeds give equal runs.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// withoutInitialPopulation is used when restoring from a checkpoint.
func withoutInitialPopulation() Option {
	return func(o *options) {
		o.restore = true
	}
}

// pcgStream is the fixed stream selector paired with the user seed.
const pcgStream = 0x9e3779b97f4a7c15

// NewPopulation creates a new Population instance.
// It initializes and speciates the first generation of genomes.
func NewPopulation(config *Config, opts ...Option) (*Population, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = rand.Int64()
	}

	if err := config.Genome.Validate(); err != nil {
		return nil, err
	}
	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to create stagnation manager: %w", err)
	}

	pcg := rand.NewPCG(uint64(o.seed), pcgStream)
	reporters := &ReporterSet{}
	p := &Population{
		Config:       config,
		SpeciesSet:   NewSpeciesSet(&config.SpeciesSet, reporters),
		Reproduction: NewReproduction(config, stagnation, reporters),
		Stagnation:   stagnation,
		reporters:    reporters,
		pcg:          pcg,
		rng:          rand.New(pcg),
		seed:         o.seed,
		state:        Initializing,
		logger:       o.logger,
	}
	if o.restore {
		return p, nil
	}

	p.Population = p.Reproduction.CreateNewPopulation(&config.Genome, config.Neat.PopSize, p.rng)
	if err := p.SpeciesSet.Speciate(config, p.Population, p.Generation); err != nil {
		return nil, fmt.Errorf("initial speciation failed: %w", err)
	}
	p.logger.Debug("population created",
		"seed", o.seed, "pop_size", len(p.Population), "species", len(p.SpeciesSet.Species))
	return p, nil
}

// Seed returns the seed of the population's random source.
func (p *Population) Seed() int64 { return p.seed }

// State returns the current lifecycle phase.
func (p *Population) State() State { return p.state }

func (p *Population) AddReporter(r Reporter)    { p.reporters.Add(r) }
func (p *Population) RemoveReporter(r Reporter) { p.reporters.Remove(r) }

// Genomes returns the current generation ordered by genome key.
func (p *Population) Genomes() []*Genome {
	genomes := make([]*Genome, 0, len(p.Population))
	for _, k := range sortedGenomeKeys(p.Population) {
		genomes = append(genomes, p.Population[k])
	}
	return genomes
}

// Run executes up to n generations and returns the best genome seen. It
// stops early when the fitness criterion reaches the threshold. A stop on
// the generation limit is not an error; callers inspect State to tell the
// two apart.
func (p *Population) Run(ctx context.Context, fitnessFunc FitnessFunc, n int) (*Genome, error) {
	if n <= 0 {
		return nil, fmt.Errorf("neat: generation limit must be positive, got %d", n)
	}
	if p.state.Terminal() && p.state != TerminatedByGenerationLimit {
		return p.BestGenome, fmt.Errorf("neat: population already terminated (%s)", p.state)
	}

	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return p.BestGenome, err
		}
		winner, err := p.RunGeneration(ctx, fitnessFunc)
		if err != nil {
			return p.BestGenome, err
		}
		if winner != nil {
			return p.BestGenome, nil
		}
	}

	p.state = TerminatedByGenerationLimit
	if p.Config.Neat.NoFitnessTermination {
		p.reporters.FoundSolution(p.Config, p.Generation, p.BestGenome)
	}
	p.logger.Debug("generation limit reached", "generations", p.Generation)
	return p.BestGenome, nil
}

// RunGeneration executes a single generation of the NEAT algorithm.
// It returns the winning genome when the fitness threshold is met this
// generation, otherwise nil.
func (p *Population) RunGeneration(ctx context.Context, fitnessFunc FitnessFunc) (*Genome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.Population) == 0 {
		p.state = Extinct
		return nil, ErrCompleteExtinction
	}

	p.reporters.StartGeneration(p.Generation)
	p.state = EvaluatingGeneration

	if err := fitnessFunc(p.Genomes(), p.Config); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	var best *Genome
	fitnesses := make([]float64, 0, len(p.Population))
	for _, g := range p.Genomes() {
		if !g.Evaluated() {
			return nil, fmt.Errorf("%w: genome %d in generation %d", ErrNoFitness, g.Key, p.Generation)
		}
		if best == nil || g.Fitness > best.Fitness {
			best = g
		}
		fitnesses = append(fitnesses, g.Fitness)
	}
	p.reporters.PostEvaluate(p.Config, p.Population, p.SpeciesSet, best)

	if p.BestGenome == nil || best.Fitness > p.BestGenome.Fitness {
		p.BestGenome = best
		p.logger.Debug("new best genome", "generation", p.Generation, "key", best.Key, "fitness", best.Fitness)
	}

	if !p.Config.Neat.NoFitnessTermination {
		criterion := StatFunctions[p.Config.Neat.FitnessCriterion]
		if criterion(fitnesses) >= p.Config.Neat.FitnessThreshold {
			p.state = TerminatedByThreshold
			p.reporters.FoundSolution(p.Config, p.Generation, best)
			return best, nil
		}
	}

	p.state = SelectingAndReproducing
	p.Population = p.Reproduction.Reproduce(p.Config, p.SpeciesSet, p.Config.Neat.PopSize, p.Generation, p.rng)

	if len(p.SpeciesSet.Species) == 0 {
		p.reporters.CompleteExtinction()
		if !p.Config.Neat.ResetOnExtinction {
			p.state = Extinct
			return nil, ErrCompleteExtinction
		}
		p.logger.Info("all species extinct, creating a new population", "generation", p.Generation)
		p.Population = p.Reproduction.CreateNewPopulation(&p.Config.Genome, p.Config.Neat.PopSize, p.rng)
	}
	p.reporters.PostReproduction(p.Config, p.Population, p.SpeciesSet)

	if err := p.SpeciesSet.Speciate(p.Config, p.Population, p.Generation); err != nil {
		return nil, fmt.Errorf("speciation failed in generation %d: %w", p.Generation, err)
	}
	p.reporters.EndGeneration(p.Config, p.Population, p.SpeciesSet)

	p.Generation++
	return nil, nil
}
