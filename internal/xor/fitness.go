package xor

import (
	"fmt"

	"github.com/lucadivit/neat-gdg/neat"
	"github.com/lucadivit/neat-gdg/neat/nn"
)

// Activator is anything that maps an input vector to an output vector.
type Activator interface {
	Activate(inputs []float64) ([]float64, error)
}

// Accuracy returns the fraction of cases whose first output equals the
// expected value exactly: one of 0, 0.25, 0.5, 0.75 or 1.
func Accuracy(net Activator) (float64, error) {
	matches := 0
	all := Cases()
	for _, c := range all {
		out, err := net.Activate(c.Inputs)
		if err != nil {
			return 0, err
		}
		if len(out) == 0 {
			return 0, fmt.Errorf("network produced no outputs")
		}
		if out[0] == c.Expected[0] {
			matches++
		}
	}
	return float64(matches) / float64(len(all)), nil
}

// EvalGenomes is the neat.FitnessFunc for the XOR task. A genome whose
// network cannot be built or activated aborts the run.
func EvalGenomes(genomes []*neat.Genome, config *neat.Config) error {
	for _, g := range genomes {
		net, err := nn.CreateFeedForwardNetwork(g, &config.Genome)
		if err != nil {
			return fmt.Errorf("genome %d: %w", g.Key, err)
		}
		fitness, err := Accuracy(net)
		if err != nil {
			return fmt.Errorf("genome %d: %w", g.Key, err)
		}
		g.Fitness = fitness
	}
	return nil
}

var _ neat.FitnessFunc = EvalGenomes
