package xor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucadivit/neat-gdg/neat"
)

type activatorFunc func([]float64) ([]float64, error)

func (f activatorFunc) Activate(in []float64) ([]float64, error) { return f(in) }

func constant(v float64) Activator {
	return activatorFunc(func([]float64) ([]float64, error) { return []float64{v}, nil })
}

func TestAccuracy(t *testing.T) {
	perfect := activatorFunc(func(in []float64) ([]float64, error) {
		if in[0] != in[1] {
			return []float64{1}, nil
		}
		return []float64{0}, nil
	})
	inverted := activatorFunc(func(in []float64) ([]float64, error) {
		if in[0] != in[1] {
			return []float64{0}, nil
		}
		return []float64{1}, nil
	})
	firstInput := activatorFunc(func(in []float64) ([]float64, error) {
		return []float64{in[0]}, nil
	})

	tests := []struct {
		name string
		net  Activator
		want float64
	}{
		{"perfect", perfect, 1},
		{"inverted", inverted, 0},
		{"always zero", constant(0), 0.5},
		{"always one", constant(1), 0.5},
		{"first input", firstInput, 0.5},
		{"near miss is wrong", constant(0.999), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(tt.net)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, []float64{0, 0.25, 0.5, 0.75, 1}, got)
		})
	}
}

func TestAccuracyErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Accuracy(activatorFunc(func([]float64) ([]float64, error) { return nil, boom }))
	assert.ErrorIs(t, err, boom)

	_, err = Accuracy(activatorFunc(func([]float64) ([]float64, error) { return nil, nil }))
	assert.Error(t, err)
}

// xorGenome computes XOR with heaviside units: OR and NAND feeding AND.
func xorGenome(key int) *neat.Genome {
	g := neat.NewGenome(key)
	for k, bias := range map[int]float64{0: -2, 1: -1, 2: 1.5} {
		g.Nodes[k] = &neat.NodeGene{Key: k, Bias: bias, Response: 1, Activation: HeavisideName, Aggregation: "sum"}
	}
	for _, c := range []struct {
		from, to int
		w        float64
	}{{-1, 1, 1}, {-2, 1, 1}, {-1, 2, -1}, {-2, 2, -1}, {1, 0, 1}, {2, 0, 1}} {
		k := neat.ConnectionKey{InNodeID: c.from, OutNodeID: c.to}
		g.Connections[k] = &neat.ConnectionGene{Key: k, Weight: c.w, Enabled: true}
	}
	return g
}

func TestEvalGenomes(t *testing.T) {
	cfg := loadConfig(t)

	solver := xorGenome(1)
	empty := neat.NewGenome(2)
	empty.Nodes[0] = &neat.NodeGene{Key: 0, Response: 1, Activation: HeavisideName, Aggregation: "sum"}

	require.NoError(t, EvalGenomes([]*neat.Genome{solver, empty}, cfg))
	assert.Equal(t, 1.0, solver.Fitness)
	// An unconnected output reads 0, which is right for half the cases.
	assert.Equal(t, 0.5, empty.Fitness)

	cyclic := xorGenome(3)
	k := neat.ConnectionKey{InNodeID: 0, OutNodeID: 1}
	cyclic.Connections[k] = &neat.ConnectionGene{Key: k, Weight: 1, Enabled: true}
	err := EvalGenomes([]*neat.Genome{cyclic}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genome 3")
}
