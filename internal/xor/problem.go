// Package xor evolves a network that computes exclusive-or with a step
// activation, and exports the winner.
package xor

import "github.com/lucadivit/neat-gdg/neat"

// Case is one input/expected-output pair of the truth table.
type Case struct {
	Inputs   []float64
	Expected []float64
}

var cases = [...]Case{
	{Inputs: []float64{0, 0}, Expected: []float64{0}},
	{Inputs: []float64{0, 1}, Expected: []float64{1}},
	{Inputs: []float64{1, 0}, Expected: []float64{1}},
	{Inputs: []float64{1, 1}, Expected: []float64{0}},
}

// Cases returns the four XOR cases. The returned slices are fresh copies.
func Cases() []Case {
	out := make([]Case, len(cases))
	for i, c := range cases {
		out[i] = Case{
			Inputs:   append([]float64(nil), c.Inputs...),
			Expected: append([]float64(nil), c.Expected...),
		}
	}
	return out
}

// HeavisideName is the activation name used in the config file.
const HeavisideName = "heaviside"

// Heaviside is the unit step: 1 for z >= 0, otherwise 0.
func Heaviside(z float64) float64 {
	if z >= 0 {
		return 1
	}
	return 0
}

func init() {
	neat.MustRegisterActivation(HeavisideName, Heaviside)
}

// NodeNames labels the input and output nodes in diagrams.
func NodeNames() map[int]string {
	return map[int]string{
		-1: "A",
		-2: "B",
		0:  "A XOR B",
	}
}
