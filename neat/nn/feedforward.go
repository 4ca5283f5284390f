// Package nn builds executable networks from NEAT genomes.
package nn

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/lucadivit/neat-gdg/neat"
)

// ErrCycle is returned when enabled connections do not form a DAG.
var ErrCycle = errors.New("nn: network contains a cycle")

// Link is one weighted incoming connection of a node.
type Link struct {
	From   int
	Weight float64
}

// NodeEval describes how to compute one node. Functions are kept by name so
// the network can be serialized; they are resolved against the neat
// registries when the network is built or loaded.
type NodeEval struct {
	Key         int
	Activation  string
	Aggregation string
	Bias        float64
	Response    float64
	Links       []Link

	act neat.ActivationFunc
	agg neat.AggregationFunc
}

// FeedForwardNetwork is a phenotype network that can be activated. It holds
// no reference to the genome or config it was built from.
type FeedForwardNetwork struct {
	InputKeys  []int
	OutputKeys []int
	NodeEvals  []NodeEval // evaluation order
}

// CreateFeedForwardNetwork builds a runnable network from a genome. Only
// enabled connections are used, and only nodes that influence an output and
// can be reached from the inputs are evaluated. Outputs that are never
// evaluated read as 0.
func CreateFeedForwardNetwork(g *neat.Genome, config *neat.GenomeConfig) (*FeedForwardNetwork, error) {
	var enabled []neat.ConnectionKey
	for _, key := range g.ConnectionKeys() {
		if g.Connections[key].Enabled {
			enabled = append(enabled, key)
		}
	}

	required := RequiredForOutput(config.InputKeys, config.OutputKeys, enabled)

	isInput := make(map[int]bool, len(config.InputKeys))
	for _, k := range config.InputKeys {
		isInput[k] = true
	}

	dg := simple.NewDirectedGraph()
	for _, k := range config.InputKeys {
		dg.AddNode(simple.Node(k))
	}
	for _, k := range g.NodeKeys() {
		if required[k] {
			dg.AddNode(simple.Node(k))
		}
	}

	incoming := make(map[int][]neat.ConnectionKey)
	for _, key := range enabled {
		if !required[key.OutNodeID] {
			continue
		}
		if !isInput[key.InNodeID] && !required[key.InNodeID] {
			continue
		}
		if key.InNodeID == key.OutNodeID {
			return nil, fmt.Errorf("%w: self connection on node %d", ErrCycle, key.InNodeID)
		}
		dg.SetEdge(dg.NewEdge(simple.Node(key.InNodeID), simple.Node(key.OutNodeID)))
		incoming[key.OutNodeID] = append(incoming[key.OutNodeID], key)
	}

	order, err := topo.SortStabilized(dg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}

	net := &FeedForwardNetwork{
		InputKeys:  append([]int(nil), config.InputKeys...),
		OutputKeys: append([]int(nil), config.OutputKeys...),
	}
	evaluable := make(map[int]bool, len(order))
	for _, k := range config.InputKeys {
		evaluable[k] = true
	}
	for _, n := range order {
		key := int(n.ID())
		if isInput[key] {
			continue
		}
		links := incoming[key]
		if len(links) == 0 {
			continue
		}
		ready := true
		for _, l := range links {
			if !evaluable[l.InNodeID] {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}

		ng, ok := g.Nodes[key]
		if !ok {
			return nil, fmt.Errorf("nn: connection targets unknown node %d", key)
		}
		ne := NodeEval{
			Key:         key,
			Activation:  ng.Activation,
			Aggregation: ng.Aggregation,
			Bias:        ng.Bias,
			Response:    ng.Response,
			Links:       make([]Link, 0, len(links)),
		}
		for _, l := range links {
			ne.Links = append(ne.Links, Link{From: l.InNodeID, Weight: g.Connections[l].Weight})
		}
		if err := ne.resolve(); err != nil {
			return nil, err
		}
		net.NodeEvals = append(net.NodeEvals, ne)
		evaluable[key] = true
	}
	return net, nil
}

func (ne *NodeEval) resolve() error {
	act, err := neat.GetActivation(ne.Activation)
	if err != nil {
		return fmt.Errorf("node %d: %w", ne.Key, err)
	}
	agg, err := neat.GetAggregation(ne.Aggregation)
	if err != nil {
		return fmt.Errorf("node %d: %w", ne.Key, err)
	}
	ne.act, ne.agg = act, agg
	return nil
}

// Activate computes the network's outputs for one input vector. Each node
// outputs activation(bias + response * aggregation(weighted inputs)).
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("expected %d inputs, got %d", len(net.InputKeys), len(inputs))
	}

	values := make(map[int]float64, len(net.InputKeys)+len(net.NodeEvals))
	for i, k := range net.InputKeys {
		values[k] = inputs[i]
	}

	var buf []float64
	for i := range net.NodeEvals {
		ne := &net.NodeEvals[i]
		if ne.act == nil || ne.agg == nil {
			if err := ne.resolve(); err != nil {
				return nil, err
			}
		}
		buf = buf[:0]
		for _, l := range ne.Links {
			buf = append(buf, values[l.From]*l.Weight)
		}
		values[ne.Key] = ne.act(ne.Bias + ne.Response*ne.agg(buf))
	}

	outputs := make([]float64, len(net.OutputKeys))
	for i, k := range net.OutputKeys {
		outputs[i] = values[k]
	}
	return outputs, nil
}

// RequiredForOutput returns the non-input nodes whose value can reach an
// output through the given connections. Outputs are always required.
func RequiredForOutput(inputs, outputs []int, connections []neat.ConnectionKey) map[int]bool {
	isInput := make(map[int]bool, len(inputs))
	for _, k := range inputs {
		isInput[k] = true
	}

	required := make(map[int]bool, len(outputs))
	for _, k := range outputs {
		required[k] = true
	}
	for {
		added := false
		for _, c := range connections {
			if required[c.OutNodeID] && !required[c.InNodeID] && !isInput[c.InNodeID] {
				required[c.InNodeID] = true
				added = true
			}
		}
		if !added {
			return required
		}
	}
}
