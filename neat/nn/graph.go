package nn

import "sort"

// Edge is a weighted connection of a built network.
type Edge struct {
	From, To int
	Weight   float64
}

// Edges lists the connections used by the network in evaluation order.
func (net *FeedForwardNetwork) Edges() []Edge {
	var edges []Edge
	for _, ne := range net.NodeEvals {
		for _, l := range ne.Links {
			edges = append(edges, Edge{From: l.From, To: ne.Key, Weight: l.Weight})
		}
	}
	return edges
}

// Layers groups node keys into columns for drawing: inputs first, then
// hidden nodes by their longest distance from the inputs, then every output.
// Inputs are listed -1, -2, ...; other columns are ascending.
func (net *FeedForwardNetwork) Layers() [][]int {
	isOutput := make(map[int]bool, len(net.OutputKeys))
	for _, k := range net.OutputKeys {
		isOutput[k] = true
	}

	depth := make(map[int]int)
	for _, k := range net.InputKeys {
		depth[k] = 0
	}
	byDepth := make(map[int][]int)
	for _, ne := range net.NodeEvals {
		d := 0
		for _, l := range ne.Links {
			d = max(d, depth[l.From]+1)
		}
		depth[ne.Key] = d
		if !isOutput[ne.Key] {
			byDepth[d] = append(byDepth[d], ne.Key)
		}
	}

	inputs := append([]int(nil), net.InputKeys...)
	sort.Sort(sort.Reverse(sort.IntSlice(inputs)))
	layers := [][]int{inputs}

	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		keys := byDepth[d]
		sort.Ints(keys)
		layers = append(layers, keys)
	}

	outputs := append([]int(nil), net.OutputKeys...)
	sort.Ints(outputs)
	return append(layers, outputs)
}
