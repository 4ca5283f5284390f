package neat

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// Genome represents an individual organism in the population.
// It consists of NodeGenes and ConnectionGenes. Input nodes are implicit:
// their keys come from GenomeConfig.InputKeys and never appear in Nodes.
type Genome struct {
	Key         int
	Nodes       map[int]*NodeGene
	Connections map[ConnectionKey]*ConnectionGene
	// Fitness is NaN until the fitness function assigns it.
	Fitness float64
}

// Indexer hands out monotonically increasing keys.
type Indexer struct {
	Next int
}

// NextKey returns the current key and advances the indexer.
func (ix *Indexer) NextKey() int {
	key := ix.Next
	ix.Next++
	return key
}

// NewGenome creates an empty, unevaluated Genome.
func NewGenome(key int) *Genome {
	return &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[ConnectionKey]*ConnectionGene),
		Fitness:     math.NaN(),
	}
}

// Evaluated reports whether a fitness value has been assigned.
func (g *Genome) Evaluated() bool {
	return !math.IsNaN(g.Fitness)
}

// NodeKeys returns the node keys in ascending order.
func (g *Genome) NodeKeys() []int {
	keys := make([]int, 0, len(g.Nodes))
	for k := range g.Nodes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ConnectionKeys returns the connection keys in ascending order.
func (g *Genome) ConnectionKeys() []ConnectionKey {
	keys := make([]ConnectionKey, 0, len(g.Connections))
	for k := range g.Connections {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// ConfigureNew initializes a new genome: output and hidden nodes plus the
// initial connections selected by initial_connection.
func (g *Genome) ConfigureNew(config *GenomeConfig, rng *rand.Rand, nodeIndexer *Indexer) {
	for _, nodeKey := range config.OutputKeys {
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, config, rng)
	}
	for i := 0; i < config.NumHidden; i++ {
		nodeKey := nodeIndexer.NextKey()
		if _, exists := g.Nodes[nodeKey]; exists {
			panic(fmt.Sprintf("neat: duplicate node key %d", nodeKey))
		}
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, config, rng)
	}

	switch config.InitialConnectionType() {
	case "fs_neat_nohidden":
		g.connectFSNeat(config, rng, false)
	case "fs_neat", "fs_neat_hidden":
		g.connectFSNeat(config, rng, true)
	case "full", "full_nodirect":
		g.connectKeys(config, rng, g.computeFullConnections(config, false))
	case "full_direct":
		g.connectKeys(config, rng, g.computeFullConnections(config, true))
	case "partial", "partial_nodirect":
		g.connectPartial(config, rng, false)
	case "partial_direct":
		g.connectPartial(config, rng, true)
	}
}

// connectFSNeat connects one randomly chosen input to all outputs, and to all
// hidden nodes as well when withHidden is set.
func (g *Genome) connectFSNeat(config *GenomeConfig, rng *rand.Rand, withHidden bool) {
	inputKey := config.InputKeys[rng.IntN(len(config.InputKeys))]
	for _, nk := range g.NodeKeys() {
		if !withHidden && !config.isOutput(nk) {
			continue
		}
		g.addConnection(config, rng, ConnectionKey{InNodeID: inputKey, OutNodeID: nk})
	}
}

// computeFullConnections lists input->hidden and hidden->output pairs; direct
// input->output pairs are added when direct is set or there are no hidden nodes.
// Recurrent genomes also get a self-connection on every node.
func (g *Genome) computeFullConnections(config *GenomeConfig, direct bool) []ConnectionKey {
	var hidden, output []int
	for _, nk := range g.NodeKeys() {
		if config.isOutput(nk) {
			output = append(output, nk)
		} else {
			hidden = append(hidden, nk)
		}
	}

	var keys []ConnectionKey
	if len(hidden) > 0 {
		for _, ik := range config.InputKeys {
			for _, hk := range hidden {
				keys = append(keys, ConnectionKey{InNodeID: ik, OutNodeID: hk})
			}
		}
		for _, hk := range hidden {
			for _, ok := range output {
				keys = append(keys, ConnectionKey{InNodeID: hk, OutNodeID: ok})
			}
		}
	}
	if direct || len(hidden) == 0 {
		for _, ik := range config.InputKeys {
			for _, ok := range output {
				keys = append(keys, ConnectionKey{InNodeID: ik, OutNodeID: ok})
			}
		}
	}
	if !config.FeedForward {
		for _, nk := range g.NodeKeys() {
			keys = append(keys, ConnectionKey{InNodeID: nk, OutNodeID: nk})
		}
	}
	return keys
}

func (g *Genome) connectPartial(config *GenomeConfig, rng *rand.Rand, direct bool) {
	all := g.computeFullConnections(config, direct)
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	n := roundHalfEven(float64(len(all)) * config.ConnectionFraction)
	g.connectKeys(config, rng, all[:n])
}

func (g *Genome) connectKeys(config *GenomeConfig, rng *rand.Rand, keys []ConnectionKey) {
	for _, k := range keys {
		g.addConnection(config, rng, k)
	}
}

func (g *Genome) addConnection(config *GenomeConfig, rng *rand.Rand, key ConnectionKey) *ConnectionGene {
	c := NewConnectionGene(key, config, rng)
	g.Connections[key] = c
	return c
}

// ConfigureCrossover fills g from two parents. Genes present in both are
// crossed attribute by attribute; genes only in the fitter parent are copied;
// genes only in the weaker parent are dropped.
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome, rng *rand.Rand) {
	if parent1.Fitness < parent2.Fitness {
		parent1, parent2 = parent2, parent1
	}

	for _, key := range parent1.ConnectionKeys() {
		c1 := parent1.Connections[key]
		if c2, ok := parent2.Connections[key]; ok {
			g.Connections[key] = c1.Crossover(c2, rng)
		} else {
			g.Connections[key] = c1.Copy()
		}
	}

	for _, key := range parent1.NodeKeys() {
		n1 := parent1.Nodes[key]
		if n2, ok := parent2.Nodes[key]; ok {
			g.Nodes[key] = n1.Crossover(n2, rng)
		} else {
			g.Nodes[key] = n1.Copy()
		}
	}
}

// Mutate applies structural mutations followed by attribute mutations.
func (g *Genome) Mutate(config *GenomeConfig, rng *rand.Rand, nodeIndexer *Indexer) {
	if config.SingleStructuralMutation {
		div := math.Max(1.0, config.NodeAddProb+config.NodeDeleteProb+config.ConnAddProb+config.ConnDeleteProb)
		r := rng.Float64()
		switch {
		case r < config.NodeAddProb/div:
			g.mutateAddNode(config, rng, nodeIndexer)
		case r < (config.NodeAddProb+config.NodeDeleteProb)/div:
			g.mutateDeleteNode(config, rng)
		case r < (config.NodeAddProb+config.NodeDeleteProb+config.ConnAddProb)/div:
			g.mutateAddConnection(config, rng)
		case r < (config.NodeAddProb+config.NodeDeleteProb+config.ConnAddProb+config.ConnDeleteProb)/div:
			g.mutateDeleteConnection(rng)
		}
	} else {
		if rng.Float64() < config.NodeAddProb {
			g.mutateAddNode(config, rng, nodeIndexer)
		}
		if rng.Float64() < config.NodeDeleteProb {
			g.mutateDeleteNode(config, rng)
		}
		if rng.Float64() < config.ConnAddProb {
			g.mutateAddConnection(config, rng)
		}
		if rng.Float64() < config.ConnDeleteProb {
			g.mutateDeleteConnection(rng)
		}
	}

	for _, key := range g.ConnectionKeys() {
		g.Connections[key].Mutate(config, rng)
	}
	for _, key := range g.NodeKeys() {
		g.Nodes[key].Mutate(config, rng)
	}
}

// mutateAddNode splits a random connection: the old link is disabled and
// replaced by in->new (weight 1) and new->out (old weight).
func (g *Genome) mutateAddNode(config *GenomeConfig, rng *rand.Rand, nodeIndexer *Indexer) {
	if len(g.Connections) == 0 {
		if config.structuralMutationSurer() {
			g.mutateAddConnection(config, rng)
		}
		return
	}

	keys := g.ConnectionKeys()
	split := g.Connections[keys[rng.IntN(len(keys))]]

	newKey := nodeIndexer.NextKey()
	g.Nodes[newKey] = NewNodeGene(newKey, config, rng)

	split.Enabled = false

	in := ConnectionKey{InNodeID: split.Key.InNodeID, OutNodeID: newKey}
	g.Connections[in] = &ConnectionGene{Key: in, Weight: 1.0, Enabled: true}

	out := ConnectionKey{InNodeID: newKey, OutNodeID: split.Key.OutNodeID}
	g.Connections[out] = &ConnectionGene{Key: out, Weight: split.Weight, Enabled: true}
}

// mutateAddConnection makes one attempt at linking a random source (input,
// hidden or output) to a random destination (hidden or output).
func (g *Genome) mutateAddConnection(config *GenomeConfig, rng *rand.Rand) {
	nodeKeys := g.NodeKeys()
	if len(nodeKeys) == 0 {
		return
	}
	outNode := nodeKeys[rng.IntN(len(nodeKeys))]

	sources := make([]int, 0, len(nodeKeys)+len(config.InputKeys))
	sources = append(sources, nodeKeys...)
	sources = append(sources, config.InputKeys...)
	inNode := sources[rng.IntN(len(sources))]

	key := ConnectionKey{InNodeID: inNode, OutNodeID: outNode}
	if existing, ok := g.Connections[key]; ok {
		if config.structuralMutationSurer() {
			existing.Enabled = true
		}
		return
	}

	if config.isOutput(inNode) && config.isOutput(outNode) {
		return
	}
	if config.FeedForward && CreatesCycle(g.ConnectionKeys(), key) {
		return
	}

	g.addConnection(config, rng, key)
}

// mutateDeleteNode removes a random hidden node together with every
// connection touching it.
func (g *Genome) mutateDeleteNode(config *GenomeConfig, rng *rand.Rand) {
	var candidates []int
	for _, k := range g.NodeKeys() {
		if !config.isOutput(k) {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return
	}
	del := candidates[rng.IntN(len(candidates))]

	for key := range g.Connections {
		if key.InNodeID == del || key.OutNodeID == del {
			delete(g.Connections, key)
		}
	}
	delete(g.Nodes, del)
}

func (g *Genome) mutateDeleteConnection(rng *rand.Rand) {
	if len(g.Connections) == 0 {
		return
	}
	keys := g.ConnectionKeys()
	delete(g.Connections, keys[rng.IntN(len(keys))])
}

// Distance calculates the compatibility distance between two genomes as the
// sum of a node term and a connection term, each normalised by the larger
// gene count.
func (g *Genome) Distance(other *Genome, config *GenomeConfig) float64 {
	nodeDistance := 0.0
	if len(g.Nodes) > 0 || len(other.Nodes) > 0 {
		disjoint := 0
		for k := range other.Nodes {
			if _, ok := g.Nodes[k]; !ok {
				disjoint++
			}
		}
		for _, k := range g.NodeKeys() {
			n1 := g.Nodes[k]
			if n2, ok := other.Nodes[k]; ok {
				nodeDistance += n1.Distance(n2, config)
			} else {
				disjoint++
			}
		}
		maxNodes := max(len(g.Nodes), len(other.Nodes))
		nodeDistance = (nodeDistance + config.CompatibilityDisjointCoefficient*float64(disjoint)) / float64(maxNodes)
	}

	connDistance := 0.0
	if len(g.Connections) > 0 || len(other.Connections) > 0 {
		disjoint := 0
		for k := range other.Connections {
			if _, ok := g.Connections[k]; !ok {
				disjoint++
			}
		}
		for _, k := range g.ConnectionKeys() {
			c1 := g.Connections[k]
			if c2, ok := other.Connections[k]; ok {
				connDistance += c1.Distance(c2, config)
			} else {
				disjoint++
			}
		}
		maxConns := max(len(g.Connections), len(other.Connections))
		connDistance = (connDistance + config.CompatibilityDisjointCoefficient*float64(disjoint)) / float64(maxConns)
	}

	return nodeDistance + connDistance
}

// Size returns the number of nodes and of enabled connections.
func (g *Genome) Size() (int, int) {
	enabled := 0
	for _, c := range g.Connections {
		if c.Enabled {
			enabled++
		}
	}
	return len(g.Nodes), enabled
}

// Copy returns a deep copy of the genome.
func (g *Genome) Copy() *Genome {
	c := &Genome{
		Key:         g.Key,
		Nodes:       make(map[int]*NodeGene, len(g.Nodes)),
		Connections: make(map[ConnectionKey]*ConnectionGene, len(g.Connections)),
		Fitness:     g.Fitness,
	}
	for k, n := range g.Nodes {
		c.Nodes[k] = n.Copy()
	}
	for k, cg := range g.Connections {
		c.Connections[k] = cg.Copy()
	}
	return c
}

func (g *Genome) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Key: %d\nFitness: %v\nNodes:", g.Key, g.Fitness)
	for _, k := range g.NodeKeys() {
		fmt.Fprintf(&b, "\n\t%d %s", k, g.Nodes[k])
	}
	b.WriteString("\nConnections:")
	for _, k := range g.ConnectionKeys() {
		fmt.Fprintf(&b, "\n\t%s", g.Connections[k])
	}
	return b.String()
}

// CreatesCycle reports whether adding test to a feed-forward graph made of
// connections would create a cycle. Disabled connections count, so that
// re-enabling one later can never introduce a loop.
func CreatesCycle(connections []ConnectionKey, test ConnectionKey) bool {
	if test.InNodeID == test.OutNodeID {
		return true
	}

	visited := map[int]bool{test.OutNodeID: true}
	for {
		added := 0
		for _, c := range connections {
			if visited[c.InNodeID] && !visited[c.OutNodeID] {
				if c.OutNodeID == test.InNodeID {
					return true
				}
				visited[c.OutNodeID] = true
				added++
			}
		}
		if added == 0 {
			return false
		}
	}
}
