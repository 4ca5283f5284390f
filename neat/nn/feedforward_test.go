package nn_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucadivit/neat-gdg/neat"
	"github.com/lucadivit/neat-gdg/neat/nn"
)

const stepName = "nn_test_step"

func init() {
	neat.MustRegisterActivation(stepName, func(z float64) float64 {
		if z > 0 {
			return 1
		}
		return 0
	})
}

var xorGenomeConfig = &neat.GenomeConfig{InputKeys: []int{-1, -2}, OutputKeys: []int{0}}

func node(key int, bias float64) *neat.NodeGene {
	return &neat.NodeGene{Key: key, Bias: bias, Response: 1, Activation: stepName, Aggregation: "sum"}
}

func connect(g *neat.Genome, from, to int, weight float64) {
	k := neat.ConnectionKey{InNodeID: from, OutNodeID: to}
	g.Connections[k] = &neat.ConnectionGene{Key: k, Weight: weight, Enabled: true}
}

// xorGenome is an OR and a NAND unit feeding an AND unit.
func xorGenome() *neat.Genome {
	g := neat.NewGenome(1)
	g.Nodes[0] = node(0, -1.5)
	g.Nodes[1] = node(1, -0.5)
	g.Nodes[2] = node(2, 1.5)
	connect(g, -1, 1, 1)
	connect(g, -2, 1, 1)
	connect(g, -1, 2, -1)
	connect(g, -2, 2, -1)
	connect(g, 1, 0, 1)
	connect(g, 2, 0, 1)
	return g
}

var xorTable = []struct {
	in   []float64
	want float64
}{
	{[]float64{0, 0}, 0},
	{[]float64{0, 1}, 1},
	{[]float64{1, 0}, 1},
	{[]float64{1, 1}, 0},
}

func assertXOR(t *testing.T, net *nn.FeedForwardNetwork) {
	t.Helper()
	for _, tc := range xorTable {
		out, err := net.Activate(tc.in)
		require.NoError(t, err)
		assert.Equal(t, []float64{tc.want}, out, "inputs %v", tc.in)
	}
}

func TestHandBuiltXOR(t *testing.T) {
	net, err := nn.CreateFeedForwardNetwork(xorGenome(), xorGenomeConfig)
	require.NoError(t, err)

	require.Len(t, net.NodeEvals, 3)
	assert.Equal(t, 0, net.NodeEvals[2].Key)
	assertXOR(t, net)

	_, err = net.Activate([]float64{1})
	assert.Error(t, err)
}

func TestResponseScalesAggregation(t *testing.T) {
	g := neat.NewGenome(1)
	g.Nodes[0] = &neat.NodeGene{Key: 0, Bias: 0.5, Response: 2, Activation: "identity", Aggregation: "sum"}
	connect(g, -1, 0, 3)
	connect(g, -2, 0, -1)

	net, err := nn.CreateFeedForwardNetwork(g, xorGenomeConfig)
	require.NoError(t, err)
	out, err := net.Activate([]float64{1, 2})
	require.NoError(t, err)
	// 0.5 + 2*(3*1 - 1*2)
	assert.InDelta(t, 2.5, out[0], 1e-12)
}

func TestDisabledConnectionsAreIgnored(t *testing.T) {
	g := xorGenome()
	g.Connections[neat.ConnectionKey{InNodeID: 2, OutNodeID: 0}].Enabled = false

	net, err := nn.CreateFeedForwardNetwork(g, xorGenomeConfig)
	require.NoError(t, err)
	for _, e := range net.Edges() {
		assert.False(t, e.From == 2 && e.To == 0)
	}
	// Node 2 no longer reaches the output, so it is pruned.
	for _, ne := range net.NodeEvals {
		assert.NotEqual(t, 2, ne.Key)
	}
}

func TestUnconnectedOutputReadsZero(t *testing.T) {
	g := neat.NewGenome(1)
	g.Nodes[0] = node(0, 5)

	net, err := nn.CreateFeedForwardNetwork(g, xorGenomeConfig)
	require.NoError(t, err)
	assert.Empty(t, net.NodeEvals)

	out, err := net.Activate([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, out)
}

func TestDanglingHiddenNodeIsSkipped(t *testing.T) {
	g := xorGenome()
	// Node 3 feeds the output but has no inputs of its own.
	g.Nodes[3] = node(3, 1)
	connect(g, 3, 0, 10)

	net, err := nn.CreateFeedForwardNetwork(g, xorGenomeConfig)
	require.NoError(t, err)
	for _, ne := range net.NodeEvals {
		assert.NotEqual(t, 3, ne.Key)
	}
	// The output depends on node 3, so it is never evaluated either.
	out, err := net.Activate([]float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, out)
}

func TestCycleIsRejected(t *testing.T) {
	g := xorGenome()
	connect(g, 0, 1, 1)
	_, err := nn.CreateFeedForwardNetwork(g, xorGenomeConfig)
	assert.True(t, errors.Is(err, nn.ErrCycle))

	g = xorGenome()
	connect(g, 1, 1, 1)
	_, err = nn.CreateFeedForwardNetwork(g, xorGenomeConfig)
	assert.ErrorIs(t, err, nn.ErrCycle)
}

func TestRequiredForOutput(t *testing.T) {
	conns := []neat.ConnectionKey{
		{InNodeID: -1, OutNodeID: 1},
		{InNodeID: 1, OutNodeID: 0},
		{InNodeID: -2, OutNodeID: 5},
		{InNodeID: 6, OutNodeID: 1},
	}
	required := nn.RequiredForOutput([]int{-1, -2}, []int{0}, conns)
	assert.Equal(t, map[int]bool{0: true, 1: true, 6: true}, required)
}

func TestLayersAndEdges(t *testing.T) {
	net, err := nn.CreateFeedForwardNetwork(xorGenome(), xorGenomeConfig)
	require.NoError(t, err)

	assert.Equal(t, [][]int{{-1, -2}, {1, 2}, {0}}, net.Layers())
	assert.Len(t, net.Edges(), 6)
	assert.Contains(t, net.Edges(), nn.Edge{From: -1, To: 2, Weight: -1})
}

func TestSaveAndLoad(t *testing.T) {
	net, err := nn.CreateFeedForwardNetwork(xorGenome(), xorGenomeConfig)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "net.gob")
	require.NoError(t, net.Save(path))

	loaded, err := nn.Load(path)
	require.NoError(t, err)
	assert.Equal(t, net.InputKeys, loaded.InputKeys)
	assert.Equal(t, net.OutputKeys, loaded.OutputKeys)
	assert.Equal(t, net.Edges(), loaded.Edges())
	assertXOR(t, loaded)

	_, err = nn.Load(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}

func TestSaveFailure(t *testing.T) {
	net, err := nn.CreateFeedForwardNetwork(xorGenome(), xorGenomeConfig)
	require.NoError(t, err)

	dir := t.TempDir()
	assert.Error(t, net.Save(filepath.Join(dir, "missing", "net.gob")))
	assert.Error(t, net.Save(dir))
}

func TestDecodeUnknownActivation(t *testing.T) {
	net, err := nn.CreateFeedForwardNetwork(xorGenome(), xorGenomeConfig)
	require.NoError(t, err)
	net.NodeEvals[0].Activation = "not_registered"

	var buf bytes.Buffer
	require.NoError(t, net.Encode(&buf))
	_, err = nn.Decode(&buf)
	assert.Error(t, err)

	_, err = nn.Decode(bytes.NewReader([]byte("junk")))
	assert.Error(t, err)
}
