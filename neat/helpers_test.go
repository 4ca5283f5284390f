package neat

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

const testConfigPath = "testdata/config_xor"

func loadTestConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig(testConfigPath)
	require.NoError(t, err)
	return cfg
}

// configWith returns the test config with the given keys overridden.
// Keys must already be present in the file.
func configWith(t *testing.T, settings map[string]string) *Config {
	t.Helper()
	data, err := os.ReadFile(testConfigPath)
	require.NoError(t, err)
	for key, value := range settings {
		re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(key) + `\s*=.*$`)
		require.True(t, re.Match(data), "key %s not in test config", key)
		data = re.ReplaceAll(data, []byte(key+" = "+value))
	}
	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	return cfg
}

// structuralFitness scores genomes from their genes alone, so tests can run
// the engine without building networks.
func structuralFitness(genomes []*Genome, _ *Config) error {
	for _, g := range genomes {
		f := 0.0
		for _, k := range g.ConnectionKeys() {
			if c := g.Connections[k]; c.Enabled {
				f += c.Weight
			}
		}
		for _, k := range g.NodeKeys() {
			f += g.Nodes[k].Bias
		}
		g.Fitness = f
	}
	return nil
}

func constantFitness(v float64) FitnessFunc {
	return func(genomes []*Genome, _ *Config) error {
		for _, g := range genomes {
			g.Fitness = v
		}
		return nil
	}
}

// hasCycle reports whether the connections (enabled or not) contain a cycle.
func hasCycle(g *Genome) bool {
	keys := g.ConnectionKeys()
	for i, k := range keys {
		rest := append(append([]ConnectionKey(nil), keys[:i]...), keys[i+1:]...)
		if CreatesCycle(rest, k) {
			return true
		}
	}
	return false
}
