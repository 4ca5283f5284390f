package neat

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// --------------------------- NodeGene ---------------------------

// NodeGene represents a node (neuron) in the neural network genome.
type NodeGene struct {
	Key         int // >= 0 for outputs and hidden nodes; inputs are implicit and negative
	Bias        float64
	Response    float64
	Activation  string // Name of the activation function
	Aggregation string // Name of the aggregation function
}

// NewNodeGene creates a new NodeGene with attributes initialized according to the config.
func NewNodeGene(key int, config *GenomeConfig, rng *rand.Rand) *NodeGene {
	return &NodeGene{
		Key:         key,
		Bias:        initFloatAttribute(rng, config.BiasInitMean, config.BiasInitStdev, config.BiasInitType, config.BiasMinValue, config.BiasMaxValue),
		Response:    initFloatAttribute(rng, config.ResponseInitMean, config.ResponseInitStdev, config.ResponseInitType, config.ResponseMinValue, config.ResponseMaxValue),
		Activation:  initStringAttribute(rng, config.ActivationDefault, config.ActivationOptions),
		Aggregation: initStringAttribute(rng, config.AggregationDefault, config.AggregationOptions),
	}
}

func (ng *NodeGene) String() string {
	return fmt.Sprintf("DefaultNodeGene(key=%d, bias=%.6g, response=%.6g, activation=%s, aggregation=%s)",
		ng.Key, ng.Bias, ng.Response, ng.Activation, ng.Aggregation)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// Mutate adjusts the attributes of the NodeGene based on mutation rates in the config.
func (ng *NodeGene) Mutate(config *GenomeConfig, rng *rand.Rand) {
	ng.Bias = mutateFloatAttribute(rng, ng.Bias, config.BiasMutateRate, config.BiasReplaceRate, config.BiasMutatePower, config.BiasInitMean, config.BiasInitStdev, config.BiasInitType, config.BiasMinValue, config.BiasMaxValue)
	ng.Response = mutateFloatAttribute(rng, ng.Response, config.ResponseMutateRate, config.ResponseReplaceRate, config.ResponseMutatePower, config.ResponseInitMean, config.ResponseInitStdev, config.ResponseInitType, config.ResponseMinValue, config.ResponseMaxValue)
	ng.Activation = mutateStringAttribute(rng, ng.Activation, config.ActivationMutateRate, config.ActivationOptions)
	ng.Aggregation = mutateStringAttribute(rng, ng.Aggregation, config.AggregationMutateRate, config.AggregationOptions)
}

// Distance calculates the genetic distance between two homologous NodeGenes.
func (ng *NodeGene) Distance(other *NodeGene, config *GenomeConfig) float64 {
	d := math.Abs(ng.Bias-other.Bias) + math.Abs(ng.Response-other.Response)
	if ng.Activation != other.Activation {
		d += 1.0
	}
	if ng.Aggregation != other.Aggregation {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover creates a new NodeGene by randomly inheriting each attribute
// from one of the two homologous parents.
func (ng *NodeGene) Crossover(other *NodeGene, rng *rand.Rand) *NodeGene {
	child := ng.Copy()
	if rng.Float64() > 0.5 {
		child.Bias = other.Bias
	}
	if rng.Float64() > 0.5 {
		child.Response = other.Response
	}
	if rng.Float64() > 0.5 {
		child.Activation = other.Activation
	}
	if rng.Float64() > 0.5 {
		child.Aggregation = other.Aggregation
	}
	return child
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionKey uniquely identifies a connection gene (innovation).
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}

func (k ConnectionKey) String() string {
	return fmt.Sprintf("(%d, %d)", k.InNodeID, k.OutNodeID)
}

// less orders keys by input node, then output node.
func (k ConnectionKey) less(o ConnectionKey) bool {
	if k.InNodeID != o.InNodeID {
		return k.InNodeID < o.InNodeID
	}
	return k.OutNodeID < o.OutNodeID
}

// ConnectionGene represents a connection between two nodes in the genome.
type ConnectionGene struct {
	Key     ConnectionKey
	Weight  float64
	Enabled bool
}

// NewConnectionGene creates a new ConnectionGene with attributes initialized according to the config.
func NewConnectionGene(key ConnectionKey, config *GenomeConfig, rng *rand.Rand) *ConnectionGene {
	return &ConnectionGene{
		Key:     key,
		Weight:  initFloatAttribute(rng, config.WeightInitMean, config.WeightInitStdev, config.WeightInitType, config.WeightMinValue, config.WeightMaxValue),
		Enabled: initBoolAttribute(rng, config.EnabledDefault),
	}
}

func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("DefaultConnectionGene(key=%s, weight=%.6g, enabled=%t)", cg.Key, cg.Weight, cg.Enabled)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// Mutate adjusts the attributes of the ConnectionGene based on mutation rates in the config.
func (cg *ConnectionGene) Mutate(config *GenomeConfig, rng *rand.Rand) {
	cg.Weight = mutateFloatAttribute(rng, cg.Weight, config.WeightMutateRate, config.WeightReplaceRate, config.WeightMutatePower, config.WeightInitMean, config.WeightInitStdev, config.WeightInitType, config.WeightMinValue, config.WeightMaxValue)
	cg.Enabled = mutateBoolAttribute(rng, cg.Enabled, config.EnabledMutateRate, config.EnabledRateToTrueAdd, config.EnabledRateToFalseAdd)
}

// Distance calculates the genetic distance between two homologous ConnectionGenes.
func (cg *ConnectionGene) Distance(other *ConnectionGene, config *GenomeConfig) float64 {
	d := math.Abs(cg.Weight - other.Weight)
	if cg.Enabled != other.Enabled {
		d += 1.0
	}
	return d * config.CompatibilityWeightCoefficient
}

// Crossover creates a new ConnectionGene by randomly inheriting attributes from two parents.
func (cg *ConnectionGene) Crossover(other *ConnectionGene, rng *rand.Rand) *ConnectionGene {
	child := cg.Copy()
	if rng.Float64() > 0.5 {
		child.Weight = other.Weight
	}
	if rng.Float64() > 0.5 {
		child.Enabled = other.Enabled
	}
	return child
}

// --------------------------- Attribute Helpers ---------------------------

func initFloatAttribute(rng *rand.Rand, mean, stdev float64, initType string, minVal, maxVal float64) float64 {
	switch strings.ToLower(initType) {
	case "uniform":
		lo := math.Max(minVal, mean-(2*stdev))
		hi := math.Min(maxVal, mean+(2*stdev))
		if hi < lo {
			hi = lo
		}
		return lo + rng.Float64()*(hi-lo)
	default:
		return clamp(rng.NormFloat64()*stdev+mean, minVal, maxVal)
	}
}

func mutateFloatAttribute(rng *rand.Rand, value, mutateRate, replaceRate, mutatePower, initMean, initStdev float64, initType string, minVal, maxVal float64) float64 {
	r := rng.Float64()
	if r < mutateRate {
		return clamp(value+rng.NormFloat64()*mutatePower, minVal, maxVal)
	}
	if r < mutateRate+replaceRate {
		return initFloatAttribute(rng, initMean, initStdev, initType, minVal, maxVal)
	}
	return value
}

func initBoolAttribute(rng *rand.Rand, defaultVal string) bool {
	switch strings.ToLower(strings.TrimSpace(defaultVal)) {
	case "true", "1", "yes", "on":
		return true
	case "random", "none":
		return rng.Float64() < 0.5
	default:
		return false
	}
}

// mutateBoolAttribute draws a fresh random value at the (direction adjusted)
// mutation rate; a draw may land on the current value.
func mutateBoolAttribute(rng *rand.Rand, value bool, mutateRate, rateToTrueAdd, rateToFalseAdd float64) bool {
	rate := mutateRate
	if value {
		rate += rateToFalseAdd
	} else {
		rate += rateToTrueAdd
	}
	if rate > 0 && rng.Float64() < rate {
		return rng.Float64() < 0.5
	}
	return value
}

func initStringAttribute(rng *rand.Rand, defaultVal string, options []string) string {
	switch strings.ToLower(defaultVal) {
	case "random", "none", "":
		return options[rng.IntN(len(options))]
	}
	return defaultVal
}

func mutateStringAttribute(rng *rand.Rand, value string, mutateRate float64, options []string) string {
	if mutateRate > 0 && rng.Float64() < mutateRate {
		return options[rng.IntN(len(options))]
	}
	return value
}
