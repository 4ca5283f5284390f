package neat

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for the NEAT algorithm.
// A Config is read-only once LoadConfig returns it; all evolving state
// (genome and node indexers, random source) lives in the Population.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Reproduction ReproductionConfig
	SpeciesSet   SpeciesSetConfig
	Stagnation   StagnationConfig
}

// NeatConfig holds parameters specific to the NEAT algorithm itself.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size"`
	FitnessCriterion     string  `ini:"fitness_criterion"` // max, min or mean
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	ResetOnExtinction    bool    `ini:"reset_on_extinction"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
}

// GenomeConfig holds parameters specific to the structure and mutation of genomes.
type GenomeConfig struct {
	NumInputs                        int     `ini:"num_inputs"`
	NumOutputs                       int     `ini:"num_outputs"`
	NumHidden                        int     `ini:"num_hidden"`
	FeedForward                      bool    `ini:"feed_forward"`
	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"`
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`
	ConnAddProb                      float64 `ini:"conn_add_prob"`
	ConnDeleteProb                   float64 `ini:"conn_delete_prob"`
	NodeAddProb                      float64 `ini:"node_add_prob"`
	NodeDeleteProb                   float64 `ini:"node_delete_prob"`
	SingleStructuralMutation         bool    `ini:"single_structural_mutation"`
	StructuralMutationSurer          string  `ini:"structural_mutation_surer"` // default, true or false
	InitialConnection                string  `ini:"initial_connection"`

	BiasInitMean    float64 `ini:"bias_init_mean"`
	BiasInitStdev   float64 `ini:"bias_init_stdev"`
	BiasInitType    string  `ini:"bias_init_type"`
	BiasReplaceRate float64 `ini:"bias_replace_rate"`
	BiasMutateRate  float64 `ini:"bias_mutate_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power"`
	BiasMaxValue    float64 `ini:"bias_max_value"`
	BiasMinValue    float64 `ini:"bias_min_value"`

	ResponseInitMean    float64 `ini:"response_init_mean"`
	ResponseInitStdev   float64 `ini:"response_init_stdev"`
	ResponseInitType    string  `ini:"response_init_type"`
	ResponseReplaceRate float64 `ini:"response_replace_rate"`
	ResponseMutateRate  float64 `ini:"response_mutate_rate"`
	ResponseMutatePower float64 `ini:"response_mutate_power"`
	ResponseMaxValue    float64 `ini:"response_max_value"`
	ResponseMinValue    float64 `ini:"response_min_value"`

	ActivationDefault    string   `ini:"activation_default"`
	ActivationOptions    []string `ini:"activation_options" delim:" "`
	ActivationMutateRate float64  `ini:"activation_mutate_rate"`

	AggregationDefault    string   `ini:"aggregation_default"`
	AggregationOptions    []string `ini:"aggregation_options" delim:" "`
	AggregationMutateRate float64  `ini:"aggregation_mutate_rate"`

	WeightInitMean    float64 `ini:"weight_init_mean"`
	WeightInitStdev   float64 `ini:"weight_init_stdev"`
	WeightInitType    string  `ini:"weight_init_type"`
	WeightReplaceRate float64 `ini:"weight_replace_rate"`
	WeightMutateRate  float64 `ini:"weight_mutate_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power"`
	WeightMaxValue    float64 `ini:"weight_max_value"`
	WeightMinValue    float64 `ini:"weight_min_value"`

	EnabledDefault        string  `ini:"enabled_default"` // True, False or random
	EnabledMutateRate     float64 `ini:"enabled_mutate_rate"`
	EnabledRateToTrueAdd  float64 `ini:"enabled_rate_to_true_add"`
	EnabledRateToFalseAdd float64 `ini:"enabled_rate_to_false_add"`

	// Derived at load time.
	InputKeys          []int   `ini:"-"`
	OutputKeys         []int   `ini:"-"`
	ConnectionFraction float64 `ini:"-"` // for partial* initial connections
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	Elitism           int     `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
	MinSpeciesSize    int     `ini:"min_species_size"`
}

// SpeciesSetConfig holds parameters related to speciation.
type SpeciesSetConfig struct {
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	SpeciesFitnessFunc string `ini:"species_fitness_func"`
	MaxStagnation      int    `ini:"max_stagnation"`
	SpeciesElitism     int    `ini:"species_elitism"`
}

// Keys that must be present; everything else falls back to the neat-python default.
var requiredKeys = map[string][]string{
	"NEAT": {"pop_size", "fitness_criterion", "fitness_threshold", "reset_on_extinction"},
	"DefaultGenome": {
		"num_inputs", "num_outputs", "num_hidden", "feed_forward",
		"compatibility_disjoint_coefficient", "compatibility_weight_coefficient",
		"conn_add_prob", "conn_delete_prob", "node_add_prob", "node_delete_prob",
		"bias_init_mean", "bias_init_stdev", "bias_replace_rate", "bias_mutate_rate",
		"bias_mutate_power", "bias_max_value", "bias_min_value",
		"response_init_mean", "response_init_stdev", "response_replace_rate",
		"response_mutate_rate", "response_mutate_power", "response_max_value", "response_min_value",
		"activation_default", "activation_options", "activation_mutate_rate",
		"aggregation_default", "aggregation_options", "aggregation_mutate_rate",
		"weight_init_mean", "weight_init_stdev", "weight_replace_rate", "weight_mutate_rate",
		"weight_mutate_power", "weight_max_value", "weight_min_value",
		"enabled_default", "enabled_mutate_rate",
	},
	"DefaultReproduction": {},
	"DefaultSpeciesSet":   {"compatibility_threshold"},
	"DefaultStagnation":   {},
}

// LoadConfig loads configuration parameters from a neat-python style INI file.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	return parseConfig(cfg)
}

// ParseConfig parses configuration from in-memory INI data.
func ParseConfig(data []byte) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		UnescapeValueCommentSymbols: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return parseConfig(cfg)
}

func parseConfig(cfg *ini.File) (*Config, error) {
	for _, section := range []string{"NEAT", "DefaultGenome", "DefaultReproduction", "DefaultSpeciesSet", "DefaultStagnation"} {
		s, err := cfg.GetSection(section)
		if err != nil {
			return nil, fmt.Errorf("config error: missing section [%s]", section)
		}
		for _, key := range requiredKeys[section] {
			if !s.HasKey(key) {
				return nil, fmt.Errorf("config error: missing [%s] %s", section, key)
			}
		}
	}

	config := &Config{
		Genome: GenomeConfig{
			StructuralMutationSurer: "default",
			InitialConnection:       "unconnected",
			BiasInitType:            "gaussian",
			ResponseInitType:        "gaussian",
			WeightInitType:          "gaussian",
		},
		Reproduction: ReproductionConfig{
			Elitism:           0,
			SurvivalThreshold: 0.2,
			MinSpeciesSize:    1,
		},
		Stagnation: StagnationConfig{
			SpeciesFitnessFunc: "mean",
			MaxStagnation:      15,
			SpeciesElitism:     0,
		},
	}

	sections := []struct {
		name string
		dst  any
	}{
		{"NEAT", &config.Neat},
		{"DefaultGenome", &config.Genome},
		{"DefaultReproduction", &config.Reproduction},
		{"DefaultSpeciesSet", &config.SpeciesSet},
		{"DefaultStagnation", &config.Stagnation},
	}
	for _, s := range sections {
		if err := cfg.Section(s.name).StrictMapTo(s.dst); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	g := &config.Genome
	g.InitialConnection = strings.TrimSpace(g.InitialConnection)
	g.StructuralMutationSurer = strings.ToLower(strings.TrimSpace(g.StructuralMutationSurer))
	config.Neat.FitnessCriterion = strings.ToLower(strings.TrimSpace(config.Neat.FitnessCriterion))
	config.Stagnation.SpeciesFitnessFunc = strings.ToLower(strings.TrimSpace(config.Stagnation.SpeciesFitnessFunc))
	g.ActivationOptions = compactFields(g.ActivationOptions)
	g.AggregationOptions = compactFields(g.AggregationOptions)

	g.InputKeys = make([]int, g.NumInputs)
	for i := range g.InputKeys {
		g.InputKeys[i] = -(i + 1)
	}
	g.OutputKeys = make([]int, g.NumOutputs)
	for i := range g.OutputKeys {
		g.OutputKeys[i] = i
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	g := &c.Genome
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	switch c.Neat.FitnessCriterion {
	case "max", "min", "mean":
	default:
		return fmt.Errorf("config error: invalid fitness_criterion '%s', must be one of 'max', 'min', 'mean'", c.Neat.FitnessCriterion)
	}
	if len(g.ActivationOptions) == 0 {
		return fmt.Errorf("config error: activation_options must be specified")
	}
	if len(g.AggregationOptions) == 0 {
		return fmt.Errorf("config error: aggregation_options must be specified")
	}
	if g.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if g.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if g.NumHidden < 0 {
		return fmt.Errorf("config error: num_hidden cannot be negative")
	}
	if g.CompatibilityDisjointCoefficient < 0 || g.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility coefficients cannot be negative")
	}
	probs := map[string]float64{
		"conn_add_prob":    g.ConnAddProb,
		"conn_delete_prob": g.ConnDeleteProb,
		"node_add_prob":    g.NodeAddProb,
		"node_delete_prob": g.NodeDeleteProb,
	}
	for name, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", name)
		}
	}
	if g.BiasMaxValue < g.BiasMinValue {
		return fmt.Errorf("config error: bias_max_value cannot be less than bias_min_value")
	}
	if g.ResponseMaxValue < g.ResponseMinValue {
		return fmt.Errorf("config error: response_max_value cannot be less than response_min_value")
	}
	if g.WeightMaxValue < g.WeightMinValue {
		return fmt.Errorf("config error: weight_max_value cannot be less than weight_min_value")
	}
	for name, t := range map[string]string{"bias_init_type": g.BiasInitType, "response_init_type": g.ResponseInitType, "weight_init_type": g.WeightInitType} {
		switch strings.ToLower(t) {
		case "gaussian", "normal", "uniform":
		default:
			return fmt.Errorf("config error: invalid %s '%s'", name, t)
		}
	}
	switch strings.ToLower(g.EnabledDefault) {
	case "true", "false", "random", "none", "1", "0", "yes", "no", "on", "off":
	default:
		return fmt.Errorf("config error: invalid enabled_default '%s'", g.EnabledDefault)
	}
	switch g.StructuralMutationSurer {
	case "default", "true", "false", "1", "0", "yes", "no", "on", "off":
	default:
		return fmt.Errorf("config error: invalid structural_mutation_surer '%s'", g.StructuralMutationSurer)
	}

	if err := g.parseInitialConnection(); err != nil {
		return err
	}

	if c.Reproduction.SurvivalThreshold < 0 || c.Reproduction.SurvivalThreshold > 1 {
		return fmt.Errorf("config error: survival_threshold must be between 0 and 1")
	}
	if c.Reproduction.MinSpeciesSize <= 0 {
		return fmt.Errorf("config error: min_species_size must be positive")
	}
	if c.Reproduction.Elitism < 0 {
		return fmt.Errorf("config error: elitism cannot be negative")
	}
	if c.SpeciesSet.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if c.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}
	if _, ok := StatFunctions[c.Stagnation.SpeciesFitnessFunc]; !ok {
		return fmt.Errorf("config error: invalid species_fitness_func '%s'", c.Stagnation.SpeciesFitnessFunc)
	}
	return nil
}

// parseInitialConnection validates initial_connection and extracts the
// connection fraction of the partial* schemes ("partial_direct 0.5").
func (gc *GenomeConfig) parseInitialConnection() error {
	fields := strings.Fields(gc.InitialConnection)
	if len(fields) == 0 {
		return fmt.Errorf("config error: initial_connection cannot be empty")
	}
	gc.ConnectionFraction = 1.0
	switch fields[0] {
	case "unconnected", "fs_neat_nohidden", "fs_neat", "fs_neat_hidden",
		"full_nodirect", "full", "full_direct":
		if len(fields) != 1 {
			return fmt.Errorf("config error: initial_connection '%s' takes no argument", fields[0])
		}
	case "partial_nodirect", "partial", "partial_direct":
		if len(fields) != 2 {
			return fmt.Errorf("config error: initial_connection '%s' requires a connection fraction", fields[0])
		}
		f, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("config error: invalid partial connection fraction '%s'", fields[1])
		}
		gc.ConnectionFraction = f
	default:
		return fmt.Errorf("config error: invalid initial_connection type '%s'", fields[0])
	}
	return nil
}

// InitialConnectionType returns the scheme name without its fraction.
func (gc *GenomeConfig) InitialConnectionType() string {
	fields := strings.Fields(gc.InitialConnection)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Validate checks that every activation and aggregation option names a
// registered function. It is called by NewPopulation rather than LoadConfig
// so that custom activations can be registered after the file is read.
func (gc *GenomeConfig) Validate() error {
	for _, name := range gc.ActivationOptions {
		if _, err := GetActivation(name); err != nil {
			return fmt.Errorf("config error: activation_options: %w", err)
		}
	}
	for _, name := range gc.AggregationOptions {
		if _, err := GetAggregation(name); err != nil {
			return fmt.Errorf("config error: aggregation_options: %w", err)
		}
	}
	switch strings.ToLower(gc.ActivationDefault) {
	case "random", "none", "":
	default:
		if _, err := GetActivation(gc.ActivationDefault); err != nil {
			return fmt.Errorf("config error: activation_default: %w", err)
		}
	}
	switch strings.ToLower(gc.AggregationDefault) {
	case "random", "none", "":
	default:
		if _, err := GetAggregation(gc.AggregationDefault); err != nil {
			return fmt.Errorf("config error: aggregation_default: %w", err)
		}
	}
	return nil
}

// structuralMutationSurer reports whether structural mutations that would be
// no-ops should fall back to an equivalent change (enable an existing link,
// add a link instead of splitting one).
func (gc *GenomeConfig) structuralMutationSurer() bool {
	switch gc.StructuralMutationSurer {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return gc.SingleStructuralMutation
	}
}

func (gc *GenomeConfig) isOutput(key int) bool {
	for _, k := range gc.OutputKeys {
		if k == key {
			return true
		}
	}
	return false
}

func compactFields(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.Fields(v)...)
	}
	return out
}
