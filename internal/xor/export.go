package xor

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lucadivit/neat-gdg/internal/visualize"
	"github.com/lucadivit/neat-gdg/neat"
	"github.com/lucadivit/neat-gdg/neat/nn"
)

// Output file names inside the output directory.
const (
	NetworkFile     = "winner_neat_xor.gob"
	DiagramFile     = "neat_xor_winner.png"
	FitnessPlotFile = "avg_fitness.png"
	SummaryFile     = "summary.yaml"

	FitnessCSVFile        = "fitness_history.csv"
	SpeciesCountCSVFile   = "speciation.csv"
	SpeciesFitnessCSVFile = "species_fitness.csv"
)

// Artifacts are the paths written by Export.
type Artifacts struct {
	NetworkPath     string
	DiagramPath     string
	FitnessPlotPath string
	SummaryPath     string

	FitnessCSVPath        string
	SpeciesCountCSVPath   string
	SpeciesFitnessCSVPath string
}

// ArtifactsIn returns the default artifact paths under dir.
func ArtifactsIn(dir string) Artifacts {
	return Artifacts{
		NetworkPath:     filepath.Join(dir, NetworkFile),
		DiagramPath:     filepath.Join(dir, DiagramFile),
		FitnessPlotPath: filepath.Join(dir, FitnessPlotFile),
		SummaryPath:     filepath.Join(dir, SummaryFile),

		FitnessCSVPath:        filepath.Join(dir, FitnessCSVFile),
		SpeciesCountCSVPath:   filepath.Join(dir, SpeciesCountCSVFile),
		SpeciesFitnessCSVPath: filepath.Join(dir, SpeciesFitnessCSVFile),
	}
}

func (a Artifacts) all() []string {
	return []string{a.NetworkPath, a.DiagramPath, a.FitnessPlotPath, a.SummaryPath,
		a.FitnessCSVPath, a.SpeciesCountCSVPath, a.SpeciesFitnessCSVPath}
}

// CaseOutput is the winner's answer to one case.
type CaseOutput struct {
	Inputs   []float64 `yaml:"inputs"`
	Expected []float64 `yaml:"expected"`
	Got      []float64 `yaml:"got"`
}

// Summary is the YAML run report.
type Summary struct {
	Seed        int64        `yaml:"seed"`
	State       string       `yaml:"state"`
	Generations int          `yaml:"generations"`
	WinnerKey   int          `yaml:"winner_key"`
	Fitness     float64      `yaml:"fitness"`
	Nodes       int          `yaml:"nodes"`
	Connections int          `yaml:"enabled_connections"`
	BestFitness []float64    `yaml:"best_fitness"`
	MeanFitness []float64    `yaml:"mean_fitness"`
	Cases       []CaseOutput `yaml:"cases"`
	Network     string       `yaml:"network"`
	Diagram     string       `yaml:"diagram"`
}

// Evaluate runs every case through net.
func Evaluate(net Activator) ([]CaseOutput, error) {
	var out []CaseOutput
	for _, c := range Cases() {
		got, err := net.Activate(c.Inputs)
		if err != nil {
			return nil, err
		}
		out = append(out, CaseOutput{Inputs: c.Inputs, Expected: c.Expected, Got: got})
	}
	return out, nil
}

// Export builds the winner's network, saves it so it can be reloaded with
// nn.Load, and draws its diagram. When stats is non-nil it also writes the
// fitness plot, the statistics CSVs and the YAML summary. Empty optional paths
// are skipped. The first failure is returned.
func Export(result *Result, cfg *neat.Config, seed int64, paths Artifacts) (*nn.FeedForwardNetwork, error) {
	if result == nil || result.Winner == nil {
		return nil, fmt.Errorf("no winner to export")
	}
	net, err := nn.CreateFeedForwardNetwork(result.Winner, &cfg.Genome)
	if err != nil {
		return nil, fmt.Errorf("failed to build winner network: %w", err)
	}

	for _, p := range paths.all() {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := net.Save(paths.NetworkPath); err != nil {
		return nil, err
	}
	if err := visualize.DrawNet(net, paths.DiagramPath, visualize.NetOptions{NodeNames: NodeNames()}); err != nil {
		return nil, err
	}

	if result.Stats == nil {
		return net, nil
	}
	if paths.FitnessPlotPath != "" {
		if err := visualize.PlotStats(result.Stats, paths.FitnessPlotPath); err != nil {
			return nil, err
		}
	}
	if paths.FitnessCSVPath != "" {
		if err := result.Stats.SaveGenomeFitness(paths.FitnessCSVPath, ','); err != nil {
			return nil, err
		}
	}
	if paths.SpeciesCountCSVPath != "" {
		if err := result.Stats.SaveSpeciesCount(paths.SpeciesCountCSVPath, ' '); err != nil {
			return nil, err
		}
	}
	if paths.SpeciesFitnessCSVPath != "" {
		if err := result.Stats.SaveSpeciesFitness(paths.SpeciesFitnessCSVPath, ' ', "NA"); err != nil {
			return nil, err
		}
	}
	if paths.SummaryPath != "" {
		if err := writeSummary(result, net, seed, paths); err != nil {
			return nil, err
		}
	}
	return net, nil
}

func writeSummary(result *Result, net *nn.FeedForwardNetwork, seed int64, paths Artifacts) error {
	outputs, err := Evaluate(net)
	if err != nil {
		return err
	}
	nodes, conns := result.Winner.Size()
	summary := Summary{
		Seed:        seed,
		State:       result.State.String(),
		Generations: result.Stats.Generations(),
		WinnerKey:   result.Winner.Key,
		Fitness:     result.Winner.Fitness,
		Nodes:       nodes,
		Connections: conns,
		BestFitness: result.Stats.GetBestFitness(),
		MeanFitness: result.Stats.GetFitnessMean(),
		Cases:       outputs,
		Network:     paths.NetworkPath,
		Diagram:     paths.DiagramPath,
	}
	data, err := yaml.Marshal(&summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(paths.SummaryPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary '%s': %w", paths.SummaryPath, err)
	}
	return nil
}
