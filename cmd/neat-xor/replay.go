package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucadivit/neat-gdg/internal/xor"
	"github.com/lucadivit/neat-gdg/neat/nn"
)

func newReplayCmd() *cobra.Command {
	var networkPath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reload a saved winner network and print its answers to the XOR cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			net, err := nn.Load(networkPath)
			if err != nil {
				return err
			}
			return printCases(cmd.OutOrStdout(), net)
		},
	}
	cmd.Flags().StringVar(&networkPath, "network", filepath.Join("data", "neat", xor.NetworkFile), "saved network file")
	return cmd
}
