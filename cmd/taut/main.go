package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taut",
		Short: "Tension-driven units - programs as data",
		Long: `taut runs small programs expressed entirely as data: graphs of
nodes and edges with a scalar drive (tension) that decides what runs,
evolves, and gets remembered.

Units live in pools, selection and pruning follow tracked success
rates, and lessons from past runs form a living memory.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default ~/.taut/config.yaml)")
	rootCmd.PersistentFlags().String("data", "", "Data directory (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newRunCmd(),
		newPoolsCmd(),
		newEvolveCmd(),
		newMemoryCmd(),
		newMCPCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "taut version %s\n", version)
			}
		},
	}
}
