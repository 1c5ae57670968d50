package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tautline/taut/internal/evolve"
)

func newEvolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Run the evolution engine over the unit pools",
	}
	cmd.AddCommand(newEvolveStepCmd(), newEvolveLoopCmd(), newEvolvePruneCmd())
	return cmd
}

func newEvolveStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Run one select-run-evaluate-evolve step",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			intent, _ := cmd.Flags().GetString("intent")
			if intent == "" {
				return fmt.Errorf("--intent is required")
			}
			input, _ := cmd.Flags().GetString("input")
			expected, _ := cmd.Flags().GetString("expected")

			task := evolve.Task{Intent: intent}
			if input != "" {
				task.Input = input
			}
			if expected != "" {
				task.Expected = expected
			}

			step, err := rt.engine.Step(cmd.Context(), task)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(step)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "intent:  %s\n", step.Intent)
			for p, name := range step.Selections {
				fmt.Fprintf(out, "  %s: %s\n", p, name)
			}
			fmt.Fprintf(out, "success: %.2f\n", step.Success)
			if step.Evolved != "" {
				fmt.Fprintf(out, "evolved: %s\n", step.Evolved)
			}
			return nil
		},
	}

	cmd.Flags().String("intent", "", "What the composed agent should accomplish")
	cmd.Flags().String("input", "", "Input for the run")
	cmd.Flags().String("expected", "", "Expected output, for scoring")

	return cmd
}

func newEvolveLoopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Run a task list for several rounds and report improvement",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			tasksPath, _ := cmd.Flags().GetString("tasks")
			if tasksPath == "" {
				return fmt.Errorf("--tasks is required")
			}
			data, err := os.ReadFile(tasksPath)
			if err != nil {
				return fmt.Errorf("reading tasks file: %w", err)
			}
			var tasks []evolve.Task
			if err := yaml.Unmarshal(data, &tasks); err != nil {
				return fmt.Errorf("parsing tasks file: %w", err)
			}
			if len(tasks) == 0 {
				return fmt.Errorf("tasks file is empty")
			}

			rounds, _ := cmd.Flags().GetInt("rounds")
			result, err := rt.engine.Loop(cmd.Context(), tasks, rounds)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}

			out := cmd.OutOrStdout()
			for _, r := range result.Rounds {
				fmt.Fprintf(out, "round %d: avg success %.2f\n", r.Round, r.AvgSuccess)
			}
			fmt.Fprintf(out, "improvement: %+.2f over %d tasks\n", result.Improvement, result.TotalTasks)
			return nil
		},
	}

	cmd.Flags().String("tasks", "", "YAML file with a list of tasks (intent, input, expected)")
	cmd.Flags().Int("rounds", 1, "How many rounds to run")

	return cmd
}

func newEvolvePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Archive pool members with enough runs and a poor success rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			pools := []string{}
			if only, _ := cmd.Flags().GetString("pool"); only != "" {
				pools = append(pools, only)
			} else if pools, err = rt.pools.Pools(); err != nil {
				return err
			}

			pruned := map[string][]string{}
			for _, p := range pools {
				names, err := rt.engine.Prune(cmd.Context(), p)
				if err != nil {
					return err
				}
				if len(names) > 0 {
					pruned[p] = names
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(pruned)
			}

			out := cmd.OutOrStdout()
			if len(pruned) == 0 {
				fmt.Fprintln(out, "Nothing to prune.")
				return nil
			}
			for p, names := range pruned {
				for _, name := range names {
					fmt.Fprintf(out, "archived %s/%s\n", p, name)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("pool", "", "Restrict to one pool")

	return cmd
}
