package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and exercise the living memory",
	}
	cmd.AddCommand(
		newMemoryListCmd(),
		newMemoryRecallCmd(),
		newMemoryLearnCmd(),
		newMemoryPruneCmd(),
	)
	return cmd
}

func newMemoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all memories, highest tension first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			all := rt.book.All()

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(all)
			}

			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "No memories yet. Run 'taut memory learn' after a task.")
				return nil
			}
			s := rt.book.Summary()
			fmt.Fprintf(out, "%d memories, avg tension %.2f, %d total uses\n\n", s.Count, s.AvgTension, s.TotalUses)
			for _, m := range all {
				fmt.Fprintf(out, "%.2f  %-12s used=%-3d %s\n", m.Tension, m.ID[len(m.ID)-8:], m.TimesUsed, m.Intent)
			}
			return nil
		},
	}
}

func newMemoryRecallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recall <situation>",
		Short: "Recall memories relevant to a situation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			situation := strings.Join(args, " ")
			rt.book.Sense(cmd.Context(), situation)
			activated, err := rt.book.Activate()
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(activated)
			}

			out := cmd.OutOrStdout()
			if len(activated) == 0 {
				fmt.Fprintln(out, "Nothing relevant came to mind.")
				return nil
			}
			for _, m := range activated {
				fmt.Fprintf(out, "%.2f  %s\n", m.Activation, m.Intent)
				if lesson, ok := m.Content["lesson"].(string); ok && lesson != "" {
					fmt.Fprintf(out, "      %s\n", lesson)
				}
			}
			return nil
		},
	}
}

func newMemoryLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Extract a lesson from a task outcome and store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			task, _ := cmd.Flags().GetString("task")
			result, _ := cmd.Flags().GetString("result")
			success, _ := cmd.Flags().GetBool("success")
			if task == "" {
				return fmt.Errorf("--task is required")
			}

			m, err := rt.book.Learn(cmd.Context(), task, result, success)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if m == nil {
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]bool{"created": false})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "No reusable lesson could be extracted.")
				return nil
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(m)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Learned: %s (%s)\n", m.Intent, m.ID)
			return nil
		},
	}

	cmd.Flags().String("task", "", "What was attempted")
	cmd.Flags().String("result", "", "What happened")
	cmd.Flags().Bool("success", false, "Whether it worked")

	return cmd
}

func newMemoryPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete memories that are both slack and failing",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			removed, err := rt.book.Prune()
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d memories.\n", removed)
			return nil
		},
	}
}
