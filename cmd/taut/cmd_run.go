package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tautline/taut/internal/graph"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <unit-file-or-id>",
		Short: "Run a unit and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			var u *graph.Unit
			if _, statErr := os.Stat(args[0]); statErr == nil {
				u, err = graph.LoadFile(args[0])
			} else {
				u, err = rt.pools.LoadByID(args[0])
			}
			if err != nil {
				return err
			}

			initial := map[string]any{}
			if inputJSON, _ := cmd.Flags().GetString("input"); inputJSON != "" {
				var input any
				if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
					return fmt.Errorf("parsing --input: %w", err)
				}
				initial["input"] = input
			}

			res := rt.interp.Run(cmd.Context(), u, initial)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "unit:    %s (%s)\n", u.Intent, u.ID)
			fmt.Fprintf(out, "success: %v\n", res.Success)
			fmt.Fprintf(out, "result:  %v\n", res.Value)
			for _, entry := range res.History {
				fmt.Fprintf(out, "  %s %s\n", entry.NodeID, entry.Action)
			}
			for _, e := range res.Errors {
				fmt.Fprintf(out, "error: %s\n", e)
			}
			return nil
		},
	}

	cmd.Flags().String("input", "", "Initial input as a JSON value")

	return cmd
}
