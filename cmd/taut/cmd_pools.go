package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "Inspect unit pools",
	}
	cmd.AddCommand(newPoolsListCmd())
	return cmd
}

type poolListing struct {
	Pool        string  `json:"pool"`
	Name        string  `json:"name"`
	Intent      string  `json:"intent"`
	Tension     float64 `json:"tension"`
	SuccessRate float64 `json:"success_rate"`
	Runs        int     `json:"runs"`
}

func newPoolsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pool members with their tracked metrics",
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

			var listings []poolListing
			for _, p := range pools {
				names, err := rt.pools.List(p)
				if err != nil {
					return err
				}
				for _, name := range names {
					u, err := rt.pools.Load(p, name)
					if err != nil {
						continue
					}
					l := poolListing{
						Pool:        p,
						Name:        name,
						Intent:      u.Intent,
						Tension:     u.Tension,
						SuccessRate: 0.5,
					}
					if stats, ok := rt.metrics.Stats(cmd.Context(), p+"/"+name); ok {
						l.SuccessRate = stats.SuccessRate
						l.Runs = stats.Runs
					}
					listings = append(listings, l)
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(listings)
			}

			out := cmd.OutOrStdout()
			if len(listings) == 0 {
				fmt.Fprintln(out, "No pool members. Seed pools or run 'taut evolve step'.")
				return nil
			}
			for _, l := range listings {
				fmt.Fprintf(out, "%-9s %-24s tension=%.2f rate=%.2f runs=%-4d %s\n",
					l.Pool, l.Name, l.Tension, l.SuccessRate, l.Runs, l.Intent)
			}
			return nil
		},
	}

	cmd.Flags().String("pool", "", "Restrict to one pool")

	return cmd
}
