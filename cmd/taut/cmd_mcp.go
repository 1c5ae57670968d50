package main

import (
	"github.com/spf13/cobra"

	"github.com/tautline/taut/internal/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve taut tools over the Model Context Protocol (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.close()

			s := mcpserver.New("taut", version, mcpserver.Deps{
				Pools:   rt.pools,
				Book:    rt.book,
				Metrics: rt.metrics,
				Interp:  rt.interp,
				Log:     rt.log,
			})
			return s.Run(cmd.Context())
		},
	}
}
