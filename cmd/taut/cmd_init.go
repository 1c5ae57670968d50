package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tautline/taut/internal/config"
	"github.com/tautline/taut/internal/pool"
	"github.com/tautline/taut/internal/seed"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data directory and a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if dataDir, _ := cmd.Flags().GetString("data"); dataDir != "" {
				cfg.DataDir = dataDir
			}

			for _, sub := range []string{"pools", "units", "archive", "memory", "blueprints"} {
				if err := os.MkdirAll(filepath.Join(cfg.DataDir, sub), 0o700); err != nil {
					return fmt.Errorf("creating %s: %w", sub, err)
				}
			}

			configPath := filepath.Join(cfg.DataDir, "config.yaml")
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				content := fmt.Sprintf(`# taut configuration
# created: %s

# generation:
#   provider: anthropic        # anthropic, openai, local, or static
#   api_key: ${ANTHROPIC_API_KEY}
#   model: claude-3-haiku-20240307

# logging:
#   level: info                # info, debug, or trace
`, time.Now().Format(time.RFC3339))
				if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
					return fmt.Errorf("writing config.yaml: %w", err)
				}
			}

			seeded, err := seed.NewSeeder(pool.NewStore(cfg.DataDir)).Seed()
			if err != nil {
				return fmt.Errorf("seeding pools: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status": "initialized",
					"path":   cfg.DataDir,
					"seeded": len(seeded.Added),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized taut data directory at %s (%d starter units)\n",
				cfg.DataDir, len(seeded.Added))
			return nil
		},
	}
}
