package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"reefcraft/config"
	"reefcraft/logging"
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
		Use:   "reefcraft",
		Short: "Coral growth on adaptive triangle meshes",
		Long: `reefcraft grows coral colonies from a seed mesh. Each step pushes
vertices along their normals where the surface is convex enough and
splits edges that grew past the split length.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Settings file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newGrowCmd(),
		newServeCmd(),
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
				fmt.Fprintf(cmd.OutOrStdout(), "reefcraft version %s\n", version)
			}
		},
	}
}

// loadSettings reads --config and applies --log-level before validation
func loadSettings(cmd *cobra.Command) (*config.Settings, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	s, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		s.Logging.Level = lvl
		if err := s.Validate(); err != nil {
			return nil, nil, err
		}
	}
	return s, logging.NewLogger(s.Logging.Level, cmd.ErrOrStderr()), nil
}
