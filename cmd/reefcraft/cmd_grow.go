package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reefcraft/simulation"
)

type growSummary struct {
	Coral     string `json:"coral"`
	Steps     int    `json:"steps"`
	Vertices  int    `json:"vertices"`
	Faces     int    `json:"faces"`
	Subdivide int    `json:"subdivisions"`
	Errors    int    `json:"errors"`
}

func newGrowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grow",
		Short: "Run the growth model headless for a number of steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			every, _ := cmd.Flags().GetInt("report-every")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if steps < 0 {
				return fmt.Errorf("steps must not be negative, got %d", steps)
			}

			s, log, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			reef := simulation.NewReef(log)
			if err := s.BuildReef(reef); err != nil {
				return err
			}

			summaries := make(map[string]*growSummary)
			start := time.Now()
			for i := 0; i < steps; i++ {
				for _, r := range reef.Step() {
					sum, ok := summaries[r.Coral]
					if !ok {
						sum = &growSummary{Coral: r.Coral}
						summaries[r.Coral] = sum
					}
					sum.Steps = r.Result.Step
					sum.Vertices = r.Result.Vertices
					sum.Faces = r.Result.Faces
					if r.Result.TopologyChanged {
						sum.Subdivide++
					}
					if r.Err != nil {
						sum.Errors++
					}
					if !jsonOut && every > 0 && r.Result.Step%every == 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "%-12s step %5d  moved %6d  vertices %7d  faces %7d\n",
							r.Coral, r.Result.Step, r.Result.Moved, r.Result.Vertices, r.Result.Faces)
					}
				}
			}
			log.Info("grow finished", "steps", steps, "took", time.Since(start))

			out := make([]growSummary, 0, len(summaries))
			for _, snap := range reef.Snapshots() {
				sum, ok := summaries[snap.Coral]
				if !ok {
					sum = &growSummary{Coral: snap.Coral, Vertices: len(snap.Vertices), Faces: len(snap.Faces)}
				}
				out = append(out, *sum)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			for _, sum := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d steps, %d vertices, %d faces, %d subdivisions, %d errors\n",
					sum.Coral, sum.Steps, sum.Vertices, sum.Faces, sum.Subdivide, sum.Errors)
			}
			return nil
		},
	}

	cmd.Flags().Int("steps", 80, "Number of growth steps")
	cmd.Flags().Int("report-every", 0, "Print a line per coral every N steps (0 = summary only)")
	return cmd
}
