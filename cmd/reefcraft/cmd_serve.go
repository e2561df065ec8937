package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"reefcraft/server"
	"reefcraft/simulation"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation and stream it to websocket viewers",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				s.Server.Addr = addr
			}

			reef := simulation.NewReef(log)
			if err := s.BuildReef(reef); err != nil {
				return err
			}
			engine := simulation.NewEngine(reef, nil, s.TickInterval(), log)
			if start, _ := cmd.Flags().GetBool("start"); start {
				engine.Start()
			}
			hub := server.NewHub(engine, s.UpdateInterval(), log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return engine.Run(ctx) })
			g.Go(func() error { return hub.Run(ctx) })
			g.Go(func() error { return hub.ListenAndServe(ctx, s.Server.Addr) })
			return g.Wait()
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides settings)")
	cmd.Flags().Bool("start", false, "Start stepping immediately instead of waiting for a viewer")
	return cmd
}
