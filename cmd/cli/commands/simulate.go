package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jakechorley/colony-allocator/pkg/core/services"
	"github.com/jakechorley/colony-allocator/pkg/metrics"
)

// SimulateCmd creates the simulate command
func SimulateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run allocation passes for consecutive days",
		Long: `Run one allocation pass per day, starting the day after the latest saved pass
(or --start). --per-second paces the passes; 0 runs them as fast as possible.
When metrics are enabled they are served for the length of the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			perSecond, _ := cmd.Flags().GetFloat64("per-second")
			startFlag, _ := cmd.Flags().GetString("start")

			var startArgs []string
			if startFlag != "" {
				startArgs = []string{startFlag}
			}
			start, err := passDay(app, startArgs)
			if err != nil {
				return err
			}

			limit := rate.Inf
			if perSecond > 0 {
				limit = rate.Limit(perSecond)
			}
			limiter := rate.NewLimiter(limit, 1)

			ctx, cancel := context.WithCancel(app.Ctx)
			defer cancel()

			if app.Cfg.Metrics.Enabled {
				go func() {
					if err := metrics.Serve(ctx, app.Cfg.Metrics.Addr, app.Registry, app.Logger); err != nil {
						app.Logger.Error("Metrics server failed", zap.Error(err))
					}
				}()
			}

			began := time.Now()
			result, err := services.Simulate(ctx, app.Database, app.Engine, app.Cfg, app.Logger, start, days, limiter, app.Metrics)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			workers, energy := result.Shortages()
			failed := 0
			for _, pass := range result.Passes {
				failed += pass.Failed()
			}

			fmt.Printf("\n📈 Simulation Results\n\n")
			fmt.Printf("Days:            %d (%s to %s)\n", len(result.Passes), start.Format("2006-01-02"), start.AddDate(0, 0, days-1).Format("2006-01-02"))
			fmt.Printf("Elapsed:         %s\n", time.Since(began).Round(time.Millisecond))
			fmt.Printf("Failed planets:  %d\n", failed)
			fmt.Printf("Worker shortage: %d worker-days\n", workers)
			fmt.Printf("Energy shortage: %d unit-days\n\n", energy)

			return nil
		},
	}

	cmd.Flags().Int("days", 7, "Number of days to simulate")
	cmd.Flags().Float64("per-second", 0, "Maximum passes per second (0 for unlimited)")
	cmd.Flags().String("start", "", "First day to simulate (YYYY-MM-DD)")

	return cmd
}
