package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/pkg/core/services"
)

// AllocateCmd creates the allocate command
func AllocateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate [date]",
		Short: "Run one allocation pass over every planet",
		Long: `Allocate workers and energy to every building for one day.
Without a date the pass runs for the day after the latest saved pass.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			day, err := passDay(app, args)
			if err != nil {
				return err
			}

			app.Logger.Debug("allocate command",
				zap.String("day", day.Format("2006-01-02")),
				zap.Bool("dry_run", dryRun))

			result, err := services.AllocatePass(app.Ctx, app.Database, app.Engine, app.Cfg, app.Logger, day, dryRun, app.Metrics)
			if err != nil {
				return fmt.Errorf("allocation failed: %w", err)
			}

			printPassResult(result)
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Compute allocations without saving them")

	return cmd
}

func passDay(app *AppContext, args []string) (time.Time, error) {
	if len(args) == 1 {
		day, err := time.Parse("2006-01-02", args[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
		return day, nil
	}
	return services.NextPassDay(app.Ctx, app.Database, app.Cfg)
}

func printPassResult(result *services.PassResult) {
	fmt.Printf("\n⚙️  Allocation Pass %s\n\n", result.Pass.Day)
	if result.Pass.DryRun {
		fmt.Printf("Mode:    🧪 DRY RUN (not saved)\n")
	} else {
		fmt.Printf("Pass ID: %s\n", result.Pass.ID)
	}
	fmt.Printf("Planets: %d (%d failed)\n\n", len(result.Planets), result.Failed())

	for _, p := range result.Planets {
		if p.Err != nil {
			fmt.Printf("❌ %s (%s): %v\n\n", p.Planet.Name, p.Planet.ID, p.Err)
			continue
		}

		strategy := p.Outcome.Strategy
		if p.Outcome.FellBack {
			strategy += " → uniform_damage_aware"
		}
		fmt.Printf("🪐 %s (%s) - %s\n", p.Planet.Name, p.Planet.ID, strategy)
		fmt.Printf("   Workers: %d/%d", p.Outcome.WorkerAllocated, p.Outcome.WorkerDemand)
		if short := p.WorkerShortage(); short > 0 {
			fmt.Printf("  ⚠️  short %d", short)
		}
		fmt.Printf("\n   Energy:  %d/%d (produced %d)", p.Outcome.EnergyConsumed, p.Outcome.EnergyDemand, p.Outcome.EnergyProduced)
		if short := p.EnergyShortage(); short > 0 {
			fmt.Printf("  ⚠️  short %d", short)
		}
		fmt.Println()

		for _, b := range p.Buildings {
			marker := " "
			if !b.Participates() {
				marker = "-"
			}
			fmt.Printf("   %s %-24s %-12s workers %4d/%-4d energy %4d/%-4d eff %3.0f%%\n",
				marker,
				b.Name,
				b.Kind,
				b.WorkerAllocated, b.WorkerDemand,
				b.EnergyAllocated, b.EnergyDemand,
				b.Efficiency()*100)
		}
		for _, v := range p.Outcome.Violations {
			fmt.Printf("   ⚠️  %s: %s\n", v.Property, v.Description)
		}
		fmt.Println()
	}
}
