package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/colony-allocator/pkg/core/services"
)

// ListPlanetsCmd creates the listPlanets command
func ListPlanetsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listPlanets",
		Short: "List all planets with their current allocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := services.ListPlanets(app.Ctx, app.Database, app.Logger)
			if err != nil {
				return fmt.Errorf("failed to list planets: %w", err)
			}

			fmt.Printf("\nFound %d planets:\n\n", len(summaries))
			for _, s := range summaries {
				strategy := s.Planet.Strategy
				if strategy == "" {
					strategy = app.Cfg.DefaultStrategy + " (default)"
				}
				status := ""
				if s.Planet.Paused {
					status = " [paused]"
				}
				fmt.Printf("- %s (%s)%s - %s - %d/%d buildings active - workers %d/%d (pool %d) - energy %d/%d (produced %d)\n",
					s.Planet.Name,
					s.Planet.ID,
					status,
					strategy,
					s.Participating,
					s.Buildings,
					s.WorkerAllocated,
					s.WorkerDemand,
					s.Planet.AvailableWorkers,
					s.EnergyAllocated,
					s.EnergyDemand,
					s.EnergyProduced,
				)
			}
			fmt.Println()

			return nil
		},
	}
}
