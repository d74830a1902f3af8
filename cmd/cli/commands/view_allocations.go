package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/colony-allocator/pkg/core/services"
)

// ViewAllocationsCmd creates the viewAllocations command
func ViewAllocationsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "viewAllocations [pass_id]",
		Short: "Show the allocations saved by a pass (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passID := ""
			if len(args) == 1 {
				passID = args[0]
			}

			result, err := services.ViewAllocations(app.Ctx, app.Database, app.Logger, passID)
			if err != nil {
				return err
			}

			fmt.Printf("\n📋 Pass %s (%s)\n", result.Pass.ID, result.Pass.Day)
			fmt.Printf("Created: %s\n\n", result.Pass.CreatedAt.Format("2006-01-02 15:04:05"))

			fmt.Printf("%-16s %-24s %-22s %10s %10s\n", "PLANET", "BUILDING", "STRATEGY", "WORKERS", "ENERGY")
			for _, a := range result.Allocations {
				strategy := a.Strategy
				if a.FellBack {
					strategy += "*"
				}
				fmt.Printf("%-16s %-24s %-22s %4d/%-5d %4d/%-5d\n",
					a.PlanetID,
					a.BuildingID,
					strategy,
					a.WorkerAllocated, a.WorkerDemand,
					a.EnergyAllocated, a.EnergyDemand)
			}
			fmt.Println()

			return nil
		},
	}
}
