package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/colony-allocator/pkg/core/services"
)

// ImportWorldCmd creates the importWorld command
func ImportWorldCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "importWorld <file>",
		Short: "Import planets and buildings from a snapshot (.json or .json.zst)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.ImportWorld(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Printf("\n✓ Imported %d planets and %d buildings from %s\n\n", result.Planets, result.Buildings, args[0])
			return nil
		},
	}
}

// ExportWorldCmd creates the exportWorld command
func ExportWorldCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exportWorld <file>",
		Short: "Export planets and buildings to a snapshot (.zst suffix compresses)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			world, err := services.ExportWorld(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			fmt.Printf("\n✓ Exported %d planets and %d buildings to %s\n\n", len(world.Planets), len(world.Buildings), args[0])
			return nil
		},
	}
}
