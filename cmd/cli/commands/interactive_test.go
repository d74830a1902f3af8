package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{name: "simple", line: "allocate 2026-01-05 --dry-run", want: []string{"allocate", "2026-01-05", "--dry-run"}},
		{name: "extra spaces", line: "  listPlanets   ", want: []string{"listPlanets"}},
		{name: "double quotes", line: `importWorld "my worlds/terra.json"`, want: []string{"importWorld", "my worlds/terra.json"}},
		{name: "single quotes", line: `exportWorld 'a b.json.zst'`, want: []string{"exportWorld", "a b.json.zst"}},
		{name: "unclosed quote", line: `importWorld "terra.json`, wantErr: true},
		{name: "empty", line: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommandLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// sessionRoot builds a root with a recording allocate command and the interactive command
func sessionRoot(calls *[][]string, dryRuns *[]bool) *cobra.Command {
	root := &cobra.Command{Use: "cli"}

	allocate := &cobra.Command{
		Use:   "allocate [date]",
		Short: "Run one allocation pass",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			*calls = append(*calls, args)
			*dryRuns = append(*dryRuns, dryRun)
			return nil
		},
	}
	allocate.Flags().Bool("dry-run", false, "")

	root.AddCommand(allocate)
	root.AddCommand(InteractiveCmd(&AppContext{}))
	return root
}

func TestRunSession_ResetsFlagsBetweenCommands(t *testing.T) {
	var calls [][]string
	var dryRuns []bool
	root := sessionRoot(&calls, &dryRuns)

	in := strings.NewReader("allocate 2026-01-05 --dry-run\nallocate\nexit\nallocate\n")
	var out bytes.Buffer

	require.NoError(t, runSession(root, in, &out))

	require.Len(t, calls, 2, "commands after exit must not run")
	assert.Equal(t, []string{"2026-01-05"}, calls[0])
	assert.Empty(t, calls[1])
	assert.Equal(t, []bool{true, false}, dryRuns)
	assert.Contains(t, out.String(), "Goodbye")
}

func TestRunSession_ReportsErrors(t *testing.T) {
	var calls [][]string
	var dryRuns []bool
	root := sessionRoot(&calls, &dryRuns)

	in := strings.NewReader("bogus\nallocate a b\ninteractive\nhelp\n")
	var out bytes.Buffer

	require.NoError(t, runSession(root, in, &out))

	assert.Empty(t, calls)
	assert.Contains(t, out.String(), "Unknown command: bogus")
	assert.Contains(t, out.String(), "Unknown command: interactive")
	assert.Contains(t, out.String(), "accepts at most 1 arg")
	assert.Contains(t, out.String(), "allocate [date]")
}
