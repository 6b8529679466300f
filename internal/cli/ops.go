package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/augment/internal/augment"
)

var opsCmd = &cobra.Command{
	Use:   "ops [operation]",
	Short: "List the supported augmentation operations and their parameters",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			k, ok := augment.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown operation %q (run \"augment ops\" for the list)", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Operation:   %s\n", k.Name)
			fmt.Fprintf(out, "Description: %s\n", k.Description)
			if len(k.Params) == 0 {
				fmt.Fprintln(out, "Parameters:  none")
				return nil
			}
			fmt.Fprintln(out, "Parameters:")
			for _, p := range k.Params {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		}

		t := newTable("OPERATION", "PARAMETERS", "DESCRIPTION")
		for _, k := range augment.Kinds() {
			params := strings.Join(k.Params, ", ")
			if params == "" {
				params = "-"
			}
			t.Row(k.Name, params, k.Description)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

// newTable returns a bordered table with a bold header row.
func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}
