package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkrasner/escapewatch/internal/orchestrator"
)

var listDetailed bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available analyzers",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := buildRegistry()
		listings := orchestrator.ListAnalyzers(cmd.Context(), reg)

		fmt.Println()
		fmt.Println(headingStyle.Render("Available Escape Analyzers"))
		fmt.Println()

		for _, l := range listings {
			fmt.Printf("%s (%s)\n", l.Info.Name, l.Info.Language)
			fmt.Printf("  Version: %s\n", l.Info.Version)
			fmt.Printf("  Executable: %s\n", l.Info.ExecutablePath)
			if l.Err != nil {
				fmt.Println(failStyle.Render(fmt.Sprintf("  Health check failed: %v", l.Err)))
			}
			if listDetailed {
				fmt.Println("  Supported Features:")
				for _, feature := range l.Info.SupportedFeatures {
					fmt.Printf("    - %s\n", feature)
				}
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listDetailed, "detailed", "d", false, "show detailed analyzer capabilities")
}
