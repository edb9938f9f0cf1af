package cli

import (
	"github.com/spf13/cobra"

	"github.com/dkrasner/escapewatch/internal/orchestrator"
)

var (
	runAllTestDir  string
	runAllGenerate int
	runAllOutDir   string
	runAllLanguage string
)

var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Run all test suites across all languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := buildRegistry()
		return orchestrator.RunAllTests(cmd.Context(), reg, orchestrator.RunAllOptions{
			TestDir:        runAllTestDir,
			Generate:       runAllGenerate,
			OutputDir:      runAllOutDir,
			LanguageFilter: runAllLanguage,
		})
	},
}

func init() {
	runAllCmd.Flags().StringVarP(&runAllTestDir, "test-dir", "t", "tests", "root test directory")
	runAllCmd.Flags().IntVarP(&runAllGenerate, "generate", "g", 10, "number of inputs to generate per test")
	runAllCmd.Flags().StringVarP(&runAllOutDir, "output-dir", "o", "logs", "output directory for reports")
	runAllCmd.Flags().StringVar(&runAllLanguage, "language", "", "filter by language (python, java, javascript, go, rust)")
}
