package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dkrasner/escapewatch/internal/orchestrator"
	"github.com/dkrasner/escapewatch/internal/protocol"
)

var (
	analyzeTarget   string
	analyzeInputs   []string
	analyzeRepeat   int
	analyzeTimeout  float64
	analyzeOutDir   string
	analyzeLanguage string
	analyzeModeFlag string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a function for concurrency escapes",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseAnalysisMode(analyzeModeFlag)
		if err != nil {
			return err
		}
		if analyzeTarget == "" {
			return fmt.Errorf("--target is required")
		}

		reg := buildRegistry()
		result, err := orchestrator.AnalyzeTarget(cmd.Context(), reg, orchestrator.AnalyzeOptions{
			Target:       analyzeTarget,
			Inputs:       analyzeInputs,
			Repeat:       analyzeRepeat,
			Timeout:      analyzeTimeout,
			OutputDir:    analyzeOutDir,
			Language:     analyzeLanguage,
			AnalysisMode: mode,
		})
		if err != nil {
			return err
		}

		printSummary(result.Response)
		echoReadme(result.SessionDir)
		return nil
	},
}

// echoReadme re-renders the report's already-written README.md through
// glamour so the terminal summary is followed by the full styled report,
// without touching the file report.Generator wrote.
func echoReadme(sessionDir string) {
	body, err := os.ReadFile(filepath.Join(sessionDir, "README.md"))
	if err != nil {
		slog.Warn("could not read generated report for terminal echo", "error", err)
		return
	}
	rendered, err := renderMarkdown(string(body))
	if err != nil {
		slog.Warn("could not render report markdown", "error", err)
		return
	}
	fmt.Println(rendered)
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTarget, "target", "t", "", "target function in format file.ext:function")
	analyzeCmd.Flags().StringArrayVarP(&analyzeInputs, "input", "i", nil, "input data for the function (repeatable)")
	analyzeCmd.Flags().IntVarP(&analyzeRepeat, "repeat", "r", 3, "number of times to repeat each input")
	analyzeCmd.Flags().Float64Var(&analyzeTimeout, "timeout", 5.0, "timeout per execution in seconds")
	analyzeCmd.Flags().StringVarP(&analyzeOutDir, "output-dir", "o", "logs", "output directory for reports")
	analyzeCmd.Flags().StringVarP(&analyzeLanguage, "language", "l", "", "language (auto-detected if not specified)")
	analyzeCmd.Flags().StringVarP(&analyzeModeFlag, "analysis-mode", "m", "dynamic", "analysis mode: dynamic, static, or both")
}

func parseAnalysisMode(s string) (protocol.AnalysisMode, error) {
	switch s {
	case "dynamic", "":
		return protocol.ModeDynamic, nil
	case "static":
		return protocol.ModeStatic, nil
	case "both":
		return protocol.ModeBoth, nil
	default:
		return "", fmt.Errorf("unknown analysis mode %q: must be dynamic, static, or both", s)
	}
}
