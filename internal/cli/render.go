// Package cli implements the three cobra subcommands (analyze, run-all,
// list) and their terminal rendering. Grounded on the teacher's cmd/root.go
// cobra wiring plus slog logger setup. Markdown/badge styling is grounded
// on tui/format.go's glamour.TermRenderer usage and invowk's lipgloss badge
// patterns in cmd/invowk/cmd.go.
package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

var (
	passStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	escapeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

// renderMarkdown echoes already-written Markdown content to the terminal
// through glamour. It never alters the file on disk; report.Generator owns
// those bytes, this only re-renders them for a human at a shell.
func renderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("cli: building markdown renderer: %w", err)
	}
	return renderer.Render(content)
}

// printSummary renders the terminal summary block for one AnalyzeResponse,
// in the same shape/order as print_summary: static section (if present),
// then dynamic section (if the mode ran one).
func printSummary(resp *protocol.AnalyzeResponse) {
	fmt.Println()
	fmt.Println(headingStyle.Render("Analysis Summary"))
	fmt.Printf("Language: %s\n", resp.Language)
	fmt.Printf("Analysis Mode: %s\n", resp.AnalysisMode)

	if resp.StaticAnalysis != nil {
		printStaticSummary(resp.StaticAnalysis)
	}

	if resp.AnalysisMode == protocol.ModeDynamic || resp.AnalysisMode == protocol.ModeBoth {
		printDynamicSummary(resp)
	}
	fmt.Println()
}

func printStaticSummary(result *protocol.StaticAnalysisResult) {
	fmt.Println()
	fmt.Println(headingStyle.Render("Static Analysis Results"))
	fmt.Printf("Target: %s\n", result.Target)
	fmt.Printf("Source File: %s\n", result.SourceFile)
	fmt.Printf("Analysis Time: %dms\n", result.AnalysisTimeMs)

	s := result.Summary
	fmt.Println()
	fmt.Println("Escape Summary:")
	fmt.Printf("  Total Escapes: %d\n", s.TotalEscapes)
	if s.ConcurrencyEscapes > 0 {
		fmt.Println(escapeStyle.Render(fmt.Sprintf("  Concurrency Escapes: %d", s.ConcurrencyEscapes)))
	}
	if s.ReturnEscapes > 0 {
		fmt.Printf("  Return Escapes: %d\n", s.ReturnEscapes)
	}
	if s.ParameterEscapes > 0 {
		fmt.Printf("  Parameter Escapes: %d\n", s.ParameterEscapes)
	}
	if s.GlobalEscapes > 0 {
		fmt.Printf("  Global Escapes: %d\n", s.GlobalEscapes)
	}
	if s.ClosureEscapes > 0 {
		fmt.Printf("  Closure Escapes: %d\n", s.ClosureEscapes)
	}
	if s.HeapEscapes > 0 {
		fmt.Printf("  Heap Escapes: %d\n", s.HeapEscapes)
	}

	fmt.Println()
	fmt.Println("Confidence Breakdown:")
	fmt.Printf("  High: %d\n", s.HighConfidence)
	fmt.Printf("  Medium: %d\n", s.MediumConfidence)
	fmt.Printf("  Low: %d\n", s.LowConfidence)

	if len(result.Warnings) > 0 {
		fmt.Println()
		fmt.Println("Warnings:")
		for _, w := range result.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
}

func printDynamicSummary(resp *protocol.AnalyzeResponse) {
	s := resp.Summary
	fmt.Println()
	fmt.Println(headingStyle.Render("Dynamic Analysis Results"))
	fmt.Printf("Total Tests: %d\n", s.TotalTests)
	fmt.Println(passStyle.Render(fmt.Sprintf("Successes: %d", s.Successes)))
	fmt.Println(failStyle.Render(fmt.Sprintf("Crashes: %d", s.Crashes)))
	fmt.Printf("Timeouts: %d\n", s.Timeouts)
	fmt.Println(escapeStyle.Render(fmt.Sprintf("Escapes Detected: %d", s.Escapes)))
	fmt.Printf("Genuine Escapes: %d\n", s.GenuineEscapes)
	fmt.Printf("Crash Rate: %.1f%%\n", s.CrashRate*100)

	if len(resp.Vulnerabilities) > 0 {
		fmt.Println()
		fmt.Println(failStyle.Render("VULNERABILITIES FOUND:"))
		for _, v := range resp.Vulnerabilities {
			fmt.Printf("  [%s] %s - %s\n", v.Severity, v.VulnerabilityType, v.Description)
		}
	} else {
		fmt.Println()
		fmt.Println(passStyle.Render("No runtime vulnerabilities detected"))
	}
}
