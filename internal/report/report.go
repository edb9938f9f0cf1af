// Package report renders an AnalyzeResponse to the on-disk report contract
// (README.md, results.csv, vulnerabilities.md), grounded on report.rs.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// Generator writes a session's reports under a timestamped subdirectory of
// OutputDir.
type Generator struct {
	OutputDir string
}

func NewGenerator(outputDir string) *Generator {
	return &Generator{OutputDir: outputDir}
}

// Generate writes README.md and results.csv always, and vulnerabilities.md
// only when the response carries at least one vulnerability. It returns the
// session directory it wrote to.
func (g *Generator) Generate(resp *protocol.AnalyzeResponse, target string) (string, error) {
	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	sessionDir := filepath.Join(g.OutputDir, "session_"+time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}

	if err := g.writeSummary(sessionDir, resp, target); err != nil {
		return "", err
	}
	if err := g.writeCSV(sessionDir, resp); err != nil {
		return "", err
	}
	if len(resp.Vulnerabilities) > 0 {
		if err := g.writeVulnerabilityReport(sessionDir, resp); err != nil {
			return "", err
		}
	}

	return sessionDir, nil
}

func (g *Generator) writeSummary(dir string, resp *protocol.AnalyzeResponse, target string) error {
	s := resp.Summary
	content := fmt.Sprintf(`# Escape Analysis Report

**Target:** `+"`%s`"+`
**Language:** %s
**Analyzer Version:** %s
**Session ID:** %s
**Generated:** %s

## Summary

| Metric | Value |
|--------|-------|
| Total Tests | %d |
| Successes | %d ✓ |
| Crashes | %d ✗ |
| Timeouts | %d ⏱ |
| Escapes Detected | %d 🚨 |
| Genuine Escapes | %d |
| Crash Rate | %.1f%% |

## Vulnerabilities

%s

## Test Results

%s
`,
		target, resp.Language, resp.AnalyzerVersion, resp.SessionID,
		time.Now().Format("2006-01-02 15:04:05"),
		s.TotalTests, s.Successes, s.Crashes, s.Timeouts, s.Escapes, s.GenuineEscapes, s.CrashRate*100.0,
		formatVulnerabilities(resp.Vulnerabilities),
		formatResults(resp),
	)
	return os.WriteFile(filepath.Join(dir, "README.md"), []byte(content), 0o644)
}

func (g *Generator) writeCSV(dir string, resp *protocol.AnalyzeResponse) error {
	f, err := os.Create(filepath.Join(dir, "results.csv"))
	if err != nil {
		return fmt.Errorf("create results.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"input", "success", "crashed", "escape_detected", "escape_summary", "error", "execution_time_ms"}); err != nil {
		return err
	}
	for _, r := range resp.Results {
		row := []string{
			r.InputData,
			strconv.FormatBool(r.Success),
			strconv.FormatBool(r.Crashed),
			strconv.FormatBool(r.EscapeDetected),
			r.EscapeDetails.Summary(),
			r.Error,
			strconv.FormatUint(r.ExecutionTimeMs, 10),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return nil
}

func (g *Generator) writeVulnerabilityReport(dir string, resp *protocol.AnalyzeResponse) error {
	var b strings.Builder
	b.WriteString("# Vulnerability Report\n\n")

	for i, v := range resp.Vulnerabilities {
		fmt.Fprintf(&b, `## Vulnerability #%d - %s

**Type:** `+"`%s`"+`
**Severity:** %s
**Input:** `+"`%s`"+`

**Description:**
%s

**Escape Details:**
%s

---

`,
			i+1, v.VulnerabilityType, v.VulnerabilityType, strings.ToUpper(v.Severity), v.Input, v.Description,
			formatEscapeDetails(v.EscapeDetails))
	}

	return os.WriteFile(filepath.Join(dir, "vulnerabilities.md"), []byte(b.String()), 0o644)
}

func formatVulnerabilities(vulns []protocol.Vulnerability) string {
	if len(vulns) == 0 {
		return "✅ **No vulnerabilities detected**"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ **%d vulnerabilities found:**\n\n", len(vulns))
	for i, v := range vulns {
		fmt.Fprintf(&b, "%d. **[%s]** %s - Input: `%s`\n", i+1, strings.ToUpper(v.Severity), v.VulnerabilityType, v.Input)
	}
	return b.String()
}

func formatResults(resp *protocol.AnalyzeResponse) string {
	var b strings.Builder
	b.WriteString("| Input | Status | Escape | Details |\n")
	b.WriteString("|-------|--------|--------|----------|\n")

	for _, r := range resp.Results {
		status := "⚠️ FAIL"
		if r.Crashed {
			status = "❌ CRASH"
		} else if r.Success {
			status = "✅ OK"
		}
		escape := "✓ NO"
		if r.EscapeDetected {
			escape = "🚨 YES"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", r.InputData, status, escape, r.EscapeDetails.Summary())
	}
	return b.String()
}

func formatEscapeDetails(d protocol.EscapeDetails) string {
	var b strings.Builder

	if len(d.Threads) > 0 {
		b.WriteString("**Threads:**\n")
		for _, th := range d.Threads {
			daemon := "[non-daemon]"
			if th.IsDaemon {
				daemon = "[daemon]"
			}
			fmt.Fprintf(&b, "- %s (%s): %s %s\n", th.Name, th.ThreadID, th.State, daemon)
		}
	}
	if len(d.Processes) > 0 {
		b.WriteString("\n**Processes:**\n")
		for _, p := range d.Processes {
			fmt.Fprintf(&b, "- PID %d: %s\n", p.PID, p.Name)
		}
	}
	if len(d.AsyncTasks) > 0 {
		b.WriteString("\n**Async Tasks:**\n")
		for _, a := range d.AsyncTasks {
			fmt.Fprintf(&b, "- %s: %s\n", a.TaskType, a.State)
		}
	}
	if len(d.Goroutines) > 0 {
		b.WriteString("\n**Goroutines:**\n")
		for _, gr := range d.Goroutines {
			fmt.Fprintf(&b, "- #%d: %s (%s)\n", gr.GoroutineID, gr.Function, gr.State)
		}
	}

	if b.Len() == 0 {
		b.WriteString("No escape details available")
	}
	return b.String()
}
