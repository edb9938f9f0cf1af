package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dkrasner/escapewatch/internal/protocol"
	"github.com/stretchr/testify/require"
)

func sampleResponse() *protocol.AnalyzeResponse {
	return &protocol.AnalyzeResponse{
		SessionID:       "s1",
		Language:        "python",
		AnalyzerVersion: "1.0.0",
		AnalysisMode:    protocol.ModeDynamic,
		Results: []protocol.ExecutionResult{
			{InputData: "hello", Success: true, ExecutionTimeMs: 12},
			{InputData: "\"quoted\"", Crashed: true, EscapeDetected: true,
				EscapeDetails: protocol.EscapeDetails{Threads: []protocol.ThreadEscape{{ThreadID: "t1", Name: "worker", State: "alive"}}}},
		},
		Vulnerabilities: []protocol.Vulnerability{
			{Input: "hello", VulnerabilityType: "ThreadLeak", Severity: "high", Description: "leaked thread"},
		},
		Summary: protocol.ExecutionSummary{TotalTests: 2, Successes: 1, Crashes: 1, Escapes: 1, GenuineEscapes: 1, CrashRate: 0.5},
	}
}

func TestGenerateWritesAllThreeFiles(t *testing.T) {
	g := NewGenerator(t.TempDir())
	sessionDir, err := g.Generate(sampleResponse(), "tests/python/leak.py:leak_worker")
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(sessionDir, "README.md"))
	require.FileExists(t, filepath.Join(sessionDir, "results.csv"))
	require.FileExists(t, filepath.Join(sessionDir, "vulnerabilities.md"))

	readme, err := os.ReadFile(filepath.Join(sessionDir, "README.md"))
	require.NoError(t, err)
	require.Contains(t, string(readme), "tests/python/leak.py:leak_worker")
	require.Contains(t, string(readme), "Genuine Escapes")
}

func TestGenerateSkipsVulnerabilityReportWhenEmpty(t *testing.T) {
	resp := sampleResponse()
	resp.Vulnerabilities = nil

	g := NewGenerator(t.TempDir())
	sessionDir, err := g.Generate(resp, "x")
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(sessionDir, "vulnerabilities.md"))
}

func TestGenerateCSVEscapesQuotedInput(t *testing.T) {
	g := NewGenerator(t.TempDir())
	sessionDir, err := g.Generate(sampleResponse(), "x")
	require.NoError(t, err)

	csv, err := os.ReadFile(filepath.Join(sessionDir, "results.csv"))
	require.NoError(t, err)
	require.Contains(t, string(csv), `""quoted""`)
}
