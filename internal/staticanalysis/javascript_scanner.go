package staticanalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// jsAnalyzerScript is the external Node script this scanner delegates to,
// grounded on the original implementation's static_analyzer/nodejs.rs: JS
// source is handed to a real JS-aware scanner rather than text-matched here,
// since brace/indentation heuristics are far less reliable across the
// language's syntax variety than for Go/Java/Rust.
const jsAnalyzerScript = "analyzers/nodejs/static_analyzer.js"

// JavaScriptScanner shells out to a Node.js script and translates its JSON
// report into the shared StaticEscape shape. It still satisfies Scanner so
// the orchestrator treats every language uniformly.
type JavaScriptScanner struct {
	ScriptPath string
}

func NewJavaScriptScanner() *JavaScriptScanner {
	return &JavaScriptScanner{ScriptPath: jsAnalyzerScript}
}

func (s *JavaScriptScanner) Language() string { return "javascript" }

func (s *JavaScriptScanner) IsAvailable() bool {
	_, err := exec.Command("node", "--version").Output()
	return err == nil
}

type jsAnalysis struct {
	Escapes []jsEscape `json:"escapes"`
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
}

type jsEscape struct {
	EscapeType   string `json:"escape_type"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
	VariableName string `json:"variable_name"`
	Reason       string `json:"reason"`
	Confidence   string `json:"confidence"`
	CodeSnippet  string `json:"code_snippet,omitempty"`
}

func (s *JavaScriptScanner) Analyze(target, sourceFile string) (*protocol.StaticAnalysisResult, error) {
	start := time.Now()
	function := targetFunction(target)
	if function == "" {
		return nil, fmt.Errorf("invalid target format %q: expected module:function", target)
	}

	script := s.ScriptPath
	if script == "" {
		script = jsAnalyzerScript
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("static analyzer script not found at %s: %w", script, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "node", script, sourceFile, function)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("node static analyzer failed: %s", stderr.String())
	}

	var analysis jsAnalysis
	if err := json.Unmarshal(stdout.Bytes(), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer output: %w", err)
	}
	if !analysis.Success && analysis.Error != "" {
		return nil, fmt.Errorf("analysis error: %s", analysis.Error)
	}

	escapes := make([]protocol.StaticEscape, 0, len(analysis.Escapes))
	for _, e := range analysis.Escapes {
		escapes = append(escapes, protocol.StaticEscape{
			EscapeType: jsEscapeType(e.EscapeType),
			Location: protocol.SourceLocation{
				File:        sourceFile,
				Line:        e.Line,
				Column:      e.Column,
				Function:    function,
				CodeSnippet: e.CodeSnippet,
			},
			VariableName: e.VariableName,
			Reason:       e.Reason,
			Confidence:   jsConfidence(e.Confidence),
		})
	}

	return &protocol.StaticAnalysisResult{
		Target:         target,
		SourceFile:     sourceFile,
		Escapes:        escapes,
		AnalysisTimeMs: uint64(time.Since(start).Milliseconds()),
		Warnings:       nil,
		Summary:        newSummary(escapes),
	}, nil
}

func jsEscapeType(s string) protocol.EscapeType {
	switch s {
	case "return":
		return protocol.EscapeReturn
	case "parameter":
		return protocol.EscapeParameter
	case "global":
		return protocol.EscapeGlobal
	case "closure":
		return protocol.EscapeClosure
	case "heap":
		return protocol.EscapeHeap
	case "concurrency":
		return protocol.EscapeConcurrency
	default:
		return protocol.EscapeUnknown
	}
}

func jsConfidence(s string) protocol.ConfidenceLevel {
	switch s {
	case "high":
		return protocol.ConfidenceHigh
	case "medium":
		return protocol.ConfidenceMedium
	default:
		return protocol.ConfidenceLow
	}
}
