package staticanalysis

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// JavaScanner is grounded on the original implementation's
// static_analyzer/java.rs: inline Thread-start-without-join detection and
// unjoined Thread/ExecutorService variable tracking across a method body.
type JavaScanner struct{}

func NewJavaScanner() *JavaScanner { return &JavaScanner{} }

func (s *JavaScanner) Language() string { return "java" }

func (s *JavaScanner) IsAvailable() bool {
	_, err := exec.Command("javac", "-version").Output()
	return err == nil
}

func (s *JavaScanner) Analyze(target, sourceFile string) (*protocol.StaticAnalysisResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	source := string(raw)

	method := targetFunction(target)
	var warnings []string
	var escapes []protocol.StaticEscape
	if method != "" {
		escapes = s.analyzeMethod(source, sourceFile, method, &warnings)
	} else {
		escapes = s.analyzeFile(source, sourceFile)
	}

	return &protocol.StaticAnalysisResult{
		Target:         target,
		SourceFile:     sourceFile,
		Escapes:        escapes,
		AnalysisTimeMs: uint64(time.Since(start).Milliseconds()),
		Warnings:       warnings,
		Summary:        newSummary(escapes),
	}, nil
}

func (s *JavaScanner) analyzeFile(source, sourceFile string) []protocol.StaticEscape {
	var escapes []protocol.StaticEscape
	for i, line := range strings.Split(source, "\n") {
		if e, ok := detectJavaThreadCreation(line, sourceFile, i+1, "<class>"); ok {
			escapes = append(escapes, e)
		}
	}
	return escapes
}

func (s *JavaScanner) analyzeMethod(source, sourceFile, method string, warnings *[]string) []protocol.StaticEscape {
	lines := strings.Split(source, "\n")
	var escapes []protocol.StaticEscape
	inTarget := false
	braceDepth := 0
	found := false
	threadVars := map[string]bool{}
	joinedVars := map[string]bool{}

	for idx, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inTarget {
			if name := extractJavaMethodName(trimmed); name != "" && name == method {
				found = true
				inTarget = true
				braceDepth = 0
				if strings.Contains(trimmed, "{") {
					braceDepth = 1
				}
			}
			continue
		}

		if strings.Contains(trimmed, "new Thread") || strings.Contains(trimmed, "new java.lang.Thread") {
			if v, ok := extractJavaThreadVariable(trimmed); ok {
				threadVars[v] = true
			}
			if strings.Contains(trimmed, ".start()") && !strings.Contains(trimmed, ".join()") {
				escapes = append(escapes, protocol.StaticEscape{
					EscapeType: protocol.EscapeConcurrency,
					Location: protocol.SourceLocation{
						File: sourceFile, Line: idx + 1, Column: 0, Function: method,
						CodeSnippet: trimmed,
					},
					VariableName: "thread",
					Reason:       "Thread created and started inline without join",
					Confidence:   protocol.ConfidenceHigh,
				})
			}
		}

		if (strings.Contains(trimmed, "Executors.") || strings.Contains(trimmed, "ExecutorService")) &&
			!strings.Contains(trimmed, ".shutdown()") {
			if v, ok := extractJavaExecutorVariable(trimmed); ok {
				threadVars[v] = true
			}
		}

		if v, ok := extractJavaJoinCall(trimmed); ok {
			joinedVars[v] = true
		}

		if strings.Contains(trimmed, ".shutdown()") || strings.Contains(trimmed, ".awaitTermination(") {
			if v, ok := extractJavaVariableBeforeDot(trimmed); ok {
				joinedVars[v] = true
			}
		}

		braceDepth += countBraces(trimmed)
		if braceDepth <= 0 {
			for v := range threadVars {
				if joinedVars[v] {
					continue
				}
				if lineNum, ok := findJavaVariableLine(lines, method, v, idx); ok {
					escapes = append(escapes, protocol.StaticEscape{
						EscapeType: protocol.EscapeConcurrency,
						Location: protocol.SourceLocation{
							File: sourceFile, Line: lineNum, Column: 0, Function: method,
						},
						VariableName: v,
						Reason:       fmt.Sprintf("Thread/Executor '%s' created but not joined/shutdown", v),
						Confidence:   protocol.ConfidenceHigh,
					})
				}
			}
			break
		}
	}

	if !found {
		*warnings = append(*warnings, fmt.Sprintf("Target method '%s' not found in source file", method))
	}
	return escapes
}

func extractJavaMethodName(line string) string {
	if !strings.Contains(line, "(") {
		return ""
	}
	before := strings.Split(line, "(")[0]
	parts := strings.Fields(before)
	if len(parts) < 2 {
		return ""
	}
	last := parts[len(parts)-1]
	if isValidIdentifier(last) {
		return last
	}
	return ""
}

func extractJavaThreadVariable(line string) (string, bool) {
	idx := strings.Index(line, "Thread ")
	if idx < 0 {
		return "", false
	}
	name := sanitizeIdent(strings.TrimSpace(line[idx+7:]))
	if name == "" || name == "new" {
		return "", false
	}
	return name, true
}

func extractJavaExecutorVariable(line string) (string, bool) {
	idx := strings.Index(line, "ExecutorService ")
	if idx < 0 {
		return "", false
	}
	name := sanitizeIdent(strings.TrimSpace(line[idx+16:]))
	if name == "" {
		return "", false
	}
	return name, true
}

func extractJavaJoinCall(line string) (string, bool) {
	if !strings.Contains(line, ".join()") {
		return "", false
	}
	return extractJavaVariableBeforeDot(line)
}

func extractJavaVariableBeforeDot(line string) (string, bool) {
	dotIdx := strings.Index(line, ".")
	if dotIdx < 0 {
		return "", false
	}
	before := []rune(line[:dotIdx])
	var b []rune
	for i := len(before) - 1; i >= 0; i-- {
		ch := before[i]
		if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b = append([]rune{ch}, b...)
		} else if len(b) > 0 {
			break
		}
	}
	name := string(b)
	if name == "" {
		return "", false
	}
	return name, true
}

func findJavaVariableLine(lines []string, method, varName string, maxIdx int) (int, bool) {
	inMethod := false
	for idx := 0; idx <= maxIdx && idx < len(lines); idx++ {
		line := lines[idx]
		if !inMethod {
			if name := extractJavaMethodName(strings.TrimSpace(line)); name != "" && name == method {
				inMethod = true
			}
			continue
		}
		if strings.Contains(line, varName) && (strings.Contains(line, "new Thread") || strings.Contains(line, "ExecutorService")) {
			return idx + 1, true
		}
	}
	return 0, false
}

func detectJavaThreadCreation(line, sourceFile string, lineNum int, function string) (protocol.StaticEscape, bool) {
	trimmed := strings.TrimSpace(line)
	if (strings.Contains(trimmed, "new Thread") || strings.Contains(trimmed, "new java.lang.Thread")) &&
		strings.Contains(trimmed, ".start()") {
		return protocol.StaticEscape{
			EscapeType: protocol.EscapeConcurrency,
			Location: protocol.SourceLocation{
				File: sourceFile, Line: lineNum, Column: 0, Function: function,
				CodeSnippet: trimmed,
			},
			VariableName: "thread",
			Reason:       "Thread created and started",
			Confidence:   protocol.ConfidenceHigh,
		}, true
	}
	return protocol.StaticEscape{}, false
}
