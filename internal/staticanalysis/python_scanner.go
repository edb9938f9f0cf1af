package staticanalysis

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// PythonScanner is a line-oriented scanner in the same spirit as the Go and
// Rust ones, adapted for Python's indentation-delimited bodies rather than
// braces. Its pattern vocabulary (threading.Thread, multiprocessing,
// concurrent.futures executors) is grounded on analyzer/python.rs's
// supported_features list, since the upstream implementation never shipped
// a dedicated Python static analyzer to port directly.
type PythonScanner struct{}

func NewPythonScanner() *PythonScanner { return &PythonScanner{} }

func (s *PythonScanner) Language() string { return "python" }

func (s *PythonScanner) IsAvailable() bool {
	for _, name := range []string{"python3", "python"} {
		if _, err := exec.Command(name, "--version").Output(); err == nil {
			return true
		}
	}
	return false
}

func (s *PythonScanner) Analyze(target, sourceFile string) (*protocol.StaticAnalysisResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	source := string(raw)

	fn := targetFunction(target)
	var warnings []string
	var escapes []protocol.StaticEscape
	if fn != "" {
		escapes = s.analyzeFunction(source, sourceFile, fn, &warnings)
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

func (s *PythonScanner) analyzeFile(source, sourceFile string) []protocol.StaticEscape {
	var escapes []protocol.StaticEscape
	for i, line := range strings.Split(source, "\n") {
		if e, ok := detectPythonConcurrency(line, sourceFile, i+1, "<module>"); ok {
			escapes = append(escapes, e)
		}
	}
	return escapes
}

// analyzeFunction scopes a def body by indentation: the body extends while
// subsequent non-blank lines are indented deeper than the "def" line itself.
func (s *PythonScanner) analyzeFunction(source, sourceFile, fn string, warnings *[]string) []protocol.StaticEscape {
	lines := strings.Split(source, "\n")
	var escapes []protocol.StaticEscape
	found := false
	threadVars := map[string]bool{}
	joinedVars := map[string]bool{}
	bodyIndent := -1

	inBody := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if !inBody {
			if name := extractPythonDefName(trimmed); name != "" && name == fn {
				found = true
				inBody = true
				bodyIndent = -1
			}
			continue
		}

		if trimmed == "" {
			continue
		}
		indent := indentWidth(line)
		if bodyIndent == -1 {
			bodyIndent = indent
		}
		if indent < bodyIndent {
			break
		}

		if v, ok := extractPythonThreadAssignment(trimmed); ok {
			threadVars[v] = true
		}
		if v, ok := extractPythonJoinCall(trimmed); ok {
			joinedVars[v] = true
		}
		if e, ok := detectPythonConcurrency(trimmed, sourceFile, i+1, fn); ok {
			escapes = append(escapes, e)
		}
	}

	for v := range threadVars {
		if joinedVars[v] {
			continue
		}
		escapes = append(escapes, protocol.StaticEscape{
			EscapeType: protocol.EscapeConcurrency,
			Location: protocol.SourceLocation{
				File: sourceFile, Function: fn,
			},
			VariableName: v,
			Reason:       fmt.Sprintf("Thread/process handle '%s' created but never joined", v),
			Confidence:   protocol.ConfidenceMedium,
		})
	}

	if !found {
		*warnings = append(*warnings, fmt.Sprintf("Target function '%s' not found in source file", fn))
	}
	return escapes
}

func extractPythonDefName(line string) string {
	for _, prefix := range []string{"async def ", "def "} {
		if strings.HasPrefix(line, prefix) {
			after := line[len(prefix):]
			return sanitizeIdent(after)
		}
	}
	return ""
}

func indentWidth(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}

var pythonThreadConstructors = []string{
	"threading.Thread(", "multiprocessing.Process(",
}

func extractPythonThreadAssignment(line string) (string, bool) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return "", false
	}
	rhs := strings.TrimSpace(line[eq+1:])
	matched := false
	for _, ctor := range pythonThreadConstructors {
		if strings.HasPrefix(rhs, ctor) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}
	lhs := strings.TrimSpace(line[:eq])
	name := sanitizeIdent(lhs)
	if name == "" {
		return "", false
	}
	return name, true
}

func extractPythonJoinCall(line string) (string, bool) {
	if !strings.Contains(line, ".join()") {
		return "", false
	}
	dotIdx := strings.Index(line, ".")
	if dotIdx < 0 {
		return "", false
	}
	name := reverseSanitize(line[:dotIdx])
	if name == "" {
		return "", false
	}
	return name, true
}

// reverseSanitize returns the trailing identifier of s, since
// extractPythonJoinCall only has the text before the dot and needs its last
// token rather than its first.
func reverseSanitize(s string) string {
	runes := []rune(s)
	end := len(runes)
	start := end
	for start > 0 {
		ch := runes[start-1]
		if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			start--
		} else {
			break
		}
	}
	return string(runes[start:end])
}

var pythonConcurrencyPatterns = []struct {
	pattern string
	reason  string
}{
	{"threading.Thread(", "Thread created"},
	{"multiprocessing.Process(", "Process created"},
	{"ThreadPoolExecutor(", "Thread pool executor created"},
	{"ProcessPoolExecutor(", "Process pool executor created"},
	{"asyncio.create_task(", "Async task created"},
}

func detectPythonConcurrency(line, sourceFile string, lineNum int, function string) (protocol.StaticEscape, bool) {
	for _, p := range pythonConcurrencyPatterns {
		if idx := strings.Index(line, p.pattern); idx >= 0 {
			return protocol.StaticEscape{
				EscapeType: protocol.EscapeConcurrency,
				Location: protocol.SourceLocation{
					File: sourceFile, Line: lineNum, Column: idx, Function: function,
					CodeSnippet: strings.TrimSpace(line),
				},
				VariableName: p.pattern,
				Reason:       fmt.Sprintf("%s - may outlive the function unless joined", p.reason),
				Confidence:   protocol.ConfidenceMedium,
			}, true
		}
	}
	return protocol.StaticEscape{}, false
}
