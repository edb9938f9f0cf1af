package staticanalysis

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// RustScanner is grounded directly on the original implementation's
// static_analyzer/rust.rs: thread/task spawn detection, unjoined-handle
// tracking, return-escape, and heap-allocation-pattern matchers.
type RustScanner struct{}

func NewRustScanner() *RustScanner { return &RustScanner{} }

func (s *RustScanner) Language() string { return "rust" }

func (s *RustScanner) IsAvailable() bool {
	_, err := exec.Command("rustc", "--version").Output()
	return err == nil
}

func (s *RustScanner) Analyze(target, sourceFile string) (*protocol.StaticAnalysisResult, error) {
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
		if len(escapes) == 0 {
			warnings = append(warnings, "No Rust escapes detected by heuristic analyzer")
		}
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

func (s *RustScanner) analyzeFile(source, sourceFile string) []protocol.StaticEscape {
	var escapes []protocol.StaticEscape
	for i, line := range strings.Split(source, "\n") {
		if e, ok := detectRustConcurrency(line, sourceFile, i+1, "<module>"); ok {
			escapes = append(escapes, e)
		}
	}
	return escapes
}

func (s *RustScanner) analyzeFunction(source, sourceFile, fn string, warnings *[]string) []protocol.StaticEscape {
	lines := strings.Split(source, "\n")
	var escapes []protocol.StaticEscape
	inTarget := false
	braceDepth := 0
	locals := map[string]bool{}
	threadHandles := map[string]bool{}
	joinedHandles := map[string]bool{}
	found := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if !inTarget {
			if name := extractRustFnName(line); name != "" && name == fn {
				found = true
				signature := line
				for !strings.Contains(signature, "{") && i+1 < len(lines) {
					i++
					signature += "\n" + lines[i]
				}
				for p := range extractRustParams(signature) {
					locals[p] = true
				}
				braceDepth = countBraces(signature)
				inTarget = braceDepth > 0
			}
			continue
		}

		if local, ok := extractRustLetBinding(line); ok {
			locals[local] = true
			if isRustThreadCreation(line) {
				threadHandles[local] = true
			}
		}

		if handle, ok := extractRustJoinCall(line); ok {
			joinedHandles[handle] = true
		}

		if e, ok := detectRustConcurrency(line, sourceFile, i+1, fn); ok {
			escapes = append(escapes, e)
		}
		if e, ok := detectRustReturnEscape(line, sourceFile, i+1, fn, locals); ok {
			escapes = append(escapes, e)
		}
		if e, ok := detectRustHeapEscape(line, sourceFile, i+1, fn); ok {
			escapes = append(escapes, e)
		}

		braceDepth += countBraces(line)
		if braceDepth <= 0 {
			break
		}
	}

	for handle := range threadHandles {
		if joinedHandles[handle] {
			continue
		}
		if lineNum, ok := findRustVariableLine(source, fn, handle); ok {
			escapes = append(escapes, protocol.StaticEscape{
				EscapeType: protocol.EscapeConcurrency,
				Location: protocol.SourceLocation{
					File: sourceFile, Line: lineNum, Column: 0, Function: fn,
				},
				VariableName: handle,
				Reason:       fmt.Sprintf("Thread/task handle '%s' created but not joined", handle),
				Confidence:   protocol.ConfidenceHigh,
			})
		}
	}

	if !found {
		*warnings = append(*warnings, fmt.Sprintf("Target function '%s' not found in source file", fn))
	}
	return escapes
}

func extractRustFnName(line string) string {
	idx := strings.Index(line, "fn ")
	if idx < 0 {
		return ""
	}
	return sanitizeIdent(line[idx+3:])
}

func extractRustParams(signature string) map[string]bool {
	params := map[string]bool{}
	start := strings.Index(signature, "(")
	if start < 0 {
		return params
	}
	end := strings.Index(signature[start+1:], ")")
	if end < 0 {
		return params
	}
	end = start + 1 + end
	args := signature[start+1 : end]
	for _, arg := range strings.Split(args, ",") {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if strings.HasPrefix(arg, "self") || strings.HasPrefix(arg, "&self") || strings.HasPrefix(arg, "&mut self") {
			params["self"] = true
			continue
		}
		if idx := strings.Index(arg, ":"); idx >= 0 {
			arg = arg[:idx]
		}
		arg = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(arg), "&"))
		arg = strings.TrimSpace(strings.TrimPrefix(arg, "mut "))
		if name := sanitizeIdent(arg); name != "" {
			params[name] = true
		}
	}
	return params
}

func extractRustLetBinding(line string) (string, bool) {
	idx := strings.Index(line, "let ")
	if idx < 0 {
		return "", false
	}
	remainder := strings.TrimLeft(line[idx+4:], " \t")
	if strings.HasPrefix(remainder, "(") {
		return "", false
	}
	remainder = strings.TrimPrefix(remainder, "mut ")
	name := sanitizeIdent(remainder)
	if name == "" {
		return "", false
	}
	return name, true
}

func detectRustReturnEscape(line, sourceFile string, lineNum int, fn string, locals map[string]bool) (protocol.StaticEscape, bool) {
	idx := strings.Index(line, "return ")
	if idx < 0 {
		return protocol.StaticEscape{}, false
	}
	remainder := strings.TrimSpace(line[idx+7:])
	name := sanitizeIdent(remainder)
	if name == "" || !locals[name] {
		return protocol.StaticEscape{}, false
	}
	return protocol.StaticEscape{
		EscapeType: protocol.EscapeReturn,
		Location: protocol.SourceLocation{
			File: sourceFile, Line: lineNum, Column: idx, Function: fn,
			CodeSnippet: strings.TrimSpace(line),
		},
		VariableName: name,
		Reason:       fmt.Sprintf("Variable '%s' returned from function", name),
		Confidence:   protocol.ConfidenceHigh,
	}, true
}

var rustHeapPatterns = []string{
	"Box::new", "Vec::new", "String::new", "Arc::new", "Rc::new",
	"HashMap::new", "HashSet::new",
}

func detectRustHeapEscape(line, sourceFile string, lineNum int, fn string) (protocol.StaticEscape, bool) {
	matched := false
	for _, p := range rustHeapPatterns {
		if strings.Contains(line, p) {
			matched = true
			break
		}
	}
	if !matched {
		return protocol.StaticEscape{}, false
	}
	varName, ok := extractRustLetBinding(line)
	if !ok {
		varName = "<unknown>"
	}
	column := strings.Index(line, varName)
	if column < 0 {
		column = 0
	}
	return protocol.StaticEscape{
		EscapeType: protocol.EscapeHeap,
		Location: protocol.SourceLocation{
			File: sourceFile, Line: lineNum, Column: column, Function: fn,
			CodeSnippet: strings.TrimSpace(line),
		},
		VariableName: varName,
		Reason:       "Heap-allocated structure assigned to local variable",
		Confidence:   protocol.ConfidenceMedium,
	}, true
}

var rustConcurrencyPatterns = []struct {
	pattern string
	reason  string
}{
	{"std::thread::spawn", "Thread spawn"},
	{"thread::spawn", "Thread spawn"},
	{"tokio::spawn", "Async task spawn"},
	{"tokio::task::spawn", "Async task spawn"},
	{"std::thread::Builder", "Thread builder"},
}

func detectRustConcurrency(line, sourceFile string, lineNum int, fn string) (protocol.StaticEscape, bool) {
	for _, p := range rustConcurrencyPatterns {
		if idx := strings.Index(line, p.pattern); idx >= 0 {
			return protocol.StaticEscape{
				EscapeType: protocol.EscapeConcurrency,
				Location: protocol.SourceLocation{
					File: sourceFile, Line: lineNum, Column: idx, Function: fn,
					CodeSnippet: strings.TrimSpace(line),
				},
				VariableName: p.pattern,
				Reason:       fmt.Sprintf("%s may leak work beyond scope", p.reason),
				Confidence:   protocol.ConfidenceHigh,
			}, true
		}
	}
	return protocol.StaticEscape{}, false
}

func isRustThreadCreation(line string) bool {
	patterns := []string{"thread::spawn", "std::thread::spawn", "tokio::spawn", "tokio::task::spawn", "thread::Builder"}
	for _, p := range patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

func extractRustJoinCall(line string) (string, bool) {
	if !strings.Contains(line, ".join()") && !strings.Contains(line, ".await") {
		return "", false
	}
	dotIdx := strings.Index(line, ".")
	if dotIdx < 0 {
		return "", false
	}
	beforeDot := line[:dotIdx]
	var b []rune
	runes := []rune(beforeDot)
	for i := len(runes) - 1; i >= 0; i-- {
		ch := runes[i]
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

func findRustVariableLine(source, fn, varName string) (int, bool) {
	lines := strings.Split(source, "\n")
	inTarget := false
	braceDepth := 0
	for i, line := range lines {
		if !inTarget {
			if name := extractRustFnName(line); name != "" && name == fn {
				inTarget = true
				braceDepth = countBraces(line)
			}
			continue
		}
		if strings.Contains(line, "let "+varName) || strings.Contains(line, "let mut "+varName) {
			return i + 1, true
		}
		braceDepth += countBraces(line)
		if braceDepth <= 0 {
			break
		}
	}
	return 0, false
}
