package staticanalysis

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// GoScanner finds `go <expr>` spawns, channels created but never received
// on, and goroutines spawned from a context-carrying function that never
// selects on ctx.Done(), within a single function body. Adapted from the
// teacher's AST-walking GoroutineAnalyzer/ChannelAnalyzer/ContextAnalyzer
// into the line-oriented, brace-counting shape spec §4.3 mandates for
// cross-language symmetry; ContextAnalyzer's context-parameter inspection
// is repurposed here from a lint about parameter ordering into a check for
// the concurrency-escape case the original analyzer didn't cover.
type GoScanner struct{}

func NewGoScanner() *GoScanner { return &GoScanner{} }

func (s *GoScanner) Language() string { return "go" }

func (s *GoScanner) IsAvailable() bool {
	_, err := exec.Command("go", "version").Output()
	return err == nil
}

func (s *GoScanner) Analyze(target, sourceFile string) (*protocol.StaticAnalysisResult, error) {
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

func (s *GoScanner) analyzeFile(source, sourceFile string) []protocol.StaticEscape {
	var escapes []protocol.StaticEscape
	for i, line := range strings.Split(source, "\n") {
		if e, ok := detectGoStatement(line, sourceFile, i+1, "<module>"); ok {
			escapes = append(escapes, e)
		}
	}
	return escapes
}

func (s *GoScanner) analyzeFunction(source, sourceFile, fn string, warnings *[]string) []protocol.StaticEscape {
	lines := strings.Split(source, "\n")
	var escapes []protocol.StaticEscape
	inTarget := false
	braceDepth := 0
	found := false
	channels := map[string]bool{}
	received := map[string]bool{}
	takesContext := false
	usesCtxDone := false
	spawnedGoroutine := false
	lastLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inTarget {
			if name := extractGoFuncName(trimmed); name != "" && name == fn {
				found = true
				inTarget = true
				braceDepth = 0
				takesContext = strings.Contains(trimmed, "context.Context")
				if strings.Contains(trimmed, "{") {
					braceDepth = 1
				}
			}
			continue
		}

		if v, ok := extractChannelMake(trimmed); ok {
			channels[v] = true
		}
		if v, ok := extractChannelReceive(trimmed); ok {
			received[v] = true
		}
		if strings.Contains(trimmed, "ctx.Done()") {
			usesCtxDone = true
		}

		if strings.Contains(trimmed, "go ") && !strings.HasPrefix(trimmed, "//") {
			spawnedGoroutine = true
			escapes = append(escapes, protocol.StaticEscape{
				EscapeType: protocol.EscapeConcurrency,
				Location: protocol.SourceLocation{
					File: sourceFile, Line: i + 1, Column: 0, Function: fn,
					CodeSnippet: trimmed,
				},
				VariableName: "goroutine",
				Reason:       "Goroutine spawned - may not complete before function return",
				Confidence:   protocol.ConfidenceHigh,
			})
		}

		braceDepth += countBraces(trimmed)
		lastLine = i + 1
		if braceDepth <= 0 {
			for chanVar := range channels {
				if !received[chanVar] {
					escapes = append(escapes, protocol.StaticEscape{
						EscapeType: protocol.EscapeConcurrency,
						Location: protocol.SourceLocation{
							File: sourceFile, Line: i + 1, Column: 0, Function: fn,
						},
						VariableName: chanVar,
						Reason:       fmt.Sprintf("Channel '%s' created but never received on (goroutine may leak)", chanVar),
						Confidence:   protocol.ConfidenceMedium,
					})
				}
			}
			break
		}
	}

	if found && takesContext && spawnedGoroutine && !usesCtxDone {
		escapes = append(escapes, protocol.StaticEscape{
			EscapeType: protocol.EscapeConcurrency,
			Location: protocol.SourceLocation{
				File: sourceFile, Line: lastLine, Column: 0, Function: fn,
			},
			VariableName: "ctx",
			Reason:       "function takes a context.Context but its spawned goroutine never selects on ctx.Done(), so it will outlive cancellation",
			Confidence:   protocol.ConfidenceLow,
		})
	}

	if !found {
		*warnings = append(*warnings, fmt.Sprintf("Target function '%s' not found in source file", fn))
	}
	return escapes
}

func detectGoStatement(line, sourceFile string, lineNum int, fn string) (protocol.StaticEscape, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.Contains(trimmed, "go ") && !strings.HasPrefix(trimmed, "//") {
		return protocol.StaticEscape{
			EscapeType: protocol.EscapeConcurrency,
			Location: protocol.SourceLocation{
				File: sourceFile, Line: lineNum, Column: 0, Function: fn,
				CodeSnippet: trimmed,
			},
			VariableName: "goroutine",
			Reason:       "Goroutine spawned",
			Confidence:   protocol.ConfidenceHigh,
		}, true
	}
	return protocol.StaticEscape{}, false
}

func extractGoFuncName(line string) string {
	idx := strings.Index(line, "func ")
	if idx < 0 {
		return ""
	}
	after := line[idx+len("func "):]
	// Skip a method receiver like "(r *Receiver) Name(...)".
	if strings.HasPrefix(after, "(") {
		close := strings.Index(after, ")")
		if close < 0 {
			return ""
		}
		after = strings.TrimSpace(after[close+1:])
	}
	return sanitizeIdent(after)
}

func extractChannelMake(line string) (string, bool) {
	if !strings.Contains(line, "make(chan") {
		return "", false
	}
	assignIdx := strings.Index(line, ":=")
	if assignIdx < 0 {
		assignIdx = strings.Index(line, " = ")
	}
	if assignIdx < 0 {
		return "", false
	}
	before := strings.TrimSpace(line[:assignIdx])
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return "", false
	}
	return fields[len(fields)-1], true
}

func extractChannelReceive(line string) (string, bool) {
	idx := strings.Index(line, "<-")
	if idx < 0 {
		return "", false
	}
	after := strings.TrimSpace(line[idx+2:])
	name := sanitizeIdent(after)
	if name == "" {
		return "", false
	}
	return name, true
}
