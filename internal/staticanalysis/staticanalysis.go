// Package staticanalysis implements the text-based, per-language escape
// scanners described in spec §4.3. Scanners are deliberately line-oriented
// and never parse the host language — string literals and comments are not
// modeled, which is an accepted source of false positives the Confidence
// field is meant to convey.
package staticanalysis

import (
	"strings"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// Scanner is the interface every language's static escape analyzer
// implements.
type Scanner interface {
	// Analyze scans sourceFile for escapes. target is the original
	// "<source>:<symbol>" or bare-path string the caller asked about.
	Analyze(target, sourceFile string) (*protocol.StaticAnalysisResult, error)

	// Language is the registry tag this scanner matches.
	Language() string

	// IsAvailable reports whether the toolchain this scanner nominally
	// depends on (e.g. an interpreter for a health-check) is present.
	// Text scanners need no toolchain to run, but the orchestrator still
	// calls this per spec §4.4, so scanners that do front a toolchain
	// (go vet, rustc, javac) report on it honestly.
	IsAvailable() bool
}

// Factory creates a Scanner for a language tag, or nil if unsupported.
func Factory(language string) Scanner {
	switch strings.ToLower(language) {
	case "python":
		return NewPythonScanner()
	case "java":
		return NewJavaScanner()
	case "javascript", "nodejs":
		return NewJavaScriptScanner()
	case "go":
		return NewGoScanner()
	case "rust":
		return NewRustScanner()
	default:
		return nil
	}
}

// targetFunction extracts the "<symbol>" half of a "<source>:<symbol>"
// target, or "" for a bare file-path target (whole-file scan).
func targetFunction(target string) string {
	parts := strings.Split(target, ":")
	if len(parts) == 2 {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// countBraces returns the net change in brace depth contributed by line —
// shared by every brace-delimited-body language (Go, Java, Rust). Braces in
// string literals and comments are not modeled, per spec §4.3.
func countBraces(line string) int {
	depth := 0
	for _, ch := range line {
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
		}
	}
	return depth
}

// isValidIdentifier mirrors spec §4.5's identifier rule, reused here since
// several matchers need to validate an extracted variable name.
func isValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sanitizeIdent(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			break
		}
	}
	return b.String()
}

func newSummary(escapes []protocol.StaticEscape) protocol.StaticEscapeSummary {
	var s protocol.StaticEscapeSummary
	for _, e := range escapes {
		s.AddEscape(e)
	}
	return s
}
