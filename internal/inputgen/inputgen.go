// Package inputgen builds the deterministic fuzz-style input list dynamic
// analysis runs feed to each probe, per spec §4.6.
package inputgen

import (
	"strconv"
	"strings"
)

// seeds is the fixed, ordered base corpus: empty/boundary values, common
// type-confusion strings, shell/path/template/SQL injection payloads, and a
// handful of concurrency-vocabulary words a probe's error output might echo
// back. Order matters — callers that ask for fewer than len(seeds) inputs
// get a deterministic prefix of this exact list.
var seeds = []string{
	"", "0", "-1", "1", "true", "false", "null", "undefined", "hello",
	"\\x00", "\\n", "\\t", "'", "\"", "()", "[]", "{}", "../", "..\\",
	"${HOME}", "$(whoami)", "{{7*7}}", "%s", "error", "exception",
	"async", "await", "timeout", "deadlock", "race", "concurrent",
	"<script>alert(1)</script>", "'; DROP TABLE; --", "../../../etc/passwd",
	"\\x1b[31m", "\\u0000",
	strings.Repeat("A", 1024),
	strings.Repeat("1", 100),
	strings.Repeat("test", 50),
	strings.Repeat(" ", 1000),
	strings.Repeat("\\n", 100),
}

// Generate returns count deterministic inputs. count == 0 yields a single
// empty string (every probe gets at least one invocation). count <= len(seeds)
// takes a prefix of the fixed corpus; beyond that, "input_<n>" placeholders
// extend it so every requested slot is filled.
func Generate(count int) []string {
	if count == 0 {
		return []string{""}
	}
	if count <= len(seeds) {
		out := make([]string, count)
		copy(out, seeds[:count])
		return out
	}
	out := make([]string, len(seeds), count)
	copy(out, seeds)
	for len(out) < count {
		out = append(out, "input_"+strconv.Itoa(len(out)+1))
	}
	return out
}
