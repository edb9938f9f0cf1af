package staticanalysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeNodeOnPath writes a shell script named "node" on PATH that ignores its
// arguments and prints a fixed jsAnalysis payload, standing in for the real
// analyzers/nodejs/static_analyzer.js without requiring Node to be installed.
func fakeNodeOnPath(t *testing.T, payload string) {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "node")
	content := "#!/bin/sh\ncat >/dev/null\nprintf '%s' " + payload + "\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestJavaScriptScannerParsesEscapes(t *testing.T) {
	payload := `'{"success":true,"escapes":[{"escape_type":"concurrency","line":4,"column":2,"variable_name":"timer","reason":"setInterval never cleared","confidence":"high"}]}'`
	fakeNodeOnPath(t, payload)

	dir := t.TempDir()
	src := filepath.Join(dir, "leak.js")
	require.NoError(t, os.WriteFile(src, []byte("function leak(){ setInterval(tick, 100); }\n"), 0o644))

	s := NewJavaScriptScanner()
	s.ScriptPath = src // any existing path satisfies the os.Stat existence check
	result, err := s.Analyze(src+":leak", src)
	require.NoError(t, err)
	require.Len(t, result.Escapes, 1)
	require.Equal(t, "timer", result.Escapes[0].VariableName)
}

func TestJavaScriptScannerRejectsMissingFunction(t *testing.T) {
	s := NewJavaScriptScanner()
	_, err := s.Analyze("leak.js", "leak.js")
	require.Error(t, err)
}

func TestJavaScriptScannerLanguage(t *testing.T) {
	require.Equal(t, "javascript", NewJavaScriptScanner().Language())
}
