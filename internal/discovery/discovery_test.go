package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestForLanguagePythonDiscoversPublicFunctions(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "python", "leak.py"), "def leak_worker():\n    pass\n\ndef _helper():\n    pass\n")
	mustWriteFile(t, filepath.Join(dir, "python", "__init__.py"), "")

	targets, err := ForLanguage("python", dir)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Contains(t, targets[0], "leak_worker")
}

func TestForLanguageJavaScriptDiscoversModuleExports(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "nodejs", "leak.js"), "module.exports = {\n  leakWorker,\n  otherFn\n};\n")

	targets, err := ForLanguage("javascript", dir)
	require.NoError(t, err)
	require.Len(t, targets, 2)
}

func TestForLanguageGoIsUnsupported(t *testing.T) {
	targets, err := ForLanguage("go", t.TempDir())
	require.NoError(t, err)
	require.Empty(t, targets)
}

func TestForLanguageRustReadsCargoTomlCrateName(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "rust", "Cargo.toml"), "[package]\nname = \"escape-tests\"\nversion = \"0.1.0\"\n")
	mustWriteFile(t, filepath.Join(dir, "rust", "spawn.rs"), "pub fn spawn_fn() {}\n")

	targets, err := ForLanguage("rust", dir)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, "escape_tests::spawn::spawn_fn", targets[0])
}

func TestForLanguageJavaSkippedWithoutBuiltJar(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "java", "Leak.java"), "public class Leak { public static void run() {} }\n")

	targets, err := ForLanguage("java", dir)
	require.NoError(t, err)
	require.Empty(t, targets)
}

func TestForLanguageUnknownReturnsEmpty(t *testing.T) {
	targets, err := ForLanguage("cobol", t.TempDir())
	require.NoError(t, err)
	require.Empty(t, targets)
}
