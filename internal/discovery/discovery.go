// Package discovery walks a test directory tree and turns source files into
// analyzable "target" strings for each language, per spec §4.5. Grounded on
// the original implementation's discover_*_targets functions in
// orchestrator.rs.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ForLanguage discovers targets for one normalized language tag under
// testDir. An empty result with a nil error means "no sources found", not
// an error — callers should warn and continue, per spec §4.4.
func ForLanguage(language string, testDir string) ([]string, error) {
	switch language {
	case "python":
		return discoverPython(testDir)
	case "javascript":
		return discoverNodeJS(testDir)
	case "java":
		return discoverJava(testDir)
	case "rust":
		return discoverRust(testDir)
	case "go":
		// Go run-all is not supported: the Go probe links against a
		// registered name table, it cannot dynamically load a test
		// binary's symbols the way the other bridges' interpreters can.
		return nil, nil
	default:
		return nil, nil
	}
}

func resolveLanguageDir(testDir, language, ext string) (string, bool) {
	candidate := filepath.Join(testDir, language)
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, true
	}
	if info, err := os.Stat(testDir); err == nil && info.IsDir() && hasExtension(testDir, ext) {
		return testDir, true
	}
	return "", false
}

func hasExtension(dir, ext string) bool {
	files, err := collectFilesRecursive(dir, ext)
	return err == nil && len(files) > 0
}

func collectFilesRecursive(dir, ext string) ([]string, error) {
	var files []string
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return files, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := collectFilesRecursive(path, ext)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}
		if strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), ext) {
			files = append(files, path)
		}
	}
	return files, nil
}

func toRelativePath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}
	return rel
}

func discoverPython(testDir string) ([]string, error) {
	dir, ok := resolveLanguageDir(testDir, "python", "py")
	if !ok {
		return nil, nil
	}
	files, err := collectFilesRecursive(dir, "py")
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, file := range files {
		if filepath.Base(file) == "__init__.py" {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", file, err)
		}
		for _, fn := range extractPythonFunctions(string(content)) {
			targets = append(targets, fmt.Sprintf("%s:%s", toRelativePath(file), fn))
		}
	}
	return targets, nil
}

func extractPythonFunctions(content string) []string {
	var functions []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if len(trimmed) != len(line) {
			continue
		}
		var name string
		switch {
		case strings.HasPrefix(trimmed, "async def "):
			name = strings.TrimPrefix(trimmed, "async def ")
		case strings.HasPrefix(trimmed, "def "):
			name = strings.TrimPrefix(trimmed, "def ")
		default:
			continue
		}
		end := strings.Index(name, "(")
		if end < 0 {
			continue
		}
		fn := strings.TrimSpace(name[:end])
		if fn != "" && !strings.HasPrefix(fn, "_") {
			functions = append(functions, fn)
		}
	}
	return functions
}

func discoverNodeJS(testDir string) ([]string, error) {
	dir, ok := resolveLanguageDir(testDir, "nodejs", "js")
	if !ok {
		return nil, nil
	}
	files, err := collectFilesRecursive(dir, "js")
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", file, err)
		}
		for _, export := range extractNodeJSExports(string(content)) {
			targets = append(targets, fmt.Sprintf("%s:%s", toRelativePath(file), export))
		}
	}
	return targets, nil
}

func extractNodeJSExports(content string) []string {
	exports := map[string]bool{}
	inBlock := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
			continue
		}

		if strings.HasPrefix(trimmed, "module.exports") && strings.Contains(trimmed, "{") {
			inBlock = true
		}

		if inBlock {
			parseLine := trimmed
			if idx := strings.Index(trimmed, "{"); idx >= 0 {
				parseLine = trimmed[idx+1:]
			}
			if idx := strings.Index(parseLine, "}"); idx >= 0 {
				parseLine = parseLine[:idx]
				inBlock = false
			}
			for _, part := range strings.Split(parseLine, ",") {
				item := strings.TrimSuffix(strings.TrimSpace(part), ";")
				if item == "" {
					continue
				}
				name := strings.TrimSpace(strings.SplitN(item, ":", 2)[0])
				if isValidIdentifier(name) {
					exports[name] = true
				}
			}
		}

		if name, ok := strings.CutPrefix(trimmed, "exports."); ok {
			fn := strings.TrimSpace(strings.SplitN(name, "=", 2)[0])
			if isValidIdentifier(fn) {
				exports[fn] = true
			}
		}
		if name, ok := strings.CutPrefix(trimmed, "module.exports."); ok {
			fn := strings.TrimSpace(strings.SplitN(name, "=", 2)[0])
			if isValidIdentifier(fn) {
				exports[fn] = true
			}
		}
	}

	out := make([]string, 0, len(exports))
	for name := range exports {
		out = append(out, name)
	}
	return out
}

func discoverJava(testDir string) ([]string, error) {
	dir, ok := resolveLanguageDir(testDir, "java", "java")
	if !ok {
		return nil, nil
	}
	jarPath, ok := findJavaJar(dir)
	if !ok {
		return nil, nil
	}
	files, err := collectFilesRecursive(dir, "java")
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", file, err)
		}
		className, methods, ok := extractJavaClassAndMethods(string(content))
		if !ok {
			continue
		}
		for _, method := range methods {
			targets = append(targets, fmt.Sprintf("%s:%s:%s", toRelativePath(jarPath), className, method))
		}
	}
	return targets, nil
}

func findJavaJar(dir string) (string, bool) {
	targetDir := filepath.Join(dir, "target")
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".jar") {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, "-sources.jar") || strings.HasSuffix(name, "-javadoc.jar") {
			continue
		}
		return filepath.Join(targetDir, name), true
	}
	return "", false
}

func extractJavaClassAndMethods(content string) (string, []string, bool) {
	var packageName, className string
	var methods []string

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			name := strings.TrimSuffix(strings.TrimPrefix(trimmed, "package "), ";")
			name = strings.TrimSpace(name)
			if name != "" {
				packageName = name
			}
		}

		if className == "" && strings.Contains(trimmed, " class ") {
			parts := strings.Fields(trimmed)
			for i, part := range parts {
				if part == "class" && i+1 < len(parts) {
					className = strings.TrimSuffix(strings.TrimSpace(parts[i+1]), "{")
					break
				}
			}
		}

		if strings.Contains(trimmed, " static ") && strings.Contains(trimmed, "(") {
			beforeParen := strings.SplitN(trimmed, "(", 2)[0]
			tokens := strings.Fields(beforeParen)
			if len(tokens) == 0 {
				continue
			}
			name := tokens[len(tokens)-1]
			if className != "" && name == className {
				continue
			}
			if isValidIdentifier(name) {
				methods = append(methods, name)
			}
		}
	}

	if className == "" {
		return "", nil, false
	}
	fqcn := className
	if packageName != "" {
		fqcn = packageName + "." + className
	}
	return fqcn, methods, true
}

func discoverRust(testDir string) ([]string, error) {
	dir, ok := resolveLanguageDir(testDir, "rust", "rs")
	if !ok {
		return nil, nil
	}
	crateName := readRustCrateName(dir)
	if crateName == "" {
		crateName = "tests_rust"
	}
	files, err := collectFilesRecursive(dir, "rs")
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, file := range files {
		filename := filepath.Base(file)
		if filename == "lib.rs" || strings.HasPrefix(filename, "run_") {
			continue
		}
		module := strings.TrimSuffix(filename, filepath.Ext(filename))
		if module == "" {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", file, err)
		}
		for _, fn := range extractRustFunctions(string(content)) {
			targets = append(targets, fmt.Sprintf("%s::%s::%s", crateName, module, fn))
		}
	}
	return targets, nil
}

// cargoManifest models only the fields discovery needs. go-toml/v2 decodes
// directly into it instead of the original's line-scan of "name = ...".
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

func readRustCrateName(dir string) string {
	content, err := os.ReadFile(filepath.Join(dir, "Cargo.toml"))
	if err != nil {
		return ""
	}
	var manifest cargoManifest
	if err := toml.Unmarshal(content, &manifest); err != nil {
		return ""
	}
	return strings.ReplaceAll(manifest.Package.Name, "-", "_")
}

func extractRustFunctions(content string) []string {
	var functions []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if len(trimmed) != len(line) {
			continue
		}
		var name string
		switch {
		case strings.HasPrefix(trimmed, "pub async fn "):
			name = strings.TrimPrefix(trimmed, "pub async fn ")
		case strings.HasPrefix(trimmed, "pub fn "):
			name = strings.TrimPrefix(trimmed, "pub fn ")
		default:
			continue
		}
		end := strings.Index(name, "(")
		if end < 0 {
			continue
		}
		fn := strings.TrimSpace(name[:end])
		if isValidIdentifier(fn) {
			functions = append(functions, fn)
		}
	}
	return functions
}

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
