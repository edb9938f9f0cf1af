package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryOrderIsStable(t *testing.T) {
	r := Default(Config{})
	langs := make([]string, 0, len(r.Handles()))
	for _, h := range r.Handles() {
		langs = append(langs, h.Language)
	}
	require.Equal(t, []string{"python", "java", "javascript", "go", "rust"}, langs)
}

// TestPredicateDisjointness is the §8 testable property: for a target with
// exactly one canonical extension, exactly one analyzer predicate accepts it.
func TestPredicateDisjointness(t *testing.T) {
	r := Default(Config{})
	cases := map[string]string{
		"tests/python/thread.py:leak":            "python",
		"tests/java/Leak.java:run":               "java",
		"tests/nodejs/leak.js:run":                "javascript",
		"tests/go/clean.go:ok":                   "go",
		"tests/rust/advanced_escapes.rs:spawn_fn": "rust",
	}

	for target, want := range cases {
		t.Run(target, func(t *testing.T) {
			matches := 0
			var matched string
			for _, h := range r.Handles() {
				if h.CanHandle(target) {
					matches++
					if matched == "" {
						matched = h.Language
					}
				}
			}
			require.Equal(t, 1, matches, "target %q matched %d predicates", target, matches)
			require.Equal(t, want, matched)
		})
	}
}

func TestFindByExplicitLanguage(t *testing.T) {
	r := Default(Config{})
	h := r.Find("anything", "rust")
	require.NotNil(t, h)
	require.Equal(t, "rust", h.Language)
}

func TestFindReturnsNilWhenNoHandleMatches(t *testing.T) {
	r := New()
	require.Nil(t, r.Find("foo.unknown", ""))
}

func TestNormalizeLanguageAliases(t *testing.T) {
	require.Equal(t, "javascript", NormalizeLanguage("js"))
	require.Equal(t, "javascript", NormalizeLanguage("node"))
	require.Equal(t, "javascript", NormalizeLanguage("nodejs"))
	require.Equal(t, "python", NormalizeLanguage("py"))
	require.Equal(t, "rust", NormalizeLanguage("rust"))
}
