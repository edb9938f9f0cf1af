package staticanalysis

import (
	"testing"

	"github.com/dkrasner/escapewatch/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestRustScannerDetectsUnjoinedThread(t *testing.T) {
	src := `fn spawn_fn() {
    let handle = thread::spawn(|| {
        do_work();
    });
}
`
	path := writeSource(t, t.TempDir(), "leak.rs", src)
	s := NewRustScanner()
	result, err := s.Analyze(path+":spawn_fn", path)
	require.NoError(t, err)

	var sawSpawn, sawUnjoined bool
	for _, e := range result.Escapes {
		if e.EscapeType == protocol.EscapeConcurrency && e.VariableName == "thread::spawn" {
			sawSpawn = true
		}
		if e.VariableName == "handle" {
			sawUnjoined = true
		}
	}
	require.True(t, sawSpawn)
	require.True(t, sawUnjoined)
}

func TestRustScannerJoinedThreadNotReported(t *testing.T) {
	src := `fn clean_fn() {
    let handle = thread::spawn(|| {
        do_work();
    });
    handle.join().unwrap();
}
`
	path := writeSource(t, t.TempDir(), "clean.rs", src)
	s := NewRustScanner()
	result, err := s.Analyze(path+":clean_fn", path)
	require.NoError(t, err)

	for _, e := range result.Escapes {
		require.NotEqual(t, "handle", e.VariableName)
	}
}

func TestRustScannerDetectsReturnEscape(t *testing.T) {
	src := `fn make_box() -> Box<i32> {
    let boxed = Box::new(5);
    return boxed;
}
`
	path := writeSource(t, t.TempDir(), "heap.rs", src)
	s := NewRustScanner()
	result, err := s.Analyze(path+":make_box", path)
	require.NoError(t, err)

	var sawReturn, sawHeap bool
	for _, e := range result.Escapes {
		if e.EscapeType == protocol.EscapeReturn && e.VariableName == "boxed" {
			sawReturn = true
		}
		if e.EscapeType == protocol.EscapeHeap {
			sawHeap = true
		}
	}
	require.True(t, sawReturn)
	require.True(t, sawHeap)
}

func TestRustScannerWholeFileScanWithoutTarget(t *testing.T) {
	src := "fn a() {\n    tokio::spawn(async { work().await });\n}\n"
	path := writeSource(t, t.TempDir(), "whole.rs", src)
	s := NewRustScanner()
	result, err := s.Analyze(path, path)
	require.NoError(t, err)
	require.NotEmpty(t, result.Escapes)
}

func TestRustScannerLanguage(t *testing.T) {
	require.Equal(t, "rust", NewRustScanner().Language())
}
